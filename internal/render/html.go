package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Helper functions available inside receipt templates.
var templateFuncs = template.FuncMap{
	// Formats ISO date string to a compact receipt format
	"formatDate": func(dateStr string) string {
		t, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return dateStr
		}
		return t.Format("02/01/2006 15:04")
	},
}

// HTMLRenderer rasterizes an html/template receipt through headless Chrome.
// Used for rich layouts the text engine cannot express; the result feeds the
// same halftone and queue path as plain text receipts.
type HTMLRenderer struct {
	tmpl    *template.Template
	widthPx int
}

func NewHTMLRenderer(templatePath, templateFile string, widthPx int) (*HTMLRenderer, error) {
	tmpl, err := template.New(templateFile).Funcs(templateFuncs).ParseFiles(templatePath + "/" + templateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl, widthPx: widthPx}, nil
}

// Render executes the template with data, screenshots the page and returns
// a grayscale canvas at printer width.
func (r *HTMLRenderer) Render(ctx context.Context, data any) (*image.Gray, error) {
	var htmlBuffer bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuffer, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	var cdpCtx context.Context
	var cancel context.CancelFunc

	// macOS: force Chrome path
	if runtime.GOOS == "darwin" {
		opts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath("/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-gpu", true),
		)

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
		cdpCtx, cancel = chromedp.NewContext(allocCtx)
		defer allocCancel()
		defer cancel()
	} else {
		cdpCtx, cancel = chromedp.NewContext(ctx)
		defer cancel()
	}

	html := htmlBuffer.String()
	var pngBytes []byte

	err := chromedp.Run(cdpCtx,
		// Load HTML directly using data URL
		chromedp.Navigate("data:text/html,"+urlEncode(html)),

		// Wait for the page to render
		chromedp.Sleep(300*time.Millisecond),

		// Capture full-page PNG screenshot
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithCaptureBeyondViewport(true). // capture full height
				Do(ctx)
			if err != nil {
				return err
			}
			pngBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed generating image: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return ResizeToWidth(img, r.widthPx), nil
}

// Helper for encoding HTML into a data URL
func urlEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
