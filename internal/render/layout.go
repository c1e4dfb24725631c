package render

import (
	"image"
	"image/draw"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
)

// MinCanvasHeight is the floor height for empty or near-empty requests.
const MinCanvasHeight = 120

// Engine lays out receipt text onto a grayscale canvas. Width and timezone
// are fixed at construction; style comes from the Receipt snapshot passed
// to each call.
type Engine struct {
	widthPx int
	tz      *time.Location
	now     func() time.Time
}

func NewEngine(widthPx int, tz *time.Location) *Engine {
	return &Engine{widthPx: widthPx, tz: tz, now: time.Now}
}

// WidthPx reports the printer dot width this engine renders at.
func (e *Engine) WidthPx() int { return e.widthPx }

type faces struct {
	title font.Face
	text  font.Face
	time  font.Face
}

func (e *Engine) resolveFaces(cfg config.Receipt) faces {
	return faces{
		title: ResolveFace(cfg.TitleFont, cfg.TitleSize),
		text:  ResolveFace(cfg.TextFont, cfg.TextSize),
		time:  ResolveFace(cfg.TimeFont, cfg.TimeSize),
	}
}

// Render produces the receipt canvas for a request. Two passes: the first
// accumulates the exact height, the second draws at that height. White
// background, black text.
func (e *Engine) Render(req model.RenderRequest, cfg config.Receipt) *image.Gray {
	f := e.resolveFaces(cfg)
	maxW := e.widthPx - cfg.MarginLeft - cfg.MarginRight

	var titleLines []string
	if t := strings.TrimSpace(req.Title); t != "" {
		titleLines = wrap(t, f.title, maxW)
	}

	var timeLine string
	if req.AddTimestamp {
		timeLine = e.timeString(cfg)
	}
	var senderLine string
	if req.SenderName != "" {
		senderLine = "From: " + req.SenderName
	}

	lhTitle := lineHeight(f.title, cfg.LineHeight)
	lhText := lineHeight(f.text, cfg.LineHeight)
	lhTime := lineHeight(f.time, cfg.LineHeight)

	var body []string
	for _, raw := range req.Lines {
		txt := strings.TrimSpace(raw)
		if txt == "" {
			body = append(body, "")
			continue
		}
		body = append(body, wrap(txt, f.text, maxW)...)
	}

	// Pass 1: measure.
	curY := cfg.MarginTop
	if len(titleLines) > 0 {
		curY += lhTitle * len(titleLines)
		if cfg.RuleAfterTitle {
			curY += cfg.RulePad + cfg.RulePx + cfg.RulePad
		} else {
			curY += cfg.GapTitleText
		}
	}
	if senderLine != "" {
		curY += lhTime
	}
	if timeLine != "" {
		curY += lhTime
	}
	bodyLines := len(body)
	if bodyLines < 1 {
		bodyLines = 1
	}
	curY += lhText * bodyLines
	curY += cfg.MarginBottom

	totalH := curY
	if totalH < MinCanvasHeight {
		totalH = MinCanvasHeight
	}

	// Pass 2: draw at final height.
	img := image.NewGray(image.Rect(0, 0, e.widthPx, totalH))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	y := cfg.MarginTop
	for _, ln := range titleLines {
		x := xForAlign(ln, f.title, e.widthPx, cfg.AlignTitle, cfg.MarginLeft, cfg.MarginRight)
		drawText(img, f.title, ln, x, y)
		y += lhTitle
	}

	if len(titleLines) > 0 {
		if cfg.RuleAfterTitle {
			y += cfg.RulePad
			rule := image.Rect(cfg.MarginLeft, y, e.widthPx-cfg.MarginRight, y+cfg.RulePx)
			draw.Draw(img, rule, image.Black, image.Point{}, draw.Src)
			y += cfg.RulePx + cfg.RulePad
		} else {
			y += cfg.GapTitleText
		}
	}

	if senderLine != "" {
		x := xForAlign(senderLine, f.time, e.widthPx, cfg.AlignTime, cfg.MarginLeft, cfg.MarginRight)
		drawText(img, f.time, senderLine, x, y)
		y += lhTime
	}

	if timeLine != "" {
		x := xForAlign(timeLine, f.time, e.widthPx, cfg.AlignTime, cfg.MarginLeft, cfg.MarginRight)
		drawText(img, f.time, timeLine, x, y)
		y += lhTime
	}

	for _, ln := range body {
		x := xForAlign(ln, f.text, e.widthPx, cfg.AlignText, cfg.MarginLeft, cfg.MarginRight)
		drawText(img, f.text, ln, x, y)
		y += lhText
	}

	return img
}

// wrap greedily packs words into lines no wider than maxPx. A single word
// wider than the limit occupies its own overflowing line.
func wrap(text string, face font.Face, maxPx int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := make([]string, 0, 1)
	cur := words[0]
	for _, w := range words[1:] {
		t := cur + " " + w
		if textWidth(t, face) <= maxPx {
			cur = t
		} else {
			lines = append(lines, cur)
			cur = w
		}
	}
	return append(lines, cur)
}

func xForAlign(text string, face font.Face, width int, align string, ml, mr int) int {
	usable := width - ml - mr
	tl := textWidth(text, face)
	switch align {
	case "center":
		pad := (usable - tl) / 2
		if pad < 0 {
			pad = 0
		}
		return ml + pad
	case "right":
		return width - mr - tl
	default:
		return ml
	}
}

func drawText(dst draw.Image, face font.Face, s string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// timeString composes the timestamp line: fixed date, optional minutes and
// seconds, optional literal prefix.
func (e *Engine) timeString(cfg config.Receipt) string {
	layout := "2006-01-02 15"
	if cfg.TimeShowMinutes || cfg.TimeShowSeconds {
		layout += ":04"
	}
	if cfg.TimeShowSeconds {
		layout += ":05"
	}
	s := e.now().In(e.tz).Format(layout)
	return strings.TrimSpace(cfg.TimePrefix + s)
}
