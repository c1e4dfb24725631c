package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
)

// ToGray converts any image to 8-bit grayscale.
func ToGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// ResizeToWidth scales an image to the target width, keeping aspect ratio.
// Nearest-neighbour is plenty for 1-bit thermal output.
func ResizeToWidth(src image.Image, targetWidth int) *image.Gray {
	g := ToGray(src)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == targetWidth || w == 0 {
		return g
	}

	scale := float64(targetWidth) / float64(w)
	newHeight := int(float64(h) * scale)
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewGray(image.Rect(0, 0, targetWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		sy := int(float64(y) / scale)
		for x := 0; x < targetWidth; x++ {
			sx := int(float64(x) / scale)
			dst.SetGray(x, y, color.Gray{Y: g.GrayAt(sx, sy).Y})
		}
	}
	return dst
}

// ComposeWithHeader stacks a rendered header (title, optional subtitle,
// optional sender) above an arbitrary image rescaled to printer width.
func (e *Engine) ComposeWithHeader(src image.Image, cfg config.Receipt, title, subtitle, senderName string) *image.Gray {
	body := ResizeToWidth(src, e.widthPx)

	var lines []string
	if subtitle != "" {
		lines = []string{subtitle}
	}
	head := e.Render(model.RenderRequest{
		Title:      title,
		Lines:      lines,
		SenderName: senderName,
	}, cfg)

	hh := head.Bounds().Dy()
	bh := body.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, e.widthPx, hh+bh))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, e.widthPx, hh), head, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, hh, e.widthPx, hh+bh), body, image.Point{}, draw.Src)
	return out
}
