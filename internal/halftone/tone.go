package halftone

import (
	"image"
	"math"

	"github.com/printhaus/receiptd/internal/config"
)

const neutralEps = 1e-3

// ApplyTone runs the tone pipeline on a grayscale image, in order: optional
// invert, gamma, brightness, contrast. Stages at their neutral default are
// skipped. Returns a new image; the input is not mutated.
func ApplyTone(src *image.Gray, cfg config.Receipt) *image.Gray {
	out := image.NewGray(src.Bounds())
	copy(out.Pix, src.Pix)

	if cfg.Invert {
		applyLUT(out, invertLUT())
	}
	if math.Abs(cfg.Gamma-1.0) > neutralEps {
		applyLUT(out, gammaLUT(cfg.Gamma))
	}
	if math.Abs(cfg.Brightness-1.0) > neutralEps {
		applyLUT(out, brightnessLUT(cfg.Brightness))
	}
	if math.Abs(cfg.Contrast-1.0) > neutralEps {
		applyLUT(out, contrastLUT(cfg.Contrast))
	}
	return out
}

func applyLUT(img *image.Gray, lut [256]uint8) {
	for i, p := range img.Pix {
		img.Pix[i] = lut[p]
	}
}

func invertLUT() [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(255 - i)
	}
	return lut
}

func gammaLUT(gamma float64) [256]uint8 {
	if gamma < 1e-6 {
		gamma = 1e-6
	}
	invG := 1.0 / gamma
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp255(math.Pow(float64(i)/255.0, invG)*255 + 0.5)
	}
	return lut
}

func brightnessLUT(brightness float64) [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp255(float64(i) * brightness)
	}
	return lut
}

func contrastLUT(contrast float64) [256]uint8 {
	const mid = 127.5
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp255((float64(i)-mid)*contrast + mid)
	}
	return lut
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
