// Package halftone converts grayscale receipt canvases into print-ready
// bitmaps: tone adjustment, dithering to 1-bit, and encoding for transport.
package halftone

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/printhaus/receiptd/internal/config"
)

// ToBilevel runs the tone stage and the configured dither mode. Unknown
// dither names fall back to floyd, matching long-standing behavior printers
// were tuned against.
func ToBilevel(src *image.Gray, cfg config.Receipt) *image.Gray {
	toned := ApplyTone(src, cfg)

	switch cfg.Dither {
	case "none", "threshold":
		return Threshold(toned, cfg.Threshold)
	case "bayer":
		return Bayer(toned)
	default: // "floyd" and anything unrecognized
		return FloydSteinberg(toned)
	}
}

// Encode produces the transport payload for a canvas: 1-bit (or, when
// grayscale passthrough is enabled, tone-adjusted grayscale) PNG, base64
// encoded. Pure function of pixels and config.
func Encode(src *image.Gray, cfg config.Receipt) (string, error) {
	var out *image.Gray
	if cfg.GrayscalePNG {
		out = ApplyTone(src, cfg)
	} else {
		out = ToBilevel(src, cfg)
	}
	return EncodeBase64PNG(out)
}

// EncodeBase64PNG serializes an image as base64-encoded PNG.
func EncodeBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBase64PNG is the inverse of EncodeBase64PNG.
func DecodeBase64PNG(b64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(raw))
}
