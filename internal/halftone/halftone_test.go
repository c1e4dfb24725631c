package halftone_test

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/halftone"
)

// gradient returns a 64x64 left-to-right ramp from black to white.
func gradient() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Pix[y*64+x] = uint8(x * 4)
		}
	}
	return img
}

func uniform(v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func assertBilevel(t *testing.T, img *image.Gray) {
	t.Helper()
	for _, p := range img.Pix {
		require.True(t, p == 0 || p == 255, "pixel %d is not bilevel", p)
	}
}

func TestThresholdCutoff(t *testing.T) {
	out := halftone.Threshold(gradient(), 128)
	assertBilevel(t, out)

	assert.Equal(t, uint8(0), out.Pix[0])    // value 0
	assert.Equal(t, uint8(0), out.Pix[31])   // value 124
	assert.Equal(t, uint8(255), out.Pix[32]) // value 128
	assert.Equal(t, uint8(255), out.Pix[63]) // value 252
}

func TestFloydSteinbergDeterministic(t *testing.T) {
	a := halftone.FloydSteinberg(gradient())
	b := halftone.FloydSteinberg(gradient())
	assertBilevel(t, a)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestFloydSteinbergPreservesExtremes(t *testing.T) {
	black := halftone.FloydSteinberg(uniform(0))
	for _, p := range black.Pix {
		require.Equal(t, uint8(0), p)
	}
	white := halftone.FloydSteinberg(uniform(255))
	for _, p := range white.Pix {
		require.Equal(t, uint8(255), p)
	}
}

func TestBayerMidGrayPattern(t *testing.T) {
	out := halftone.Bayer(uniform(128))
	assertBilevel(t, out)

	// Mid gray through the ordered matrix yields a mix, not a solid fill.
	var black, white int
	for _, p := range out.Pix {
		if p == 0 {
			black++
		} else {
			white++
		}
	}
	assert.NotZero(t, black)
	assert.NotZero(t, white)

	// Position-dependent thresholds repeat every 4 pixels.
	assert.Equal(t, out.Pix[0], out.Pix[4])
	assert.Equal(t, out.Pix[16], out.Pix[20])
}

func TestToBilevelModeSelection(t *testing.T) {
	cfg := config.DefaultReceipt()
	src := gradient()

	cfg.Dither = "threshold"
	assert.Equal(t, halftone.Threshold(src, cfg.Threshold).Pix, halftone.ToBilevel(src, cfg).Pix)

	cfg.Dither = "none"
	assert.Equal(t, halftone.Threshold(src, cfg.Threshold).Pix, halftone.ToBilevel(src, cfg).Pix)

	cfg.Dither = "bayer"
	assert.Equal(t, halftone.Bayer(src).Pix, halftone.ToBilevel(src, cfg).Pix)

	cfg.Dither = "floyd"
	assert.Equal(t, halftone.FloydSteinberg(src).Pix, halftone.ToBilevel(src, cfg).Pix)

	// Unknown dither names fall back to floyd.
	cfg.Dither = "sierra"
	assert.Equal(t, halftone.FloydSteinberg(src).Pix, halftone.ToBilevel(src, cfg).Pix)
}

func TestApplyToneNeutralIsNoop(t *testing.T) {
	cfg := config.DefaultReceipt()
	src := gradient()

	out := halftone.ApplyTone(src, cfg)
	assert.Equal(t, src.Pix, out.Pix)

	// Within epsilon of neutral also skips.
	cfg.Gamma, cfg.Brightness, cfg.Contrast = 1.0005, 0.9995, 1.0009
	out = halftone.ApplyTone(src, cfg)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestApplyToneInvert(t *testing.T) {
	cfg := config.DefaultReceipt()
	cfg.Invert = true

	src := gradient()
	out := halftone.ApplyTone(src, cfg)
	for i, p := range src.Pix {
		require.Equal(t, uint8(255-p), out.Pix[i])
	}
	// Input untouched.
	assert.Equal(t, uint8(0), src.Pix[0])
}

func TestApplyToneBrightness(t *testing.T) {
	cfg := config.DefaultReceipt()
	cfg.Brightness = 2.0

	out := halftone.ApplyTone(uniform(100), cfg)
	for _, p := range out.Pix {
		require.Equal(t, uint8(200), p)
	}

	// Clamped at white.
	out = halftone.ApplyTone(uniform(200), cfg)
	for _, p := range out.Pix {
		require.Equal(t, uint8(255), p)
	}
}

func TestApplyToneContrastPivotsOnMid(t *testing.T) {
	cfg := config.DefaultReceipt()
	cfg.Contrast = 2.0

	out := halftone.ApplyTone(uniform(64), cfg)
	assert.Equal(t, uint8(0), out.Pix[0]) // (64-127.5)*2+127.5 = 0.5

	out = halftone.ApplyTone(uniform(192), cfg)
	assert.Equal(t, uint8(255), out.Pix[0])
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.DefaultReceipt()
	src := gradient()

	b64, err := halftone.Encode(src, cfg)
	require.NoError(t, err)

	img, err := halftone.DecodeBase64PNG(b64)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), img.Bounds())

	// Default path dithers to 1-bit before encoding.
	g, ok := img.(*image.Gray)
	require.True(t, ok)
	assertBilevel(t, g)
}

func TestEncodeGrayscalePassthrough(t *testing.T) {
	cfg := config.DefaultReceipt()
	cfg.GrayscalePNG = true

	src := gradient()
	b64, err := halftone.Encode(src, cfg)
	require.NoError(t, err)

	img, err := halftone.DecodeBase64PNG(b64)
	require.NoError(t, err)
	g, ok := img.(*image.Gray)
	require.True(t, ok)
	// Neutral tone config: pixels survive unchanged.
	assert.Equal(t, src.Pix, g.Pix)
}

func TestRasterHeader(t *testing.T) {
	img := uniform(0) // 16x16, all black
	data := halftone.Raster(img)

	require.GreaterOrEqual(t, len(data), 8)
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00}, data[:4])
	assert.Equal(t, byte(2), data[4])  // 16px / 8 = 2 bytes per row
	assert.Equal(t, byte(16), data[6]) // height
	assert.Len(t, data, 8+2*16)

	for _, b := range data[8:] {
		require.Equal(t, byte(0xFF), b) // all-black rows
	}
}

func TestPrintJobBytes(t *testing.T) {
	img := uniform(255)

	cut := halftone.PrintJobBytes(img, true)
	noCut := halftone.PrintJobBytes(img, false)

	assert.Equal(t, []byte{0x1B, 0x40}, cut[:2])
	assert.Equal(t, []byte{0x1D, 0x56, 0x41, 0x00}, cut[len(cut)-4:])
	assert.Equal(t, len(cut)-4, len(noCut))
}
