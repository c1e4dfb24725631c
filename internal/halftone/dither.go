package halftone

import "image"

// 4x4 ordered-dither matrix. Position-dependent threshold, so the output is
// deterministic for identical input.
var bayer4 = [4][4]int{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// Threshold produces a black/white image with a hard per-pixel cutoff.
func Threshold(src *image.Gray, threshold int) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(b)
	for i, p := range src.Pix {
		if int(p) < threshold {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 255
		}
	}
	return out
}

// FloydSteinberg performs standard error-diffusion dithering to 1-bit,
// row-major traversal.
func FloydSteinberg(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	buf := make([]float64, w*h)
	for i, p := range src.Pix {
		buf[i] = float64(p)
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			old := buf[i]
			var newVal float64
			if old >= 128 {
				newVal = 255
			}
			out.Pix[i] = uint8(newVal)
			err := old - newVal

			if x+1 < w {
				buf[i+1] += err * 7 / 16
			}
			if y+1 < h {
				if x > 0 {
					buf[i+w-1] += err * 3 / 16
				}
				buf[i+w] += err * 5 / 16
				if x+1 < w {
					buf[i+w+1] += err * 1 / 16
				}
			}
		}
	}
	return out
}

// Bayer applies the 4x4 ordered-dither matrix: a pixel goes black when its
// value is below (matrix[y%4][x%4] + 0.5) * 255/16.
func Bayer(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			thr := (float64(bayer4[y&3][x&3]) + 0.5) * (255.0 / 16.0)
			i := y*w + x
			if float64(src.Pix[i]) < thr {
				out.Pix[i] = 0
			} else {
				out.Pix[i] = 255
			}
		}
	}
	return out
}
