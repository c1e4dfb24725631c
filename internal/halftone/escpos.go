package halftone

import "image"

// Raster converts an image to ESC/POS raster format (GS v 0). Width is
// trimmed down to a multiple of 8 as the format requires.
func Raster(img image.Image) []byte {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// ESC/POS width must be divisible by 8
	if width%8 != 0 {
		width = width - (width % 8)
	}

	rowBytes := width / 8
	raster := make([]byte, rowBytes*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray := (r + g + b) / 3

			if gray < 0x8000 { // black
				byteIndex := y*rowBytes + x/8
				raster[byteIndex] |= 1 << (7 - uint(x%8))
			}
		}
	}

	// ESC/POS header: GS v 0
	header := []byte{
		0x1D, 0x76, 0x30, 0x00,
		byte(rowBytes), byte(rowBytes >> 8),
		byte(height), byte(height >> 8),
	}

	return append(header, raster...)
}

// PrintJobBytes builds a complete ESC/POS job: initialize, raster image,
// feed, and an optional partial cut.
func PrintJobBytes(img image.Image, cut bool) []byte {
	var job []byte
	job = append(job, 0x1B, 0x40) // ESC @ - initialize
	job = append(job, Raster(img)...)
	job = append(job, 0x1B, 0x64, 0x03) // ESC d 3 - feed 3 lines
	if cut {
		job = append(job, 0x1D, 0x56, 0x41, 0x00) // GS V A 0 - partial cut
	}
	return job
}
