package render

import (
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Ordered fallback candidates tried when the configured font cannot be
// loaded. The final fallback is the built-in bitmap face, so resolution
// never fails outright.
var fallbackFonts = []string{
	"DejaVuSans.ttf",
	"DejaVuSans-Bold.ttf",
	"Arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
}

// ResolveFace loads the requested font at the given point size, walking the
// fallback chain on failure. Wrapping and height math must use the face that
// actually resolved, since fallback metrics differ.
func ResolveFace(pathOrName string, size int) font.Face {
	if f := loadFace(pathOrName, size); f != nil {
		return f
	}
	for _, cand := range fallbackFonts {
		if f := loadFace(cand, size); f != nil {
			return f
		}
	}
	return basicfont.Face7x13
}

func loadFace(path string, size int) font.Face {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	ft, err := opentype.Parse(data)
	if err != nil {
		return nil
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}
	return face
}

func textWidth(s string, face font.Face) int {
	return font.MeasureString(face, s).Ceil()
}

func lineHeight(face font.Face, mult float64) int {
	m := face.Metrics()
	h := int(float64((m.Ascent + m.Descent).Ceil()) * mult)
	if h < 1 {
		h = 1
	}
	return h
}
