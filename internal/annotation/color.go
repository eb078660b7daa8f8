package annotation

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ELITR/alignmeet/internal/model"
)

const hueStep = 37

// Color is an HSV color with hue in [0, 360) and saturation and value in
// [0, 255].
type Color struct {
	H, S, V int
}

// ColorAt returns the color of the minute at position i.
func ColorAt(i int) Color {
	return Color{H: (hueStep * i) % 360, S: 150, V: 250}
}

// MinuteColor returns the color of m and false if m is not in the document.
func (d *Document) MinuteColor(m *model.Minute) (Color, bool) {
	i := d.Position(m)
	if i < 0 {
		return Color{}, false
	}
	return ColorAt(i), true
}

// Hex renders the color as "#rrggbb".
func (c Color) Hex() string {
	return colorful.Hsv(float64(c.H), float64(c.S)/255, float64(c.V)/255).Clamped().Hex()
}
