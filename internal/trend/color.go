package trend

import (
	"fmt"
	"image/color"
	"math"
)

// Hue maps a series key to a stable hue in [0, 360). The hash is the
// JavaScript-style 31-multiplier string hash with two's-complement 32-bit
// wraparound, so the same key always lands on the same hue regardless of
// which renderer asks.
func Hue(key string) int {
	var h int32
	for _, r := range key {
		h = int32(r) + (h<<5 - h)
	}
	hue := int(h % 360)
	if hue < 0 {
		hue += 360
	}
	return hue
}

// KeyColor returns the series color at the fixed 70% saturation / 50%
// lightness used by every chart surface.
func KeyColor(key string) color.RGBA {
	return HSLToRGBA(float64(Hue(key)), 0.70, 0.50)
}

// CSSColor renders the series color the way the browser charts express it.
func CSSColor(key string) string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", Hue(key))
}

// HSLToRGBA converts hue (degrees), saturation and lightness (0..1) to an
// opaque RGBA color.
func HSLToRGBA(h, s, l float64) color.RGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}
