// Package color derives stable display colors for profiles.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
)

const (
	avatarSaturation = 0.45
	avatarLightness  = 0.6
)

// ForUID returns a "#RRGGBB" color that is the same for a uid on every
// device. An empty uid gets neutral gray.
func ForUID(uid string) string {
	if uid == "" {
		return hex(hsl(0, 0, avatarLightness))
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(uid))
	hue := float64(h.Sum32() % 360)
	return hex(hsl(hue, avatarSaturation, avatarLightness))
}

func hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hsl converts hue (degrees), saturation and lightness (0..1) to RGB
// using the chroma form of the conversion.
func hsl(hue, s, l float64) (r, g, b uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	hp := hue / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r1, g1, b1 float64
	switch {
	case hp < 1:
		r1, g1 = c, x
	case hp < 2:
		r1, g1 = x, c
	case hp < 3:
		g1, b1 = c, x
	case hp < 4:
		g1, b1 = x, c
	case hp < 5:
		r1, b1 = x, c
	default:
		r1, b1 = c, x
	}

	m := l - c/2
	scale := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return scale(r1), scale(g1), scale(b1)
}
