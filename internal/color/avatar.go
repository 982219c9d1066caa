// Package color derives stable display colors from identifiers.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Avatar tone, tuned for white initials on top.
const (
	avatarSaturation = 0.45
	avatarLightness  = 0.55
)

// ForProfile returns a hex color for the avatar of the given profile id.
// The same id always yields the same color.
func ForProfile(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	hue := float64(h.Sum32() % 360)

	r, g, b := fromHSL(hue, avatarSaturation, avatarLightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// fromHSL converts hue in degrees and saturation/lightness in [0,1] to RGB.
func fromHSL(hue, s, l float64) (r, g, b uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(hue/60, 2)-1))
	m := l - c/2

	var r1, g1, b1 float64
	switch {
	case hue < 60:
		r1, g1, b1 = c, x, 0
	case hue < 120:
		r1, g1, b1 = x, c, 0
	case hue < 180:
		r1, g1, b1 = 0, c, x
	case hue < 240:
		r1, g1, b1 = 0, x, c
	case hue < 300:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to8(r1), to8(g1), to8(b1)
}
