// Package render - Draws annotations on frames and plots confusion matrices.
package render

import (
	"image/color"
	"math/rand"
	"sort"

	"github.com/chewxy/math32"
)

// ColorSeed fixes the palette order so a class keeps its color across runs.
const ColorSeed = 10101

var (
	// Black is used for plot text on light cells.
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	// White is the fallback class color and the plot background.
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	// CounterBoxColor shades the counter panel grey.
	CounterBoxColor = color.RGBA{R: 160, G: 160, B: 180, A: 255}
)

// GenerateColors returns n fully saturated colors evenly spaced around the hue wheel,
// shuffled with ColorSeed so neighbouring classes do not get neighbouring hues.
func GenerateColors(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}

	colors := make([]color.RGBA, n)
	for i := range colors {
		colors[i] = hsvToRGB(float32(i)/float32(n), 1, 1)
	}

	rng := rand.New(rand.NewSource(ColorSeed))
	rng.Shuffle(len(colors), func(i, j int) {
		colors[i], colors[j] = colors[j], colors[i]
	})

	return colors
}

// ColorMap assigns a color to each distinct class, in sorted class order.
func ColorMap(classes []string) map[string]color.RGBA {
	uniq := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		uniq[c] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for c := range uniq {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	palette := GenerateColors(len(sorted))
	out := make(map[string]color.RGBA, len(sorted))
	for i, c := range sorted {
		out[c] = palette[i]
	}
	return out
}

// hsvToRGB converts hue, saturation and value in [0, 1] to an opaque color.
func hsvToRGB(h, s, v float32) color.RGBA {
	if s == 0 {
		c := uint8(v * 255)
		return color.RGBA{R: c, G: c, B: c, A: 255}
	}

	sector := math32.Floor(h * 6)
	f := h*6 - sector
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float32
	switch int(sector) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
