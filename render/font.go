package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
}

// LabelFont is the small dark font written in box headers.
func LabelFont() Font {
	return Font{
		Face:      gocv.FontHersheyComplexSmall,
		Scale:     0.35,
		Color:     Black,
		Thickness: 1,
		LineType:  gocv.LineAA,
	}
}

// TitleFont is used for the counter panel title.
func TitleFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.7,
		Color:     White,
		Thickness: 2,
		LineType:  gocv.LineAA,
	}
}

// CounterFont is used for the counter panel rows; Color is replaced per class.
func CounterFont() Font {
	f := TitleFont()
	f.Scale = 0.6
	return f
}
