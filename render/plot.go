package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/nvr-ai/vision-eval/metrics"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"
)

const (
	plotCell   = 64
	plotMargin = 130
	plotTitleH = 40
)

var (
	heatLow  = color.RGBA{R: 247, G: 251, B: 255, A: 255}
	heatHigh = color.RGBA{R: 8, G: 48, B: 107, A: 255}
)

// PlotOptions controls PlotConfusionMatrix.
type PlotOptions struct {
	Title string
	// Normalize divides each row by its sum so cells show recall per true label.
	Normalize bool
}

// PlotConfusionMatrix draws the report matrix as a heatmap with true labels on the rows and
// predicted labels on the columns.
func PlotConfusionMatrix(r *metrics.Report, opts PlotOptions) image.Image {
	names := r.LabelNames()
	n := len(names)
	if opts.Title == "" {
		opts.Title = "confusion matrix"
	}

	size := plotMargin + n*plotCell + 20
	dc := gg.NewContext(size, size+plotTitleH)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(White)
	dc.Clear()

	dc.SetColor(Black)
	dc.DrawStringAnchored(opts.Title, float64(size)/2, plotTitleH/2, 0.5, 0.5)

	values := r.Normalized
	if !opts.Normalize {
		values = counts(r.Matrix)
	}
	peak := 0.0
	for _, row := range values {
		for _, v := range row {
			if v > peak {
				peak = v
			}
		}
	}

	top := float64(plotTitleH)
	left := float64(plotMargin)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := values[i][j]
			t := 0.0
			if peak > 0 {
				t = v / peak
			}

			x := left + float64(j*plotCell)
			y := top + float64(i*plotCell)
			dc.SetColor(lerp(heatLow, heatHigh, t))
			dc.DrawRectangle(x, y, plotCell, plotCell)
			dc.Fill()

			text := fmt.Sprintf("%d", r.Matrix[i][j])
			if opts.Normalize {
				text = fmt.Sprintf("%.2f", v)
			}
			if t > 0.5 {
				dc.SetColor(White)
			} else {
				dc.SetColor(Black)
			}
			dc.DrawStringAnchored(text, x+plotCell/2, y+plotCell/2, 0.5, 0.5)
		}
	}

	dc.SetColor(Black)
	for i, name := range names {
		// row labels
		dc.DrawStringAnchored(name, left-8, top+float64(i*plotCell)+plotCell/2, 1, 0.5)

		// column labels, rotated below the grid
		cx := left + float64(i*plotCell) + plotCell/2
		cy := top + float64(n*plotCell) + 8
		dc.Push()
		dc.RotateAbout(gg.Radians(-45), cx, cy)
		dc.DrawStringAnchored(name, cx, cy, 1, 0.5)
		dc.Pop()
	}

	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 14, top+float64(n*plotCell)/2)
	dc.DrawStringAnchored("True label", 14, top+float64(n*plotCell)/2, 0.5, 0.5)
	dc.Pop()
	dc.DrawStringAnchored("Predicted label", left+float64(n*plotCell)/2, float64(size+plotTitleH)-12, 0.5, 0.5)

	return dc.Image()
}

// EncodeConfusionMatrixPNG plots the report and encodes it as PNG.
func EncodeConfusionMatrixPNG(r *metrics.Report, opts PlotOptions) ([]byte, error) {
	img := PlotConfusionMatrix(r, opts)
	dc := gg.NewContextForImage(img)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encode plot")
	}
	return buf.Bytes(), nil
}

func counts(m [][]int) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
