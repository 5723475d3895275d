package render

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/nvr-ai/vision-eval/common"
	"gocv.io/x/gocv"
)

const (
	// BoxScale shrinks drawn boxes around their center so crowded scenes stay readable.
	BoxScale  = 0.5
	dotRadius = 6
	// headerHeight is the filled band drawn above each box for its label.
	headerHeight = 20

	counterOrigin = 25
	counterWidth  = 260
	counterTitleY = 30
	counterRowY   = 25
)

// DrawAnnotatedDot marks the center of a detection with a filled circle.
func DrawAnnotatedDot(img *gocv.Mat, d common.Detection, c color.RGBA) {
	gocv.Circle(img, d.Center(), dotRadius, c, -1)
}

// DrawAnnotatedBox draws a detection as a half scale outline with a filled label header and
// a center dot.
func DrawAnnotatedBox(img *gocv.Mat, d common.Detection, c color.RGBA, font Font) {
	ulc := d.ULC(BoxScale, 0, 0)
	lrc := d.LRC(BoxScale, 0, 0)
	gocv.Rectangle(img, image.Rectangle{Min: ulc, Max: lrc}, c, 1)

	header := image.Rectangle{Min: d.ULC(BoxScale, 0, -headerHeight), Max: d.URC(BoxScale, 0, 0)}
	gocv.Rectangle(img, header.Canon(), c, -1)

	DrawAnnotatedDot(img, d, c)

	gocv.PutTextWithParams(img, d.Label, d.ULC(BoxScale, 4, -10),
		font.Face, font.Scale, font.Color, font.Thickness, font.LineType, false)
}

// AnnotateDetections draws every detection with the color of its class. Classes missing from
// colors are drawn white.
func AnnotateDetections(img *gocv.Mat, dets []common.Detection, colors map[string]color.RGBA) {
	font := LabelFont()
	for _, d := range dets {
		c, ok := colors[d.Label]
		if !ok {
			c = White
		}
		DrawAnnotatedBox(img, d, c, font)
	}
}

// CountLabels tallies detections per label, for DrawCounterBox.
func CountLabels(dets []common.Detection) map[string]int {
	counts := make(map[string]int)
	for _, d := range dets {
		counts[d.Label]++
	}
	return counts
}

// DrawCounterBox shades a panel in the upper left corner and lists counts in sorted key order.
//
// Arguments:
// - img: The frame, modified in place.
// - title: Header line of the panel.
// - counts: Value per key.
// - colors: Text color per key, white when missing.
func DrawCounterBox(img *gocv.Mat, title string, counts map[string]int, colors map[string]color.RGBA) {
	panel := image.Rect(counterOrigin, counterOrigin,
		counterOrigin+counterWidth, 100+len(counts)*counterRowY)

	overlay := img.Clone()
	defer overlay.Close()

	gocv.Rectangle(&overlay, panel, CounterBoxColor, -1)
	gocv.AddWeighted(overlay, 0.7, *img, 0.3, 0, img)

	tf := TitleFont()
	gocv.PutTextWithParams(img, title, panel.Min.Add(image.Pt(10, counterTitleY)),
		tf.Face, tf.Scale, tf.Color, tf.Thickness, tf.LineType, false)

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cf := CounterFont()
	for i, k := range keys {
		c, ok := colors[k]
		if !ok {
			c = White
		}
		pos := panel.Min.Add(image.Pt(10, counterTitleY+counterRowY*(i+1)))
		gocv.PutTextWithParams(img, fmt.Sprintf("%s : %d", k, counts[k]), pos,
			cf.Face, cf.Scale, c, cf.Thickness, cf.LineType, false)
	}
}
