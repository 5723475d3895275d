// Package common - Detection records shared by the dataset, client and rendering packages.
package common

import (
	"fmt"
	"image"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrInvalidDetection is returned by Validate when a detection breaks its field constraints.
var ErrInvalidDetection = errors.New("invalid detection")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Detection is a labelled bounding box with a confidence score.
//
// Coordinates are pixels with (Xmin, Ymin) the upper left corner. Ground-truth annotations
// carry a confidence of 1.
type Detection struct {
	Label      string  `json:"label"      validate:"required"`
	Xmin       int     `json:"xmin"       validate:"gte=0"`
	Ymin       int     `json:"ymin"       validate:"gte=0"`
	Xmax       int     `json:"xmax"       validate:"gtefield=Xmin"`
	Ymax       int     `json:"ymax"       validate:"gtefield=Ymin"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// NewDetection creates a detection from its corner coordinates.
func NewDetection(label string, xmin, ymin, xmax, ymax int, confidence float64) Detection {
	return Detection{
		Label:      label,
		Xmin:       xmin,
		Ymin:       ymin,
		Xmax:       xmax,
		Ymax:       ymax,
		Confidence: confidence,
	}
}

// Validate checks the field constraints of the detection.
//
// Returns:
//   - error: ErrInvalidDetection wrapping the validator message, or nil.
func (d Detection) Validate() error {
	if err := validatorInstance().Struct(d); err != nil {
		return errors.Wrapf(ErrInvalidDetection, "%s: %v", d.Label, err)
	}
	return nil
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): (%d, %d), (%d, %d)",
		d.Label, d.Confidence, d.Xmin, d.Ymin, d.Xmax, d.Ymax)
}

// Center returns the integer center of the box.
func (d Detection) Center() image.Point {
	return image.Pt(int(float64(d.Xmin+d.Xmax)/2.0), int(float64(d.Ymin+d.Ymax)/2.0))
}

// UL returns the upper left corner.
func (d Detection) UL() image.Point { return image.Pt(d.Xmin, d.Ymin) }

// LR returns the lower right corner.
func (d Detection) LR() image.Point { return image.Pt(d.Xmax, d.Ymax) }

// UR returns the upper right corner.
func (d Detection) UR() image.Point { return image.Pt(d.Xmax, d.Ymin) }

// ULC returns the upper left corner of the box scaled by sf around its center, then offset.
//
// Arguments:
//   - sf: Scale factor around the center. 1.0 is the box itself, 0.5 is a box half as large.
//   - xoff: Horizontal offset in pixels added after scaling.
//   - yoff: Vertical offset in pixels added after scaling.
//
// Returns:
//   - image.Point: The scaled and offset corner.
//
// Example:
//
// ```go
//
//	d := NewDetection("nest", 0, 0, 100, 100, 1)
//	d.ULC(0.5, 0, -20) // (25, 5)
//
// ```
func (d Detection) ULC(sf float64, xoff, yoff int) image.Point {
	return scaleAround(d.UL(), d.Center(), sf, xoff, yoff)
}

// LRC is ULC for the lower right corner.
func (d Detection) LRC(sf float64, xoff, yoff int) image.Point {
	return scaleAround(d.LR(), d.Center(), sf, xoff, yoff)
}

// URC is ULC for the upper right corner.
func (d Detection) URC(sf float64, xoff, yoff int) image.Point {
	return scaleAround(d.UR(), d.Center(), sf, xoff, yoff)
}

func scaleAround(p, center image.Point, sf float64, xoff, yoff int) image.Point {
	x := int(sf*float64(p.X-center.X)+float64(center.X)) + xoff
	y := int(sf*float64(p.Y-center.Y)+float64(center.Y)) + yoff
	return image.Pt(x, y)
}

// Scale maps a box predicted on a resized image back to the original image.
//
// Arguments:
//   - wratio: Original width divided by the width the prediction was made on.
//   - hratio: Original height divided by the height the prediction was made on.
//   - offsetPx: Vertical offset added after scaling, for letterboxed inputs.
//
// Returns:
//   - Detection: A new detection; the receiver is not modified.
func (d Detection) Scale(wratio, hratio float64, offsetPx int) Detection {
	out := d
	out.Xmin = int(float64(d.Xmin) * wratio)
	out.Xmax = int(float64(d.Xmax) * wratio)
	out.Ymin = int(float64(d.Ymin)*hratio + float64(offsetPx))
	out.Ymax = int(float64(d.Ymax)*hratio + float64(offsetPx))
	return out
}

// LabelsOf extracts the class names of a detection set, preserving order.
func LabelsOf(dets []Detection) []string {
	out := make([]string, len(dets))
	for i, d := range dets {
		out[i] = d.Label
	}
	return out
}
