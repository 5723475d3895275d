// Package vision - Client for the vision inference API.
package vision

import (
	"bytes"
	"math"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/nvr-ai/vision-eval/common"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultSuccess is the result field of an accepted request.
const ResultSuccess = "success"

// Response is the body returned by the API for one uploaded image.
//
// Example classification body:
//
//	{"classified": {"No Nest": "0.95683"}, "result": "success", "imageMd5": "0acfd6f5...",
//	 "imageUrl": "http://.../uploads/temp/8f80467f/18c20462.jpg", "webAPIId": "8f80467f"}
type Response struct {
	Classified Classified `json:"classified"`
	Result     string     `json:"result"`
	ImageMD5   string     `json:"imageMd5,omitempty"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	WebAPIID   string     `json:"webAPIId,omitempty"`
}

// OK reports whether the API accepted the request.
func (r *Response) OK() bool {
	return r.Result == ResultSuccess
}

// Rescale maps detections predicted on a downscaled upload back to the original frame.
func (r *Response) Rescale(wratio, hratio float64) {
	if wratio == 1 && hratio == 1 {
		return
	}
	for i, d := range r.Classified.Boxes {
		r.Classified.Boxes[i] = d.Scale(wratio, hratio, 0)
	}
}

// Classified holds either the class confidences of a classification model or the boxes of an
// object detection model. Exactly one of the two is non-nil after decoding.
type Classified struct {
	Classes map[string]float64
	Boxes   []common.Detection
}

// IsClassification reports whether the payload was a class to confidence object.
func (c Classified) IsClassification() bool {
	return c.Classes != nil
}

// Top returns the class with the highest confidence. Ties resolve to the lexicographically
// smallest class name.
//
// Returns:
// - string: The class name.
// - bool: False when no class was returned.
func (c Classified) Top() (string, bool) {
	names := make([]string, 0, len(c.Classes))
	for name := range c.Classes {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)

	best := names[0]
	for _, name := range names[1:] {
		if c.Classes[name] > c.Classes[best] {
			best = name
		}
	}
	return best, true
}

// Labels returns the labels of the detected boxes.
func (c Classified) Labels() []string {
	return common.LabelsOf(c.Boxes)
}

// MarshalJSON writes classes as an object and boxes as an array.
func (c Classified) MarshalJSON() ([]byte, error) {
	if c.Classes != nil {
		return json.Marshal(c.Classes)
	}
	if c.Boxes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Boxes)
}

// flexNumber accepts a JSON number or a string holding one.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Wrapf(err, "number %q", s)
		}
		*n = flexNumber(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

type wireBox struct {
	Label      string     `json:"label"`
	Xmin       flexNumber `json:"xmin"`
	Ymin       flexNumber `json:"ymin"`
	Xmax       flexNumber `json:"xmax"`
	Ymax       flexNumber `json:"ymax"`
	Confidence flexNumber `json:"confidence"`
}

func (w wireBox) detection() common.Detection {
	return common.NewDetection(w.Label,
		int(math.Trunc(float64(w.Xmin))), int(math.Trunc(float64(w.Ymin))),
		int(math.Trunc(float64(w.Xmax))), int(math.Trunc(float64(w.Ymax))),
		float64(w.Confidence))
}

// UnmarshalJSON decodes either payload shape.
func (c *Classified) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Classified{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '{':
		var raw map[string]flexNumber
		if err := json.Unmarshal(data, &raw); err != nil {
			return errors.Wrap(err, "decode classes")
		}
		c.Classes = make(map[string]float64, len(raw))
		for k, v := range raw {
			c.Classes[k] = float64(v)
		}
	case '[':
		var raw []wireBox
		if err := json.Unmarshal(data, &raw); err != nil {
			return errors.Wrap(err, "decode boxes")
		}
		c.Boxes = make([]common.Detection, 0, len(raw))
		for _, w := range raw {
			c.Boxes = append(c.Boxes, w.detection())
		}
	default:
		return errors.Errorf("unexpected classified payload %.20q", data)
	}
	return nil
}
