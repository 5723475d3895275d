// Package dataset - Ground truth loaded from exported vision datasets.
package dataset

import (
	"os"
	"sort"
	"strings"

	"github.com/nvr-ai/vision-eval/common"
	"github.com/nvr-ai/vision-eval/images"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDatasetNotFound is returned when the dataset directory does not exist.
	ErrDatasetNotFound = errors.New("dataset directory not found")
	// ErrMissingSample is returned when a key has no ground truth.
	ErrMissingSample = errors.New("no ground truth for key")
	// ErrInvalidCategory is returned for a manifest category that cannot name a directory.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidMode is returned for a validation mode other than object or classification.
	ErrInvalidMode = errors.New("invalid validation mode")
)

// Mode selects how ground truth is read and how predictions are aligned against it.
type Mode string

const (
	// ModeObject is object detection: Pascal VOC annotations, many labels per image.
	ModeObject Mode = "object"
	// ModeClassification is whole-image classification: prop.json, one label per image.
	ModeClassification Mode = "classification"
)

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeObject, ModeClassification:
		return m, nil
	default:
		return "", errors.Wrapf(ErrInvalidMode, "%q", s)
	}
}

// Sample is the ground truth for one image.
type Sample struct {
	// Identifier of the image in the export, the image file name without extension.
	ID string `json:"id"`
	// Pixel checksum shared with the prediction results.
	Key string `json:"key"`
	// Resolved image file.
	ImagePath string `json:"imagePath"`
	// Object mode annotations.
	Boxes []common.Detection `json:"boxes,omitempty"`
	// Classification mode category.
	Class string `json:"class,omitempty"`
}

// Hasher computes the sample key of an image file.
type Hasher func(path string) (string, error)

// Options tune Load.
type Options struct {
	// Hasher defaults to images.HashFile.
	Hasher Hasher
	// Log defaults to the standard logrus logger.
	Log logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Hasher == nil {
		o.Hasher = images.HashFile
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return o
}

// Dataset is the ground truth of an exported directory indexed by sample key.
type Dataset struct {
	Dir     string
	Mode    Mode
	Samples map[string]*Sample
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Samples)
}

// Keys returns the sample keys in ascending order.
func (d *Dataset) Keys() []string {
	keys := make([]string, 0, len(d.Samples))
	for k := range d.Samples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the sample stored under key.
//
// Arguments:
// - key: The pixel checksum of the image.
//
// Returns:
// - *Sample: The ground truth.
// - error: ErrMissingSample naming the key when absent.
func (d *Dataset) Lookup(key string) (*Sample, error) {
	s, ok := d.Samples[key]
	if !ok {
		return nil, errors.Wrapf(ErrMissingSample, "%s", key)
	}
	return s, nil
}

// Load reads the ground truth of an exported dataset directory.
//
// Arguments:
// - dir: The export directory.
// - mode: ModeObject reads *.xml annotations, ModeClassification reads prop.json.
// - opts: Hasher and logger overrides.
//
// Returns:
// - *Dataset: Samples keyed by pixel checksum.
// - error: ErrDatasetNotFound, ErrInvalidMode or a parse error.
func Load(dir string, mode Mode, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.Wrapf(ErrDatasetNotFound, "%s", dir)
	}

	ds := &Dataset{Dir: dir, Mode: mode, Samples: make(map[string]*Sample)}

	switch mode {
	case ModeObject:
		err = loadObject(ds, opts)
	case ModeClassification:
		err = loadClassification(ds, opts)
	default:
		return nil, errors.Wrapf(ErrInvalidMode, "%q", mode)
	}
	if err != nil {
		return nil, err
	}

	opts.Log.WithFields(logrus.Fields{
		"dir":     dir,
		"mode":    mode,
		"samples": ds.Len(),
	}).Info("dataset loaded")

	return ds, nil
}

func (d *Dataset) add(s *Sample, log logrus.FieldLogger) {
	if prev, ok := d.Samples[s.Key]; ok {
		log.WithFields(logrus.Fields{
			"key":      s.Key,
			"previous": prev.ID,
			"current":  s.ID,
		}).Warn("identical image pixels, keeping the later sample")
	}
	d.Samples[s.Key] = s
}
