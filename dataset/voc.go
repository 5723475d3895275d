package dataset

import (
	"encoding/xml"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/vision-eval/common"
	"github.com/nvr-ai/vision-eval/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type vocAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename"`
	Objects  []vocObject `xml:"object"`
}

type vocObject struct {
	Name string `xml:"name"`
	Box  vocBox `xml:"bndbox"`
}

type vocBox struct {
	Xmin float64 `xml:"xmin"`
	Ymin float64 `xml:"ymin"`
	Xmax float64 `xml:"xmax"`
	Ymax float64 `xml:"ymax"`
}

// ParseVOC reads the boxes of a Pascal VOC annotation file.
//
// Spaces in class names are replaced with underscores. Boxes with a negative coordinate or an
// inverted extent are dropped with a warning.
//
// Arguments:
// - path: The annotation file.
// - log: Receives a warning per dropped box.
//
// Returns:
// - []common.Detection: The kept boxes with confidence 1.
// - error: If the file is unreadable, malformed or has an object without a name.
func ParseVOC(path string, log logrus.FieldLogger) ([]common.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var ann vocAnnotation
	if err := xml.Unmarshal(data, &ann); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	boxes := make([]common.Detection, 0, len(ann.Objects))
	for i, obj := range ann.Objects {
		name := strings.ReplaceAll(strings.TrimSpace(obj.Name), " ", "_")
		if name == "" {
			return nil, errors.Errorf("%s: object %d has no name", path, i)
		}

		b := obj.Box
		if b.Xmin < 0 || b.Ymin < 0 || b.Xmax < 0 || b.Ymax < 0 {
			log.WithFields(logrus.Fields{"file": path, "label": name}).
				Warn("negative pixel location recorded, omitting box")
			continue
		}

		det := common.NewDetection(name,
			int(math.Trunc(b.Xmin)), int(math.Trunc(b.Ymin)),
			int(math.Trunc(b.Xmax)), int(math.Trunc(b.Ymax)), 1)
		if err := det.Validate(); err != nil {
			log.WithFields(logrus.Fields{"file": path, "label": name, "error": err}).
				Warn("invalid box, omitting")
			continue
		}
		boxes = append(boxes, det)
	}

	return boxes, nil
}

func loadObject(ds *Dataset, opts Options) error {
	files, err := util.ListFiles(ds.Dir, ".xml")
	if err != nil {
		return errors.Wrapf(err, "list %s", ds.Dir)
	}

	for _, f := range files {
		base := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))

		image, ok := util.FindImageFile(ds.Dir, base)
		if !ok {
			opts.Log.WithField("annotation", f).Warn("no image file for annotation, skipping")
			continue
		}

		boxes, err := ParseVOC(f, opts.Log)
		if err != nil {
			return err
		}

		key, err := opts.Hasher(image)
		if err != nil {
			return errors.Wrapf(err, "hash %s", image)
		}

		ds.add(&Sample{ID: base, Key: key, ImagePath: image, Boxes: boxes}, opts.Log)
	}

	return nil
}
