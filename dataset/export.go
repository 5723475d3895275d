package dataset

import (
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/nvr-ai/vision-eval/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PropFile is the name of the classification export manifest.
const PropFile = "prop.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileClass assigns a category to one exported image.
type FileClass struct {
	ID       string `json:"_id"`
	Category string `json:"category_name"`
}

type propManifest struct {
	FileProps jsoniter.RawMessage `json:"file_prop_info"`
}

// ReadProps parses the file to category list of a classification export.
//
// The exporter stores file_prop_info as a JSON encoded string; a plain array is accepted too.
//
// Arguments:
// - dir: The export directory containing prop.json.
//
// Returns:
// - []FileClass: One entry per exported image.
// - error: If prop.json is missing or malformed.
func ReadProps(dir string) ([]FileClass, error) {
	path := filepath.Join(dir, PropFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var manifest propManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(manifest.FileProps) == 0 {
		return nil, errors.Errorf("%s: missing file_prop_info", path)
	}

	raw := []byte(manifest.FileProps)
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, errors.Wrapf(err, "parse %s file_prop_info", path)
		}
		raw = []byte(encoded)
	}

	var classes []FileClass
	if err := json.Unmarshal(raw, &classes); err != nil {
		return nil, errors.Wrapf(err, "parse %s file_prop_info", path)
	}

	return classes, nil
}

func loadClassification(ds *Dataset, opts Options) error {
	classes, err := ReadProps(ds.Dir)
	if err != nil {
		return err
	}

	for _, fc := range classes {
		if strings.TrimSpace(fc.Category) == "" {
			return errors.Wrapf(ErrInvalidCategory, "%s: image %s has no category", PropFile, fc.ID)
		}

		image, ok := util.FindImageFile(ds.Dir, fc.ID)
		if !ok {
			opts.Log.WithField("id", fc.ID).Debug("no image file, skipping")
			continue
		}

		key, err := opts.Hasher(image)
		if err != nil {
			return errors.Wrapf(err, "hash %s", image)
		}

		ds.add(&Sample{ID: fc.ID, Key: key, ImagePath: image, Class: fc.Category}, opts.Log)
	}

	return nil
}

// checkCategoryDir rejects categories that are not a single directory name inside the output.
func checkCategoryDir(fc FileClass) error {
	c := fc.Category
	if strings.TrimSpace(c) == "" {
		return errors.Wrapf(ErrInvalidCategory, "%s: image %s has no category", PropFile, fc.ID)
	}
	if c == "." || c == ".." || !filepath.IsLocal(c) || strings.ContainsAny(c, `/\`) {
		return errors.Wrapf(ErrInvalidCategory, "%s: image %s has category %q", PropFile, fc.ID, c)
	}
	return nil
}

// Reorganize copies a classification export into one sub-directory per category.
//
// Arguments:
// - in: The export directory containing prop.json.
// - out: The destination; out/<category>/<image file> is created for each image found.
// - log: Receives one line per category.
//
// Returns:
// - map[string]int: The number of images copied per category.
// - error: If the export cannot be read, a category is not a plain directory name
//   (ErrInvalidCategory) or a copy fails.
func Reorganize(in, out string, log logrus.FieldLogger) (map[string]int, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if info, err := os.Stat(in); err != nil || !info.IsDir() {
		return nil, errors.Wrapf(ErrDatasetNotFound, "%s", in)
	}

	classes, err := ReadProps(in)
	if err != nil {
		return nil, err
	}

	// Every category is checked before anything is copied.
	for _, fc := range classes {
		if err := checkCategoryDir(fc); err != nil {
			return nil, err
		}
	}

	counts := make(map[string]int)
	for _, fc := range classes {
		src, ok := util.FindImageFile(in, fc.ID)
		if !ok {
			log.WithField("id", fc.ID).Warn("no image file, skipping")
			continue
		}

		dst := filepath.Join(out, fc.Category, filepath.Base(src))
		if err := util.CopyFile(src, dst); err != nil {
			return counts, errors.Wrapf(err, "copy %s", fc.ID)
		}
		counts[fc.Category]++
	}

	for category, n := range counts {
		log.WithFields(logrus.Fields{"category": category, "images": n}).Info("reorganized")
	}

	return counts, nil
}
