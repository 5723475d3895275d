package util

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ImageExtensions are the extensions probed, in order, when resolving an image by base name.
var ImageExtensions = []string{".JPG", ".jpg", ".png"}

// FindImageFile resolves an image by its base name, trying each of ImageExtensions.
//
// Arguments:
// - dir: Directory containing the image.
// - base: File name without extension.
//
// Returns:
// - string: The path of the first existing candidate.
// - bool: False if no candidate exists.
func FindImageFile(dir, base string) (string, bool) {
	for _, ext := range ImageExtensions {
		candidate := filepath.Join(dir, base+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// ListFiles returns the regular files of dir with the given extension, sorted by name.
//
// Arguments:
// - dir: Directory to scan, not recursively.
// - ext: Extension including the dot, compared case-insensitively.
//
// Returns:
// - []string: Full paths of the matching files.
// - error: Error if the directory cannot be read.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)

	return files, nil
}

// CopyFile copies src to dst, creating dst's parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s", src)
	}
	return out.Close()
}
