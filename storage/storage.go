// Package storage - Where prediction results and plots are written.
package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Store reads and writes whole objects by name.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// Location returns a human readable address of name, for logs.
	Location(name string) string
}

// Open returns the store for a location.
//
// Arguments:
// - location: "s3://bucket/prefix" for S3, anything else is a local directory.
// - region: AWS region, used for S3 only.
//
// Returns:
// - Store: The store.
// - error: If the location cannot be parsed or the S3 session cannot be created.
func Open(location, region string) (Store, error) {
	if strings.HasPrefix(location, "s3://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", location)
		}
		if u.Host == "" {
			return nil, errors.Errorf("missing bucket in %s", location)
		}
		return NewS3Store(u.Host, strings.Trim(u.Path, "/"), region)
	}

	if location == "" {
		location = "."
	}
	return NewFileStore(location), nil
}

// Split separates a result path into the store location and the object name.
func Split(path string) (location, name string) {
	if strings.HasPrefix(path, "s3://") {
		i := strings.LastIndex(path, "/")
		if i < len("s3://") {
			return path, ""
		}
		return path[:i], path[i+1:]
	}
	return filepath.Dir(path), filepath.Base(path)
}

// FileStore keeps objects as files under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir. The directory is created on first Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Put writes data to root/name, creating parent directories.
func (s *FileStore) Put(_ context.Context, name string, data []byte) error {
	p := s.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(p))
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", p)
	}
	return nil
}

// Get reads root/name.
func (s *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%s", s.path(name))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path(name))
	}
	return data, nil
}

// Location returns the file path of name.
func (s *FileStore) Location(name string) string {
	return s.path(name)
}
