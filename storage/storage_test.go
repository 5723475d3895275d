package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "results"))

	require.NoError(t, s.Put(ctx, "run1/fetch_scores.json", []byte(`{"a":1}`)))

	data, err := s.Get(ctx, "run1/fetch_scores.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = s.Get(ctx, "missing.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "")
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.Equal(t, filepath.Join(dir, "x.json"), s.Location("x.json"))

	s, err = Open("s3://results-bucket/evals/2026", "us-east-1")
	require.NoError(t, err)
	require.IsType(t, &S3Store{}, s)
	assert.Equal(t, "s3://results-bucket/evals/2026/x.json", s.Location("x.json"))

	_, err = Open("s3:///nobucket", "us-east-1")
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in, loc, name string
	}{
		{"out/fetch_scores.json", "out", "fetch_scores.json"},
		{"fetch_scores.json", ".", "fetch_scores.json"},
		{"s3://bucket/evals/fetch_scores.json", "s3://bucket/evals", "fetch_scores.json"},
		{"s3://bucket/fetch_scores.json", "s3://bucket", "fetch_scores.json"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, name := Split(tt.in)
			assert.Equal(t, tt.loc, loc)
			assert.Equal(t, tt.name, name)
		})
	}
}
