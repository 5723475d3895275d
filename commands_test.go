package main

import (
	"path/filepath"
	"testing"

	"github.com/nvr-ai/vision-eval/common"
	"github.com/nvr-ai/vision-eval/config"
	"github.com/nvr-ai/vision-eval/fetch"
	"github.com/nvr-ai/vision-eval/images"
	"github.com/nvr-ai/vision-eval/storage"
	"github.com/nvr-ai/vision-eval/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateVideoPath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"clip.mp4", false},
		{"clip.MOV", false},
		{"clip.avi", false},
		{"clip.gif", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validateVideoPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenObject(t *testing.T) {
	dir := t.TempDir()
	store, name, err := openObject(config.Default(), filepath.Join(dir, "fetch_scores.json"))
	require.NoError(t, err)
	assert.IsType(t, &storage.FileStore{}, store)
	assert.Equal(t, "fetch_scores.json", name)

	_, _, err = openObject(config.Default(), "s3://bucket")
	assert.Error(t, err)
}

func TestResultClasses(t *testing.T) {
	results := fetch.Results{
		"0": {Classified: vision.Classified{Boxes: []common.Detection{common.NewDetection("car", 0, 0, 1, 1, 1)}}},
		"a": {Classified: vision.Classified{Classes: map[string]float64{"Nest": 1}}},
	}
	assert.ElementsMatch(t, []string{"car", "Nest"}, resultClasses(results))
	assert.Equal(t, 1, countBoxes(results))
}

func TestUploadOptions(t *testing.T) {
	cfg := config.Default()

	opts, err := uploadOptions(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, images.EncodeOptions{}, opts)

	cfg.MaxResolution = "720p"
	opts, err = uploadOptions(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, images.EncodeOptions{MaxWidth: 1280, MaxHeight: 720}, opts)

	cfg.MaxUploadWidth, cfg.MaxUploadHeight = 640, 480
	opts, err = uploadOptions(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, images.EncodeOptions{MaxWidth: 640, MaxHeight: 480}, opts)

	opts, err = uploadOptions(cfg, "1080p")
	require.NoError(t, err)
	assert.Equal(t, images.EncodeOptions{MaxWidth: 1920, MaxHeight: 1080}, opts)

	_, err = uploadOptions(cfg, "huge")
	assert.Error(t, err)
}

func TestOverrideFetch(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		url     string
		want    int
		wantErr bool
	}{
		{name: "no flags", want: 2},
		{name: "workers", workers: 8, want: 8},
		{name: "url", url: "https://vision.example.com/api/dlapis/abc", want: 2},
		{name: "too many workers", workers: 65, wantErr: true},
		{name: "negative workers", workers: -1, wantErr: true},
		{name: "bad url", url: "not a url", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := overrideFetch(config.Default(), tt.workers, tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Workers)
			if tt.url != "" {
				assert.Equal(t, tt.url, cfg.VisionURL)
			}
		})
	}
}

func TestScoredSeconds(t *testing.T) {
	assert.InDelta(t, 2.0, scoredSeconds(50, 25), 1e-9)
	assert.Equal(t, 0.0, scoredSeconds(50, 0))
}
