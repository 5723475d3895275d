package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func TestEncodeJPEG(t *testing.T) {
	tests := []struct {
		name           string
		w, h           int
		opts           EncodeOptions
		wantW, wantH   int
		wantSX, wantSY float64
	}{
		{"no bounds", 64, 48, EncodeOptions{}, 64, 48, 1, 1},
		{"within bounds", 64, 48, EncodeOptions{MaxWidth: 640, MaxHeight: 480}, 64, 48, 1, 1},
		{"downscaled", 128, 64, EncodeOptions{MaxWidth: 64, MaxHeight: 64}, 64, 32, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := EncodeJPEG(solid(tt.w, tt.h), tt.opts)
			require.NoError(t, err)

			assert.Equal(t, FormatJPEG, out.Format)
			assert.Equal(t, tt.wantW, out.Width)
			assert.Equal(t, tt.wantH, out.Height)
			assert.InDelta(t, tt.wantSX, out.ScaleX, 1e-9)
			assert.InDelta(t, tt.wantSY, out.ScaleY, 1e-9)

			decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, decoded.Bounds().Dx())
		})
	}
}

func TestEncodeJPEG_Empty(t *testing.T) {
	_, err := EncodeJPEG(image.NewRGBA(image.Rect(0, 0, 0, 0)), EncodeOptions{})
	assert.Error(t, err)
}
