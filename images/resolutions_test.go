package images

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolution_MegaPixels(t *testing.T) {
	tests := []struct {
		name string
		res  Resolution
		want float64
	}{
		{"1080p", resolutions["1080p"], 2.07},
		{"4k", resolutions["4k"], 8.29},
		{"1mp", resolutions["1mp"], 1.31},
		{"zero width", Resolution{Width: 0, Height: 1080}, 0},
		{"negative height", Resolution{Width: 1920, Height: -1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.MegaPixels())
		})
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    Resolution
		wantErr bool
	}{
		{in: "720p", want: Resolution{Name: "HD 720p", Width: 1280, Height: 720}},
		{in: " 4K ", want: Resolution{Name: "4K UHD", Width: 3840, Height: 2160}},
		{in: "800x600", want: Resolution{Name: "800x600", Width: 800, Height: 600}},
		{in: "0x600", wantErr: true},
		{in: "8k", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResolution(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownResolution))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, EncodeOptions{MaxWidth: tt.want.Width, MaxHeight: tt.want.Height}, got.EncodeOptions())
		})
	}
}

func TestResolutionAliases(t *testing.T) {
	aliases := ResolutionAliases()
	require.Len(t, aliases, len(resolutions))
	assert.Equal(t, "360p", aliases[0])
	assert.Equal(t, "4k", aliases[len(aliases)-1])
}
