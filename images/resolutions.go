package images

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownResolution is returned by ParseResolution for names outside the preset table.
var ErrUnknownResolution = errors.New("unknown resolution")

// Resolution is a named upload bound.
type Resolution struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MegaPixels returns the pixel count in megapixels rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	mp := float64(r.Width*r.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// EncodeOptions returns options bounding uploads to this resolution.
func (r Resolution) EncodeOptions() EncodeOptions {
	return EncodeOptions{MaxWidth: r.Width, MaxHeight: r.Height}
}

// Common camera resolutions, keyed by lower case alias.
var resolutions = map[string]Resolution{
	"360p":  {Name: "nHD", Width: 640, Height: 360},
	"480p":  {Name: "FWVGA", Width: 854, Height: 480},
	"540p":  {Name: "qHD 540p", Width: 960, Height: 540},
	"720p":  {Name: "HD 720p", Width: 1280, Height: 720},
	"1mp":   {Name: "1MP (5:4)", Width: 1280, Height: 1024},
	"1080p": {Name: "Full HD 1080p", Width: 1920, Height: 1080},
	"2mp":   {Name: "2MP (4:3)", Width: 1600, Height: 1200},
	"1440p": {Name: "QHD 1440p", Width: 2560, Height: 1440},
	"3mp":   {Name: "3MP (4:3)", Width: 2048, Height: 1536},
	"4mp":   {Name: "4MP (16:9)", Width: 2688, Height: 1520},
	"4k":    {Name: "4K UHD", Width: 3840, Height: 2160},
}

// ResolutionAliases returns the accepted names in ascending pixel order.
func ResolutionAliases() []string {
	aliases := make([]string, 0, len(resolutions))
	for a := range resolutions {
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool {
		ri, rj := resolutions[aliases[i]], resolutions[aliases[j]]
		if ri.Width*ri.Height != rj.Width*rj.Height {
			return ri.Width*ri.Height < rj.Width*rj.Height
		}
		return aliases[i] < aliases[j]
	})
	return aliases
}

// ParseResolution looks up a preset by alias ("720p") or by its WIDTHxHEIGHT form ("1280x720").
//
// Arguments:
//   - name: The alias or dimensions, case-insensitive.
//
// Returns:
//   - Resolution: The matching bound.
//   - error: ErrUnknownResolution when nothing matches.
func ParseResolution(name string) (Resolution, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if r, ok := resolutions[key]; ok {
		return r, nil
	}

	var w, h int
	if n, err := fmt.Sscanf(key, "%dx%d", &w, &h); err == nil && n == 2 && w > 0 && h > 0 {
		return Resolution{Name: fmt.Sprintf("%dx%d", w, h), Width: w, Height: h}, nil
	}
	return Resolution{}, errors.Wrapf(ErrUnknownResolution, "%q, want one of %s or WIDTHxHEIGHT", name, strings.Join(ResolutionAliases(), ", "))
}
