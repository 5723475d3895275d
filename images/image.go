// Package images - Image encoding, hashing and scaling helpers for talking to the vision API.
package images

// Image is an encoded image ready for upload.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the encoded image.
	Width int `json:"width" yaml:"width"`
	// The height of the encoded image.
	Height int `json:"height" yaml:"height"`
	// ScaleX is the original width divided by Width.
	ScaleX float64 `json:"scaleX" yaml:"scaleX"`
	// ScaleY is the original height divided by Height.
	ScaleY float64 `json:"scaleY" yaml:"scaleY"`
}

// ImageFormat represents supported image formats
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
)
