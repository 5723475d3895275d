package images

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used when EncodeOptions.Quality is zero.
const DefaultJPEGQuality = 90

// EncodeOptions controls how frames are prepared for upload.
type EncodeOptions struct {
	// MaxWidth and MaxHeight bound the uploaded image. Zero disables downscaling.
	MaxWidth  int
	MaxHeight int
	// Quality is the JPEG quality, 1-100.
	Quality int
}

// EncodeJPEG downscales an image to fit the configured bounds and encodes it as JPEG.
//
// The aspect ratio is preserved. The returned Image carries the ratios needed to map boxes
// predicted on the encoded image back to the original with common.Detection.Scale.
//
// Arguments:
//   - img: The source image.
//   - opts: Size bounds and quality.
//
// Returns:
//   - *Image: The encoded JPEG and its scale ratios.
//   - error: If encoding fails.
func EncodeJPEG(img image.Image, opts EncodeOptions) (*Image, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("cannot encode an empty image")
	}

	out := img
	if opts.MaxWidth > 0 && opts.MaxHeight > 0 && (b.Dx() > opts.MaxWidth || b.Dy() > opts.MaxHeight) {
		out = resize.Thumbnail(uint(opts.MaxWidth), uint(opts.MaxHeight), img, resize.Lanczos3)
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}

	ob := out.Bounds()
	return &Image{
		Format: FormatJPEG,
		Data:   buf.Bytes(),
		Width:  ob.Dx(),
		Height: ob.Dy(),
		ScaleX: float64(b.Dx()) / float64(ob.Dx()),
		ScaleY: float64(b.Dy()) / float64(ob.Dy()),
	}, nil
}

// EncodeMat converts a BGR Mat to an image and encodes it with EncodeJPEG.
func EncodeMat(mat gocv.Mat, opts EncodeOptions) (*Image, error) {
	if mat.Empty() {
		return nil, errors.New("cannot encode an empty frame")
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert frame")
	}
	return EncodeJPEG(img, opts)
}
