package images

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// PixelChecksum returns the hex md5 of the decoded pixel buffer of a Mat.
//
// Two files with identical pixels but different encodings or names hash the same, which makes
// the checksum usable as a sample key shared by ground truth and predictions.
//
// Arguments:
//   - mat: A decoded 8-bit image.
//
// Returns:
//   - string: The hex-encoded checksum.
//   - error: If the Mat is empty or its pixels cannot be read.
func PixelChecksum(mat gocv.Mat) (string, error) {
	if mat.Empty() {
		return "", errors.New("cannot checksum an empty image")
	}

	// ROIs share their parent's buffer; copy so only the visible pixels are hashed.
	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	data, err := src.DataPtrUint8()
	if err != nil {
		return "", errors.Wrap(err, "read pixels")
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashFile decodes an image file and returns its PixelChecksum.
func HashFile(path string) (string, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return "", errors.Errorf("unable to decode image %s", path)
	}
	sum, err := PixelChecksum(mat)
	if err != nil {
		return "", errors.Wrapf(err, "hash %s", path)
	}
	return sum, nil
}
