package fetch

import (
	"context"
	"strconv"

	"github.com/nvr-ai/vision-eval/dataset"
	"github.com/nvr-ai/vision-eval/images"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Job is one encoded image waiting to be scored.
type Job struct {
	// Key under which the response is stored: the sample key for datasets, the frame index for videos.
	Key   string
	Image *images.Image
}

// Source produces the jobs of a run.
type Source interface {
	// Len is the number of jobs Produce will send.
	Len() int
	// Produce sends every job, returning early with ctx.Err() when ctx is done.
	Produce(ctx context.Context, jobs chan<- Job) error
	Close() error
}

func send(ctx context.Context, jobs chan<- Job, job Job) error {
	select {
	case jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ImageSource scores every image of a dataset.
type ImageSource struct {
	ds   *dataset.Dataset
	opts images.EncodeOptions
}

// NewImageSource creates a source over the samples of ds, in key order.
func NewImageSource(ds *dataset.Dataset, opts images.EncodeOptions) *ImageSource {
	return &ImageSource{ds: ds, opts: opts}
}

// Len returns the number of samples.
func (s *ImageSource) Len() int {
	return s.ds.Len()
}

// Produce decodes and encodes each sample image.
func (s *ImageSource) Produce(ctx context.Context, jobs chan<- Job) error {
	for _, key := range s.ds.Keys() {
		sample := s.ds.Samples[key]

		mat := gocv.IMRead(sample.ImagePath, gocv.IMReadColor)
		if mat.Empty() {
			mat.Close()
			return errors.Errorf("unable to load %s, unsupported file", sample.ImagePath)
		}
		img, err := images.EncodeMat(mat, s.opts)
		mat.Close()
		if err != nil {
			return errors.Wrapf(err, "encode %s", sample.ImagePath)
		}

		if err := send(ctx, jobs, Job{Key: key, Image: img}); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (s *ImageSource) Close() error {
	return nil
}

// VideoInfo describes an opened video.
type VideoInfo struct {
	Frames  int
	FPS     float64
	Seconds float64
}

// VideoSource scores the leading frames of a video file.
type VideoSource struct {
	capture *gocv.VideoCapture
	info    VideoInfo
	limit   int
	opts    images.EncodeOptions
	log     logrus.FieldLogger
}

// NewVideoSource opens a video and clamps the frame limit to its length.
//
// Arguments:
// - path: The video file.
// - frameLimit: Maximum frames to score; zero or less scores every frame.
// - opts: Upload encoding.
// - log: Receives the video properties and read failures.
//
// Returns:
// - *VideoSource: The source; Close releases the capture.
// - error: If the file cannot be opened.
func NewVideoSource(path string, frameLimit int, opts images.EncodeOptions, log logrus.FieldLogger) (*VideoSource, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open video %s", path)
	}

	info := VideoInfo{
		Frames: int(capture.Get(gocv.VideoCaptureFrameCount)),
		FPS:    capture.Get(gocv.VideoCaptureFPS),
	}
	if info.FPS > 0 {
		info.Seconds = float64(info.Frames) / info.FPS
	}

	log.WithFields(logrus.Fields{
		"video":   path,
		"frames":  info.Frames,
		"fps":     info.FPS,
		"seconds": info.Seconds,
	}).Info("video opened")

	return &VideoSource{
		capture: capture,
		info:    info,
		limit:   ClampFrameLimit(frameLimit, info.Frames),
		opts:    opts,
		log:     log,
	}, nil
}

// ClampFrameLimit bounds a requested frame count by the number of frames available.
func ClampFrameLimit(limit, frames int) int {
	if limit <= 0 || limit > frames {
		return frames
	}
	return limit
}

// Info returns the properties read when the video was opened.
func (s *VideoSource) Info() VideoInfo {
	return s.info
}

// Len returns the clamped frame limit.
func (s *VideoSource) Len() int {
	return s.limit
}

// Produce reads frames sequentially. A short read ends the run early with a warning.
func (s *VideoSource) Produce(ctx context.Context, jobs chan<- Job) error {
	mat := gocv.NewMat()
	defer mat.Close()

	for i := 0; i < s.limit; i++ {
		if ok := s.capture.Read(&mat); !ok || mat.Empty() {
			s.log.WithFields(logrus.Fields{"frame": i, "expected": s.limit}).Warn("video ended early")
			return nil
		}

		img, err := images.EncodeMat(mat, s.opts)
		if err != nil {
			return errors.Wrapf(err, "encode frame %d", i)
		}

		if err := send(ctx, jobs, Job{Key: strconv.Itoa(i), Image: img}); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the capture.
func (s *VideoSource) Close() error {
	return s.capture.Close()
}
