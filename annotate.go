package main

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvr-ai/vision-eval/config"
	"github.com/nvr-ai/vision-eval/dataset"
	"github.com/nvr-ai/vision-eval/fetch"
	"github.com/nvr-ai/vision-eval/render"
	"github.com/nvr-ai/vision-eval/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

func runAnnotate(ctx context.Context, cfg config.Config, log *logrus.Logger, args annotateArgs) error {
	store, name, err := openObject(cfg, args.results)
	if err != nil {
		return err
	}
	results, err := fetch.LoadResults(ctx, store, name)
	if err != nil {
		return err
	}

	colors := render.ColorMap(resultClasses(results))

	switch {
	case args.video != "":
		if err := validateVideoPath(args.video); err != nil {
			return err
		}
		return annotateVideo(ctx, args, results, colors, log)
	case args.imageDir != "":
		return annotateImages(ctx, args, results, colors, log)
	default:
		return errors.New("either --video or --image-dir is required")
	}
}

func resultClasses(results fetch.Results) []string {
	var classes []string
	for _, r := range results {
		classes = append(classes, r.Classified.Labels()...)
		for c := range r.Classified.Classes {
			classes = append(classes, c)
		}
	}
	return classes
}

func drawResponse(img *gocv.Mat, resp *vision.Response, title string, colors map[string]color.RGBA) {
	counts := render.CountLabels(resp.Classified.Boxes)
	if top, ok := resp.Classified.Top(); ok {
		counts = map[string]int{top: 1}
	}
	render.AnnotateDetections(img, resp.Classified.Boxes, colors)
	render.DrawCounterBox(img, title, counts, colors)
}

func annotateImages(ctx context.Context, args annotateArgs, results fetch.Results, colors map[string]color.RGBA, log *logrus.Logger) error {
	ds, err := dataset.Load(args.imageDir, args.mode, dataset.Options{Log: log})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(args.output, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", args.output)
	}

	written := 0
	for _, key := range results.Keys() {
		if err := ctx.Err(); err != nil {
			return err
		}

		sample, err := ds.Lookup(key)
		if err != nil {
			log.WithField("key", key).Warn("no image for result, skipping")
			continue
		}

		img := gocv.IMRead(sample.ImagePath, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			return errors.Errorf("unable to load %s", sample.ImagePath)
		}

		drawResponse(&img, results[key], args.title, colors)

		out := filepath.Join(args.output, sample.ID+".jpg")
		ok := gocv.IMWrite(out, img)
		img.Close()
		if !ok {
			return errors.Errorf("unable to write %s", out)
		}
		written++
	}

	log.WithFields(logrus.Fields{"output": args.output, "images": written}).Info("annotated images written")
	return nil
}

func annotateVideo(ctx context.Context, args annotateArgs, results fetch.Results, colors map[string]color.RGBA, log *logrus.Logger) error {
	capture, err := gocv.VideoCaptureFile(args.video)
	if err != nil {
		return errors.Wrapf(err, "open video %s", args.video)
	}
	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 25
	}
	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))

	writer, err := gocv.VideoWriterFile(args.output, "MJPG", fps, width, height, true)
	if err != nil {
		return errors.Wrapf(err, "create %s", args.output)
	}
	defer writer.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	// Only frames that were scored are written.
	frames := 0
	for i := 0; i < len(results); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}

		if resp, ok := results[strconv.Itoa(i)]; ok {
			drawResponse(&frame, resp, args.title, colors)
		}
		if err := writer.Write(frame); err != nil {
			return errors.Wrapf(err, "write frame %d", i)
		}
		frames++
	}

	log.WithFields(logrus.Fields{
		"output": args.output,
		"frames": frames,
		"boxes":  countBoxes(results),
	}).Info("annotated video written")
	return nil
}

func countBoxes(results fetch.Results) int {
	n := 0
	for _, r := range results {
		n += len(r.Classified.Boxes)
	}
	return n
}
