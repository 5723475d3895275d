package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/nvr-ai/vision-eval/config"
	"github.com/nvr-ai/vision-eval/dataset"
	"github.com/nvr-ai/vision-eval/fetch"
	"github.com/nvr-ai/vision-eval/logger"
)

func main() {
	parser := argparse.NewParser("vision-eval", "Score images or video frames with a deployed vision model and validate the predictions against ground truth")
	envFile := parser.String("e", "env", &argparse.Options{Help: "Dotenv file with VISION_API_URL and friends", Default: ".env"})
	logLevel := parser.String("", "log-level", &argparse.Options{Help: "Overrides LOG_LEVEL", Default: ""})

	fetchCmd := parser.NewCommand("fetch", "Post every dataset image or video frame to the vision API and save the responses")
	fetchMode := fetchCmd.Selector("m", "mode", []string{"object", "classification"}, &argparse.Options{Help: "Validation mode of the dataset", Default: "classification"})
	fetchMedia := fetchCmd.Selector("", "media", []string{"image", "video"}, &argparse.Options{Help: "Score a dataset directory or a video file", Default: "video"})
	fetchImages := fetchCmd.String("d", "image-dir", &argparse.Options{Help: "Exported dataset directory (media=image)"})
	fetchVideo := fetchCmd.String("v", "video", &argparse.Options{Help: "Video file (media=video)"})
	fetchFrames := fetchCmd.Int("f", "frame-limit", &argparse.Options{Help: "Score at most this many frames, 0 for all", Default: 50})
	fetchWorkers := fetchCmd.Int("w", "workers", &argparse.Options{Help: "Concurrent requests, overrides FETCH_WORKERS", Default: 0})
	fetchURL := fetchCmd.String("u", "url", &argparse.Options{Help: "Model endpoint, overrides VISION_API_URL"})
	fetchResolution := fetchCmd.String("", "resolution", &argparse.Options{Help: "Downscale uploads to fit a preset such as 720p or WIDTHxHEIGHT"})
	fetchOut := fetchCmd.String("o", "output", &argparse.Options{Help: "Results file, a local path or s3://bucket/key", Default: fetch.DefaultResultsFile})

	validateCmd := parser.NewCommand("validate", "Compare saved predictions with the dataset ground truth")
	validateMode := validateCmd.Selector("m", "mode", []string{"object", "classification"}, &argparse.Options{Help: "Validation mode of the dataset", Required: true})
	validateImages := validateCmd.String("d", "image-dir", &argparse.Options{Help: "Exported dataset directory", Required: true})
	validateResults := validateCmd.String("r", "results", &argparse.Options{Help: "Results file written by fetch", Default: fetch.DefaultResultsFile})
	validatePlot := validateCmd.String("p", "plot", &argparse.Options{Help: "Write the confusion matrix as PNG to this path"})
	validateNormalize := validateCmd.Flag("n", "normalize", &argparse.Options{Help: "Normalize plotted rows"})
	validateReport := validateCmd.String("", "report", &argparse.Options{Help: "Write the report as JSON to this path"})

	annotateCmd := parser.NewCommand("annotate", "Draw predicted boxes on the scored images or video")
	annotateMode := annotateCmd.Selector("m", "mode", []string{"object", "classification"}, &argparse.Options{Help: "Validation mode of the dataset (image-dir only)", Default: "object"})
	annotateResults := annotateCmd.String("r", "results", &argparse.Options{Help: "Results file written by fetch", Default: fetch.DefaultResultsFile})
	annotateImages := annotateCmd.String("d", "image-dir", &argparse.Options{Help: "Exported dataset directory"})
	annotateVideo := annotateCmd.String("v", "video", &argparse.Options{Help: "Video file"})
	annotateOut := annotateCmd.String("o", "output", &argparse.Options{Help: "Output directory (images) or video file (video)", Required: true})
	annotateTitle := annotateCmd.String("t", "title", &argparse.Options{Help: "Title of the counter panel", Default: "Detections"})

	reorgCmd := parser.NewCommand("reorganize", "Copy a classification export into one directory per category")
	reorgIn := reorgCmd.String("i", "directory_in", &argparse.Options{Help: "Exported dataset directory", Required: true})
	reorgOut := reorgCmd.String("o", "directory_out", &argparse.Options{Help: "Destination directory", Required: true})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log, err := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case fetchCmd.Happened():
		cfg, err = overrideFetch(cfg, *fetchWorkers, *fetchURL)
		if err != nil {
			break
		}
		err = runFetch(ctx, cfg, log, fetchArgs{
			mode:       dataset.Mode(*fetchMode),
			media:      *fetchMedia,
			imageDir:   *fetchImages,
			video:      *fetchVideo,
			frameLimit: *fetchFrames,
			output:     *fetchOut,
			resolution: *fetchResolution,
		})
	case validateCmd.Happened():
		err = runValidate(ctx, cfg, log, validateArgs{
			mode:      dataset.Mode(*validateMode),
			imageDir:  *validateImages,
			results:   *validateResults,
			plot:      *validatePlot,
			normalize: *validateNormalize,
			report:    *validateReport,
		})
	case annotateCmd.Happened():
		err = runAnnotate(ctx, cfg, log, annotateArgs{
			mode:     dataset.Mode(*annotateMode),
			results:  *annotateResults,
			imageDir: *annotateImages,
			video:    *annotateVideo,
			output:   *annotateOut,
			title:    *annotateTitle,
		})
	case reorgCmd.Happened():
		_, err = dataset.Reorganize(*reorgIn, *reorgOut, log)
	}

	if err != nil {
		log.WithError(err).Fatal("command failed")
	}
}
