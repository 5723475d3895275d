package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nvr-ai/vision-eval/cache"
	"github.com/nvr-ai/vision-eval/config"
	"github.com/nvr-ai/vision-eval/dataset"
	"github.com/nvr-ai/vision-eval/evaluation"
	"github.com/nvr-ai/vision-eval/fetch"
	"github.com/nvr-ai/vision-eval/images"
	"github.com/nvr-ai/vision-eval/profiler"
	"github.com/nvr-ai/vision-eval/render"
	"github.com/nvr-ai/vision-eval/storage"
	"github.com/nvr-ai/vision-eval/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Supported video file extensions
var supportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

type fetchArgs struct {
	mode       dataset.Mode
	media      string
	imageDir   string
	video      string
	frameLimit int
	output     string
	resolution string
}

type validateArgs struct {
	mode      dataset.Mode
	imageDir  string
	results   string
	plot      string
	normalize bool
	report    string
}

type annotateArgs struct {
	mode     dataset.Mode
	results  string
	imageDir string
	video    string
	output   string
	title    string
}

func validateVideoPath(path string) error {
	if path == "" {
		return errors.New("a video file is required, use --video")
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedVideoExtensions {
		if ext == supported {
			return nil
		}
	}
	return errors.Errorf("unsupported video format %q, supported: %s", ext, strings.Join(supportedVideoExtensions, ", "))
}

// scoredSeconds is the video time covered by the first frames, zero when fps is unknown.
func scoredSeconds(frames int, fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(frames) / fps
}

// overrideFetch applies the fetch flags to cfg and validates the result again.
func overrideFetch(cfg config.Config, workers int, url string) (config.Config, error) {
	if workers != 0 {
		cfg.Workers = workers
	}
	if url != "" {
		cfg.VisionURL = url
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openObject resolves a local path or s3:// URI into a store and object name.
func openObject(cfg config.Config, path string) (storage.Store, string, error) {
	location, name := storage.Split(path)
	if name == "" {
		return nil, "", errors.Errorf("%s does not name a file", path)
	}
	store, err := storage.Open(location, cfg.AWSRegion)
	if err != nil {
		return nil, "", err
	}
	return store, name, nil
}

// uploadOptions picks the upload bounds: the flag preset, then explicit env bounds, then the env preset.
func uploadOptions(cfg config.Config, flag string) (images.EncodeOptions, error) {
	name := flag
	if name == "" {
		if cfg.MaxUploadWidth > 0 && cfg.MaxUploadHeight > 0 {
			return images.EncodeOptions{MaxWidth: cfg.MaxUploadWidth, MaxHeight: cfg.MaxUploadHeight}, nil
		}
		name = cfg.MaxResolution
	}
	if name == "" {
		return images.EncodeOptions{}, nil
	}
	res, err := images.ParseResolution(name)
	if err != nil {
		return images.EncodeOptions{}, err
	}
	return res.EncodeOptions(), nil
}

func newPredictor(ctx context.Context, cfg config.Config, log *logrus.Logger) (vision.Predictor, *cache.Predictor, error) {
	client, err := vision.NewClient(vision.Config{
		URL:         cfg.VisionURL,
		Auth:        cfg.VisionAuth,
		InsecureTLS: cfg.InsecureTLS,
		Timeout:     cfg.Timeout,
		RateLimit:   cfg.RateLimit,
		Burst:       cfg.Burst,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	if cfg.RedisAddr == "" {
		return client, nil, nil
	}

	backend, err := cache.NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisPassword, log)
	if err != nil {
		log.WithError(err).Warn("prediction cache disabled")
		return client, nil, nil
	}
	cached := cache.New(client, backend, cfg.VisionURL, cfg.RedisTTL, log)
	return cached, cached, nil
}

func runFetch(ctx context.Context, cfg config.Config, log *logrus.Logger, args fetchArgs) error {
	store, name, err := openObject(cfg, args.output)
	if err != nil {
		return err
	}

	predictor, cached, err := newPredictor(ctx, cfg, log)
	if err != nil {
		return err
	}

	encode, err := uploadOptions(cfg, args.resolution)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"maxWidth": encode.MaxWidth, "maxHeight": encode.MaxHeight}).Debug("upload bounds")

	var src fetch.Source
	switch args.media {
	case "image":
		if args.imageDir == "" {
			return errors.New("an image directory is required, use --image-dir")
		}
		log.Info("loading dataset to prepare for inferencing")
		ds, err := dataset.Load(args.imageDir, args.mode, dataset.Options{Log: log})
		if err != nil {
			return err
		}
		src = fetch.NewImageSource(ds, encode)
	case "video":
		if err := validateVideoPath(args.video); err != nil {
			return err
		}
		vs, err := fetch.NewVideoSource(args.video, args.frameLimit, encode, log)
		if err != nil {
			return err
		}
		info := vs.Info()
		log.WithFields(logrus.Fields{
			"frames":  vs.Len(),
			"of":      info.Frames,
			"seconds": scoredSeconds(vs.Len(), info.FPS),
		}).Info("scoring video frames")
		src = vs
	default:
		return errors.Errorf("unknown media %q", args.media)
	}
	defer src.Close()

	prof := profiler.New(profiler.Options{ReportInterval: 10 * time.Second, Log: log})
	if cached != nil {
		prof.AddMetricsCollector(cached)
	}
	prof.Start(ctx)

	results, err := fetch.Run(ctx, src, predictor, fetch.Options{Workers: cfg.Workers, Profiler: prof, Log: log})
	prof.Stop()
	prof.Report("fetch finished")
	if err != nil {
		return err
	}

	log.WithField("output", store.Location(name)).Info("writing results")
	return results.Save(ctx, store, name)
}

func runValidate(ctx context.Context, cfg config.Config, log *logrus.Logger, args validateArgs) error {
	log.Info("loading dataset to get ground truth labels")
	gt, err := dataset.Load(args.imageDir, args.mode, dataset.Options{Log: log})
	if err != nil {
		return err
	}

	store, name, err := openObject(cfg, args.results)
	if err != nil {
		return err
	}
	predictions, err := fetch.LoadResults(ctx, store, name)
	if err != nil {
		return err
	}

	report, err := evaluation.Validate(gt, predictions, args.mode, log)
	if err != nil {
		return err
	}
	report.Log(log)

	if args.plot != "" {
		data, err := render.EncodeConfusionMatrixPNG(report, render.PlotOptions{Normalize: args.normalize})
		if err != nil {
			return err
		}
		plotStore, plotName, err := openObject(cfg, args.plot)
		if err != nil {
			return err
		}
		if err := plotStore.Put(ctx, plotName, data); err != nil {
			return err
		}
		log.WithField("plot", plotStore.Location(plotName)).Info("confusion matrix plotted")
	}

	if args.report != "" {
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode report")
		}
		reportStore, reportName, err := openObject(cfg, args.report)
		if err != nil {
			return err
		}
		if err := reportStore.Put(ctx, reportName, data); err != nil {
			return err
		}
	}

	return nil
}
