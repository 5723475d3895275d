// Package fetch - Scores a dataset or video against the vision API with a pool of workers.
package fetch

import (
	"context"
	"sync"

	"github.com/nvr-ai/vision-eval/profiler"
	"github.com/nvr-ai/vision-eval/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options configures Run.
type Options struct {
	// Workers is the number of concurrent requests (default: 2).
	Workers int
	// QueueSize bounds the encoded images held in memory (default: 2 * Workers).
	QueueSize int
	// Profiler records request timings and queue depth when set.
	Profiler *profiler.Profiler
	// Log defaults to the standard logger.
	Log logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 2 * o.Workers
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return o
}

// Run scores every job of src and returns the responses keyed by job key.
//
// A single producer fills a bounded queue drained by opts.Workers goroutines. Results are
// returned only after every worker has finished. The first error cancels the remaining work.
//
// Arguments:
// - ctx: Cancels the run.
// - src: The jobs to score.
// - p: The predictor, usually a *vision.Client optionally wrapped by a cache.
// - opts: Worker pool settings.
//
// Returns:
// - Results: One response per job.
// - error: The first producer or predictor error.
func Run(ctx context.Context, src Source, p vision.Predictor, opts Options) (Results, error) {
	opts = opts.withDefaults()
	log := opts.Log

	jobs := make(chan Job, opts.QueueSize)
	if opts.Profiler != nil {
		opts.Profiler.AddMetricsCollector(profiler.CollectorFunc(func() map[string]float64 {
			return map[string]float64{"queue_depth": float64(len(jobs))}
		}))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		return src.Produce(ctx, jobs)
	})

	var mu sync.Mutex
	results := make(Results, src.Len())

	for i := 0; i < opts.Workers; i++ {
		worker := i
		g.Go(func() error {
			for job := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}

				wlog := log.WithFields(logrus.Fields{"worker": worker, "key": job.Key, "queued": len(jobs)})
				wlog.Debug("scoring")

				var done func()
				if opts.Profiler != nil {
					done = opts.Profiler.StartOperation("predict")
				}
				resp, err := p.Predict(ctx, job.Key, job.Image.Data)
				if done != nil {
					done()
				}
				if err != nil {
					return errors.Wrapf(err, "worker %d", worker)
				}

				if job.Image.ScaleX > 0 && job.Image.ScaleY > 0 {
					resp.Rescale(job.Image.ScaleX, job.Image.ScaleY)
				}

				mu.Lock()
				results[job.Key] = resp
				mu.Unlock()

				if !resp.OK() {
					wlog.WithField("result", resp.Result).Warn("request not successful")
				}
			}
			return nil
		})
	}

	log.WithFields(logrus.Fields{"jobs": src.Len(), "workers": opts.Workers}).Info("waiting for all workers to complete")

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithField("results", len(results)).Info("fetch complete")
	return results, nil
}
