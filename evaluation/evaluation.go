// Package evaluation - Scores saved predictions against dataset ground truth.
package evaluation

import (
	"github.com/nvr-ai/vision-eval/dataset"
	"github.com/nvr-ai/vision-eval/fetch"
	"github.com/nvr-ai/vision-eval/labels"
	"github.com/nvr-ai/vision-eval/metrics"
	"github.com/nvr-ai/vision-eval/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidMode is returned for a mode other than object or classification.
	ErrInvalidMode = dataset.ErrInvalidMode
	// ErrNoPrediction is returned when a classification response carries no class.
	ErrNoPrediction = errors.New("response has no predicted class")
)

// Validate aligns every prediction with its ground truth and builds the confusion report.
//
// Prediction keys are visited in ascending order. A key without ground truth aborts the run.
//
// Arguments:
// - gt: Ground truth loaded with dataset.Load.
// - predictions: Responses saved by fetch.Run.
// - mode: Object alignment of box labels or classification of the top class.
// - log: Receives the aligned pairs at debug level, the standard logger when nil.
//
// Returns:
// - *metrics.Report: Labels, matrix, per class scores and accuracy.
// - error: ErrInvalidMode, dataset.ErrMissingSample naming the key, or an alignment error.
func Validate(gt *dataset.Dataset, predictions fetch.Results, mode dataset.Mode, log logrus.FieldLogger) (*metrics.Report, error) {
	if mode != dataset.ModeObject && mode != dataset.ModeClassification {
		return nil, errors.Wrapf(ErrInvalidMode, "%q", mode)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	var acc metrics.Accumulator
	keys := predictions.Keys()

	for _, key := range keys {
		sample, err := gt.Lookup(key)
		if err != nil {
			return nil, err
		}

		al, err := Align(sample, predictions[key], mode)
		if err != nil {
			return nil, errors.Wrapf(err, "align %s", key)
		}

		log.WithFields(logrus.Fields{
			"key":   key,
			"ytrue": al.True,
			"ypred": al.Pred,
		}).Debug("aligned")

		if err := acc.Add(al); err != nil {
			return nil, errors.Wrapf(err, "accumulate %s", key)
		}
	}

	return metrics.NewReport(acc.Matrix(), len(keys)), nil
}

// Align pairs the ground truth of one sample with its prediction.
func Align(sample *dataset.Sample, resp *vision.Response, mode dataset.Mode) (labels.Alignment, error) {
	switch mode {
	case dataset.ModeObject:
		return labels.AlignDetections(sample.Boxes, resp.Classified.Boxes)
	case dataset.ModeClassification:
		top, ok := resp.Classified.Top()
		if !ok {
			return labels.Alignment{}, ErrNoPrediction
		}
		return labels.AlignClassification(sample.Class, top)
	default:
		return labels.Alignment{}, errors.Wrapf(ErrInvalidMode, "%q", mode)
	}
}
