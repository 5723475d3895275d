package metrics

import (
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/vision-eval/labels"
)

// Report is the summary of a validation run handed to display and plotting sinks.
type Report struct {
	Labels          []labels.Label `json:"labels"`
	Matrix          [][]int        `json:"matrix"`
	Normalized      [][]float64    `json:"normalized"`
	Classes         []ClassScore   `json:"classes"`
	Accuracy        float64        `json:"accuracy"`
	AccuracyDefined bool           `json:"accuracyDefined"`
	Samples         int            `json:"samples"`
	Observations    int            `json:"observations"`
}

// NewReport summarises a confusion matrix.
//
// Arguments:
//   - cm: The accumulated confusion matrix.
//   - samples: Number of samples (images or frames) that contributed to cm.
//
// Returns:
//   - *Report: Labels, raw and row-normalized counts, per-class scores and overall accuracy.
func NewReport(cm *ConfusionMatrix, samples int) *Report {
	acc, defined := cm.Accuracy()
	return &Report{
		Labels:          cm.Labels(),
		Matrix:          cm.Counts(),
		Normalized:      cm.Normalized(),
		Classes:         cm.Scores(),
		Accuracy:        acc,
		AccuracyDefined: defined,
		Samples:         samples,
		Observations:    cm.Total(),
	}
}

// LabelNames returns the labels for display, see labels.DisplayNames.
func (r *Report) LabelNames() []string {
	return labels.DisplayNames(r.Labels)
}

// Log writes one line per class followed by the overall accuracy.
func (r *Report) Log(log logrus.FieldLogger) {
	names := r.LabelNames()
	for i, c := range r.Classes {
		log.WithFields(logrus.Fields{
			"class":     names[i],
			"tp":        c.TP,
			"fp":        c.FP,
			"fn":        c.FN,
			"precision": round2(c.Precision),
			"recall":    round2(c.Recall),
		}).Info("class score")
	}

	if !r.AccuracyDefined {
		log.WithField("samples", r.Samples).Warn("overall accuracy undefined: no observations")
		return
	}
	log.WithFields(logrus.Fields{
		"accuracy":     round2(r.Accuracy),
		"samples":      r.Samples,
		"observations": r.Observations,
	}).Info("overall accuracy")
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
