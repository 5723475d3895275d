// Package metrics - Confusion matrix accumulation and precision/recall scoring.
package metrics

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/nvr-ai/vision-eval/labels"
)

var (
	// ErrLengthMismatch is returned when the true and predicted sequences differ in length.
	ErrLengthMismatch = errors.New("true and predicted sequences differ in length")
	// ErrUnknownLabel is returned when an observation uses a label outside the matrix universe.
	ErrUnknownLabel = errors.New("label not in universe")
)

// Accumulator concatenates aligned samples into the flat ytrue/ypred sequences of a run.
//
// It has a single owner (the aggregation loop) and is not safe for concurrent use.
type Accumulator struct {
	ytrue []labels.Label
	ypred []labels.Label
}

// Add appends one sample's alignment.
func (a *Accumulator) Add(al labels.Alignment) error {
	if len(al.True) != len(al.Pred) {
		return errors.Wrapf(ErrLengthMismatch, "%d true vs %d predicted", len(al.True), len(al.Pred))
	}
	a.ytrue = append(a.ytrue, al.True...)
	a.ypred = append(a.ypred, al.Pred...)
	return nil
}

// Len returns the number of accumulated observations.
func (a *Accumulator) Len() int {
	return len(a.ytrue)
}

// Matrix builds the confusion matrix over the sorted universe of accumulated labels.
func (a *Accumulator) Matrix() *ConfusionMatrix {
	cm, err := NewConfusionMatrix(a.ytrue, a.ypred, Universe(a.ytrue, a.ypred))
	if err != nil {
		// Universe covers every accumulated label and Add keeps lengths equal.
		panic(err)
	}
	return cm
}

// Universe returns the distinct labels of both sequences, ordered by labels.Compare.
func Universe(ytrue, ypred []labels.Label) []labels.Label {
	seen := make(map[labels.Label]struct{}, len(ytrue))
	var out []labels.Label
	for _, l := range slices.Concat(ytrue, ypred) {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	slices.SortFunc(out, labels.Compare)
	return out
}

// ConfusionMatrix counts (true, predicted) label pairs.
//
// Rows are true labels and columns predicted labels, both indexed in universe order.
type ConfusionMatrix struct {
	labels []labels.Label
	index  map[labels.Label]int
	counts *mat.Dense
}

// NewConfusionMatrix counts observations over a caller-chosen label ordering.
//
// Arguments:
//   - ytrue: True label of each observation.
//   - ypred: Predicted label of each observation.
//   - universe: Distinct labels in the order rows and columns should use.
//
// Returns:
//   - *ConfusionMatrix: The counts.
//   - error: ErrLengthMismatch or ErrUnknownLabel.
//
// Example:
//
// ```go
//
//	cat, dog := labels.Some("cat"), labels.Some("dog")
//	cm, _ := NewConfusionMatrix(
//		[]labels.Label{cat, dog, cat},
//		[]labels.Label{cat, cat, cat},
//		[]labels.Label{cat, dog},
//	)
//	// cm.Counts() = [[2 0] [1 0]]
//
// ```
func NewConfusionMatrix(ytrue, ypred, universe []labels.Label) (*ConfusionMatrix, error) {
	if len(ytrue) != len(ypred) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d true vs %d predicted", len(ytrue), len(ypred))
	}

	cm := &ConfusionMatrix{
		labels: slices.Clone(universe),
		index:  make(map[labels.Label]int, len(universe)),
	}
	for i, l := range universe {
		cm.index[l] = i
	}

	// gonum refuses zero-sized matrices, an empty run keeps counts nil.
	if len(universe) > 0 {
		cm.counts = mat.NewDense(len(universe), len(universe), nil)
	}

	for k := range ytrue {
		i, ok := cm.index[ytrue[k]]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownLabel, "true label %q", ytrue[k])
		}
		j, ok := cm.index[ypred[k]]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownLabel, "predicted label %q", ypred[k])
		}
		cm.counts.Set(i, j, cm.counts.At(i, j)+1)
	}

	return cm, nil
}

// Labels returns the row/column ordering.
func (cm *ConfusionMatrix) Labels() []labels.Label {
	return slices.Clone(cm.labels)
}

// Size returns the number of classes.
func (cm *ConfusionMatrix) Size() int {
	return len(cm.labels)
}

// At returns the count of observations with true label index i and predicted index j.
func (cm *ConfusionMatrix) At(i, j int) int {
	return int(cm.counts.At(i, j))
}

// Count returns the count for a (true, predicted) label pair, 0 for unknown labels.
func (cm *ConfusionMatrix) Count(truth, predicted labels.Label) int {
	i, ok := cm.index[truth]
	if !ok {
		return 0
	}
	j, ok := cm.index[predicted]
	if !ok {
		return 0
	}
	return cm.At(i, j)
}

// Counts returns the raw matrix as nested slices.
func (cm *ConfusionMatrix) Counts() [][]int {
	out := make([][]int, cm.Size())
	for i := range out {
		out[i] = make([]int, cm.Size())
		for j := range out[i] {
			out[i][j] = cm.At(i, j)
		}
	}
	return out
}

// Total returns the number of observations.
func (cm *ConfusionMatrix) Total() int {
	if cm.counts == nil {
		return 0
	}
	return int(mat.Sum(cm.counts))
}

// ClassScore holds the derived counts and ratios of one class.
type ClassScore struct {
	Label     labels.Label `json:"label"`
	TP        int          `json:"tp"`
	FP        int          `json:"fp"`
	FN        int          `json:"fn"`
	Precision float64      `json:"precision"`
	Recall    float64      `json:"recall"`
}

// Scores derives per-class metrics in universe order.
//
// Precision is tp / (column total) and recall tp / (row total); a zero denominator yields 0.
func (cm *ConfusionMatrix) Scores() []ClassScore {
	out := make([]ClassScore, cm.Size())
	for i, l := range cm.labels {
		tp := cm.counts.At(i, i)
		tpfp := floats.Sum(mat.Col(nil, i, cm.counts))
		tpfn := floats.Sum(mat.Row(nil, i, cm.counts))

		score := ClassScore{
			Label: l,
			TP:    int(tp),
			FP:    int(tpfp - tp),
			FN:    int(tpfn - tp),
		}
		if tpfp != 0 {
			score.Precision = tp / tpfp
		}
		if tpfn != 0 {
			score.Recall = tp / tpfn
		}
		out[i] = score
	}
	return out
}

// Accuracy returns the trace over the total and whether it is defined.
// An empty matrix reports (0, false).
func (cm *ConfusionMatrix) Accuracy() (float64, bool) {
	total := cm.Total()
	if total == 0 {
		return 0, false
	}
	return mat.Trace(cm.counts) / float64(total), true
}

// Normalized returns each row divided by its total. Rows with no observations stay zero.
func (cm *ConfusionMatrix) Normalized() [][]float64 {
	out := make([][]float64, cm.Size())
	for i := range out {
		row := mat.Row(nil, i, cm.counts)
		if sum := floats.Sum(row); sum != 0 {
			floats.Scale(1/sum, row)
		}
		out[i] = row
	}
	return out
}

func (cm *ConfusionMatrix) String() string {
	var b strings.Builder
	for _, row := range cm.Counts() {
		fmt.Fprintln(&b, row)
	}
	return b.String()
}
