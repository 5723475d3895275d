package labels

import (
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/vision-eval/common"
)

// Alignment holds two equal-length, order-aligned label sequences for one sample.
//
// True[i] and Pred[i] form one confusion-matrix observation. None on either side marks a
// detection with no counterpart on the other side.
type Alignment struct {
	True []Label `json:"true"`
	Pred []Label `json:"pred"`
}

// Len returns the number of aligned pairs.
func (a Alignment) Len() int {
	return len(a.True)
}

// Align pairs ground-truth labels with predicted labels for one sample.
//
// Both sequences are sorted ascending and merged with two pointers. Equal heads are paired;
// otherwise the smaller head is emitted against None and only its pointer advances. An
// exhausted sequence behaves as if its head were larger than any label.
//
// This is a greedy merge, not an optimal bipartite matching. With duplicate labels at
// different multiplicities on both sides it can pair fewer labels than a matching would.
//
// Arguments:
//   - groundTruth: Ground-truth class names, in any order, duplicates allowed.
//   - predicted: Predicted class names, in any order, duplicates allowed.
//
// Returns:
//   - Alignment: The aligned sequences.
//   - error: ErrInvalidLabel if any name is empty.
//
// Example:
//
// ```go
//
//	a, _ := Align([]string{"a", "a", "b"}, []string{"a", "b", "b"})
//	// a.True = [a a b null], a.Pred = [a null b b]
//
// ```
func Align(groundTruth, predicted []string) (Alignment, error) {
	gt, err := sortedNames(groundTruth)
	if err != nil {
		return Alignment{}, errors.Wrap(err, "ground truth")
	}
	pr, err := sortedNames(predicted)
	if err != nil {
		return Alignment{}, errors.Wrap(err, "prediction")
	}

	n := max(len(gt), len(pr))
	out := Alignment{
		True: make([]Label, 0, n),
		Pred: make([]Label, 0, n),
	}

	it, ip := 0, 0
	for it < len(gt) || ip < len(pr) {
		switch {
		case it < len(gt) && ip < len(pr) && gt[it] == pr[ip]:
			out.True = append(out.True, Some(gt[it]))
			out.Pred = append(out.Pred, Some(pr[ip]))
			it++
			ip++
		case ip >= len(pr) || (it < len(gt) && gt[it] < pr[ip]):
			out.True = append(out.True, Some(gt[it]))
			out.Pred = append(out.Pred, None)
			it++
		default:
			out.True = append(out.True, None)
			out.Pred = append(out.Pred, Some(pr[ip]))
			ip++
		}
	}

	return out, nil
}

// AlignDetections aligns the labels of two detection sets. Geometry is ignored.
func AlignDetections(groundTruth, predicted []common.Detection) (Alignment, error) {
	return Align(common.LabelsOf(groundTruth), common.LabelsOf(predicted))
}

// AlignClassification emits the single (truth, predicted) pair of a classification sample.
func AlignClassification(truth, predicted string) (Alignment, error) {
	t, err := Parse(truth)
	if err != nil {
		return Alignment{}, errors.Wrap(err, "ground truth")
	}
	p, err := Parse(predicted)
	if err != nil {
		return Alignment{}, errors.Wrap(err, "prediction")
	}
	return Alignment{True: []Label{t}, Pred: []Label{p}}, nil
}

func sortedNames(names []string) ([]string, error) {
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, errors.Wrapf(ErrInvalidLabel, "empty class name at index %d", i)
		}
	}
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return sorted, nil
}
