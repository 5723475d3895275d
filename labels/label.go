// Package labels - Label values and the sorted-merge aligner used for confusion matrices.
package labels

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// NullName is how an absent label is rendered in reports and result files.
const NullName = "null"

// NoneName renders None in displays that also contain a real class named NullName.
const NoneName = "<none>"

// ErrInvalidLabel is returned when a label is empty.
var ErrInvalidLabel = errors.New("invalid label")

// Label is either a class name or None, meaning "no corresponding detection on this side".
//
// The zero value is None.
type Label struct {
	name  string
	valid bool
}

// None is the absent label.
var None = Label{}

// Some wraps a class name.
func Some(name string) Label {
	return Label{name: name, valid: true}
}

// Parse validates a raw class name and wraps it.
//
// Arguments:
//   - name: The raw class name as read from an annotation or a prediction.
//
// Returns:
//   - Label: The wrapped label.
//   - error: ErrInvalidLabel when the name is empty or only whitespace.
func Parse(name string) (Label, error) {
	if strings.TrimSpace(name) == "" {
		return None, errors.Wrapf(ErrInvalidLabel, "empty class name %q", name)
	}
	return Some(name), nil
}

// Get returns the class name and whether the label is present.
func (l Label) Get() (string, bool) {
	return l.name, l.valid
}

// IsNone reports whether l is the absent label.
func (l Label) IsNone() bool {
	return !l.valid
}

func (l Label) String() string {
	if !l.valid {
		return NullName
	}
	return l.name
}

// DisplayNames renders labels for axes and tables. None is shown as NullName unless a real
// class carries that name, in which case None becomes NoneName so the two stay apart.
func DisplayNames(ls []Label) []string {
	none := NullName
	for _, l := range ls {
		if l.valid && l.name == NullName {
			none = NoneName
			break
		}
	}

	out := make([]string, len(ls))
	for i, l := range ls {
		if l.valid {
			out[i] = l.name
		} else {
			out[i] = none
		}
	}
	return out
}

// MarshalJSON encodes None as JSON null and real labels as strings.
func (l Label) MarshalJSON() ([]byte, error) {
	if !l.valid {
		return []byte("null"), nil
	}
	return jsoniter.Marshal(l.name)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (l *Label) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = None
		return nil
	}
	var name string
	if err := jsoniter.Unmarshal(data, &name); err != nil {
		return errors.Wrap(err, "decode label")
	}
	parsed, err := Parse(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Compare orders labels lexicographically by name, with None after every real label.
// It returns -1, 0 or +1 and is suitable for slices.SortFunc.
func Compare(a, b Label) int {
	switch {
	case a.valid && b.valid:
		return strings.Compare(a.name, b.name)
	case a.valid:
		return -1
	case b.valid:
		return 1
	default:
		return 0
	}
}
