package taxonomy

import (
	"fmt"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Label is a single entry of the closed violation label set.
type Label struct {
	Type     model.ViolationType
	Desc     string
	Severity string // "none", "minor", "major"
}

// Taxonomy is an ordered, closed set of labels. Order is significant: model
// outputs are indexed by position.
type Taxonomy struct {
	labels []Label
	index  map[model.ViolationType]int
}

// New builds a Taxonomy from labels. Duplicate types are rejected, and the set
// must contain the sentinel so a classifier can always report "nothing seen".
func New(labels []Label) (*Taxonomy, error) {
	t := &Taxonomy{
		labels: make([]Label, len(labels)),
		index:  make(map[model.ViolationType]int, len(labels)),
	}
	copy(t.labels, labels)
	for i, l := range labels {
		if l.Type == "" {
			return nil, fmt.Errorf("taxonomy: label %d has empty type", i)
		}
		if _, dup := t.index[l.Type]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate label %q", l.Type)
		}
		t.index[l.Type] = i
	}
	if _, ok := t.index[model.NoViolation]; !ok {
		return nil, fmt.Errorf("taxonomy: missing sentinel label %q", model.NoViolation)
	}
	return t, nil
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t, err := New(DefaultLabels())
	if err != nil {
		panic(err)
	}
	return t
}

// Labels returns a copy of the labels in model-output order.
func (t *Taxonomy) Labels() []Label {
	out := make([]Label, len(t.labels))
	copy(out, t.labels)
	return out
}

// Len returns the number of labels.
func (t *Taxonomy) Len() int { return len(t.labels) }

// Contains reports whether vt is a member of the set.
func (t *Taxonomy) Contains(vt model.ViolationType) bool {
	_, ok := t.index[vt]
	return ok
}

// At returns the label at position i of the model output.
func (t *Taxonomy) At(i int) (Label, bool) {
	if i < 0 || i >= len(t.labels) {
		return Label{}, false
	}
	return t.labels[i], true
}

// Lookup returns the label for vt.
func (t *Taxonomy) Lookup(vt model.ViolationType) (Label, bool) {
	i, ok := t.index[vt]
	if !ok {
		return Label{}, false
	}
	return t.labels[i], true
}
