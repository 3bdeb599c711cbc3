package trafficwatch

import "github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"

// Label describes one violation type the classifier can emit.
type Label struct {
	Type        string
	Description string
	Severity    string
}

// Labels returns the violation types in model output order. This is
// read-only; consumers can inspect labels but not modify them.
func (d *Detector) Labels() []Label {
	return labelsOf(d.taxonomy)
}

func labelsOf(tax *taxonomy.Taxonomy) []Label {
	src := tax.Labels()
	out := make([]Label, len(src))
	for i, l := range src {
		out[i] = Label{Type: string(l.Type), Description: l.Desc, Severity: l.Severity}
	}
	return out
}
