package taxonomy

import "github.com/crimson-sun/trafficwatch/internal/model"

// DefaultLabels returns the labels an intersection classifier is trained on.
// The order matches the output layer expected by the ONNX backend.
func DefaultLabels() []Label {
	return []Label{
		{Type: model.RedLight, Desc: "Vehicle crossed the stop line while the signal was red", Severity: "major"},
		{Type: model.StopSign, Desc: "Vehicle did not come to a complete stop at a stop sign", Severity: "minor"},
		{Type: model.IllegalLane, Desc: "Vehicle crossed a solid or restricted lane line", Severity: "minor"},
		{Type: model.WrongWay, Desc: "Vehicle moving against the direction of a one-way street", Severity: "major"},
		{Type: model.BusLane, Desc: "Vehicle driving in a dedicated bus or bike lane", Severity: "minor"},
		{Type: model.NoViolation, Desc: "No violation in the clip", Severity: "none"},
	}
}
