package model

// ArtifactRef is an opaque reference to a captured clip: a local path or a URI
// such as s3://bucket/incident_1700000000.mp4.
type ArtifactRef string

func (r ArtifactRef) String() string { return string(r) }

// ViolationType is one of the closed set of labels a classifier may emit.
type ViolationType string

const (
	RedLight    ViolationType = "Red Light Violation"
	StopSign    ViolationType = "Stop Sign Violation"
	IllegalLane ViolationType = "Illegal Lane Crossing"
	WrongWay    ViolationType = "Wrong Way Driving"
	BusLane     ViolationType = "Bus Lane Infringement"
	NoViolation ViolationType = "No Violation Detected" // sentinel: nothing to report
)

// IsSentinel reports whether t short-circuits reporting.
func (t ViolationType) IsSentinel() bool { return t == NoViolation }

// ClassificationRecord is the output of the Classify stage.
type ClassificationRecord struct {
	ViolationType   ViolationType `json:"violation_type"`
	ConfidenceScore float64       `json:"confidence_score"`
	Artifact        ArtifactRef   `json:"footage_path"`
}
