package trafficwatch

// Detection is the classification of one clip.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Detection struct {
	Type       string  `json:"type"`               // e.g. "Red Light Violation", "No Violation Detected"
	Violation  bool    `json:"violation"`          // false for No Violation Detected
	Severity   string  `json:"severity,omitempty"` // major, minor; empty when no violation
	Confidence float64 `json:"confidence"`         // in [0, 1]
}
