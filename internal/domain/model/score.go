package model

// Contribution is one signed feature attribution in logit (or stat) units.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Model family names.
const (
	FamilySleeper    = "sleeper"
	FamilyBust       = "bust"
	FamilyRegression = "regression"
)

// ModelScore is the output of one scorer for one player key.
type ModelScore struct {
	Model         string
	Score         float64 // 0-100 for classifiers
	Probability   float64 // calibrated, [0,1]
	Confidence    float64 // [0,1]
	LowConfidence bool
	Degraded      bool
	Explanation   []Contribution

	// Regression-only fields, in the domain's primary stat units.
	Direction float64
	Magnitude float64
	Lower     float64
	Upper     float64
}
