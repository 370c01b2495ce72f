package quality

// DimensionScore is one weighted component of the composite score.
type DimensionScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// Report is the outcome of a gate evaluation. It is attached to the queue
// item so operators can see why content was approved or rejected.
type Report struct {
	Dimensions      []DimensionScore `json:"dimensions"`
	Overall         float64          `json:"overall"`
	Issues          []string         `json:"issues,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Approved        bool             `json:"approved"`
}

// Dimension returns the named dimension score, or a zero value when the
// dimension is not present.
func (r Report) Dimension(name string) DimensionScore {
	for _, d := range r.Dimensions {
		if d.Name == name {
			return d
		}
	}
	return DimensionScore{}
}

// Dimension names used in reports.
const (
	DimensionAccuracy     = "historical_accuracy"
	DimensionSensitivity  = "cultural_sensitivity"
	DimensionEducational  = "educational_value"
	DimensionVerification = "fact_verification"
	DimensionLanguage     = "language_quality"
)
