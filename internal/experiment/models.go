package experiment

import (
	"fmt"
	"time"
)

// Dimension identifies what a variation changes about the published content.
type Dimension string

const (
	DimensionTitle    Dimension = "title"
	DimensionTags     Dimension = "tags"
	DimensionSchedule Dimension = "posting_time"
)

// Dimensions lists every supported dimension in generation order.
var Dimensions = []Dimension{DimensionTitle, DimensionTags, DimensionSchedule}

// Payload carries the concrete change a variation applies. Only the field
// matching the variation's dimension is set.
type Payload struct {
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	PostHour int      `json:"post_hour,omitempty"`
}

// Variation is one candidate treatment within an experiment group. The group
// is keyed by (content, platform, dimension). Baseline records the control
// value the candidate payload competes against, and ExposureFraction is the
// per-variation probability that publishing applies the candidate.
type Variation struct {
	ID               string    `json:"id"`
	ContentID        int64     `json:"content_id"`
	Platform         string    `json:"platform"`
	Dimension        Dimension `json:"dimension"`
	Index            int       `json:"index"`
	Baseline         Payload   `json:"baseline"`
	Payload          Payload   `json:"payload"`
	ExposureFraction float64   `json:"exposure_fraction"`
	CreatedAt        time.Time `json:"created_at"`
}

// Group returns the experiment group this variation belongs to.
func (v Variation) Group() GroupKey {
	return GroupKey{ContentID: v.ContentID, Platform: v.Platform, Dimension: v.Dimension}
}

// VariationID builds the stable identifier for a variation. The same inputs
// always produce the same identifier, which is what makes outcome recording
// idempotent across restarts.
func VariationID(contentID int64, platform string, dimension Dimension, index int) string {
	return fmt.Sprintf("%d_%s_%s_%d", contentID, platform, dimension, index)
}

// Outcome holds the latest observed metrics for a variation. Re-recording an
// outcome replaces the previous one.
type Outcome struct {
	VariationID string             `json:"variation_id"`
	Metrics     map[string]float64 `json:"metrics"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

// GroupKey identifies an experiment group.
type GroupKey struct {
	ContentID int64
	Platform  string
	Dimension Dimension
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.ContentID, k.Platform, k.Dimension)
}

// Resolution is the decided winner of a group. Uplift compares the winner to
// the runner-up; confidence is a heuristic in [0, 100].
type Resolution struct {
	Group       GroupKey  `json:"group"`
	WinnerID    string    `json:"winner_id"`
	WinnerScore float64   `json:"winner_score"`
	Uplift      float64   `json:"uplift"`
	Confidence  float64   `json:"confidence"`
	ResolvedAt  time.Time `json:"resolved_at"`
}
