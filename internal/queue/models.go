package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a production request.
type Status string

const (
	StatusPending         Status = "pending"
	StatusResearching     Status = "researching"
	StatusResearched      Status = "researched"
	StatusScripting       Status = "scripting"
	StatusScripted        Status = "scripted"
	StatusGatheringAssets Status = "gathering_assets"
	StatusAssetsReady     Status = "assets_ready"
	StatusNarrating       Status = "narrating"
	StatusNarrated        Status = "narrated"
	StatusReviewing       Status = "reviewing"
	StatusApproved        Status = "approved"
	StatusAssembling      Status = "assembling"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusRejected        Status = "rejected"
)

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusResearching,
	StatusResearched,
	StatusScripting,
	StatusScripted,
	StatusGatheringAssets,
	StatusAssetsReady,
	StatusNarrating,
	StatusNarrated,
	StatusReviewing,
	StatusApproved,
	StatusAssembling,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusResearching:     {},
	StatusScripting:       {},
	StatusGatheringAssets: {},
	StatusNarrating:       {},
	StatusReviewing:       {},
	StatusAssembling:      {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each processing status back to the start of
// its stage so interrupted items are re-attempted from a clean boundary.
var stageRollbackTransitions = []statusTransition{
	{from: StatusResearching, to: StatusPending},
	{from: StatusScripting, to: StatusResearched},
	{from: StatusGatheringAssets, to: StatusScripted},
	{from: StatusNarrating, to: StatusAssetsReady},
	{from: StatusReviewing, to: StatusNarrated},
	{from: StatusAssembling, to: StatusApproved},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Rejected   int
	Completed  int
}

// Item represents one production request persisted in SQLite. Stage payloads
// are filled in as the pipeline advances.
type Item struct {
	ID                int64
	Topic             string
	AudienceTag       string
	TargetDurationSec int
	Status            Status
	ResearchJSON      string
	Script            string
	AssetsJSON        string
	NarrationPath     string
	ArtifactPath      string
	QualityReportJSON string
	PublishMetaJSON   string
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	LastHeartbeat     *time.Time
	NeedsReview       bool
	ReviewReason      string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsTerminal reports whether the item has reached an end state.
func (i Item) IsTerminal() bool {
	switch i.Status {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	}
	return false
}

// SetFailed marks the item failed with a human-readable reason.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = strings.TrimSpace(message)
	i.LastHeartbeat = nil
}

// SetRejected marks the item rejected by the quality gate. Rejection is
// terminal: the cause is content-intrinsic, so the item is never retried.
func (i *Item) SetRejected(reason string) {
	i.Status = StatusRejected
	i.NeedsReview = true
	i.ReviewReason = strings.TrimSpace(reason)
	i.ErrorMessage = strings.TrimSpace(reason)
	i.LastHeartbeat = nil
}
