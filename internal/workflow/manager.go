package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"shortform/internal/config"
	"shortform/internal/notifications"
	"shortform/internal/queue"
	"shortform/internal/retry"
)

// Manager coordinates queue processing through the registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	retrier      *retry.Executor
	heartbeat    *HeartbeatMonitor
	pollInterval time.Duration
	itemPause    time.Duration

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	statusOrder  []queue.Status

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr      error
	lastItem     *queue.Item
	stats        Stats
	qualitySum   float64
	qualityCount int
	started      time.Time
}

// Stats counts terminal outcomes since the manager started. AvgQuality is
// the mean overall quality score across completed items, zero when nothing
// completed yet.
type Stats struct {
	Produced   int
	Failed     int
	Rejected   int
	AvgQuality float64
}

// NewManager constructs a workflow manager with default collaborators.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		retrier:      retry.NewExecutor(retry.WithLogger(logger)),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		itemPause:    time.Duration(cfg.Workflow.ItemPauseSeconds) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// LastError returns the most recent processing error.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastItem returns a copy of the most recently touched item.
func (m *Manager) LastItem() *queue.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastItem == nil {
		return nil
	}
	clone := *m.lastItem
	return &clone
}

// SessionStats reports terminal outcome counts since Start.
func (m *Manager) SessionStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := m.stats
	if m.qualityCount > 0 {
		stats.AvgQuality = m.qualitySum / float64(m.qualityCount)
	}
	return stats
}

// Uptime reports how long the manager has been running.
func (m *Manager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.started.IsZero() {
		return 0
	}
	return time.Since(m.started)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	clone := *item
	m.lastItem = &clone
	m.mu.Unlock()
}

// recordQuality folds a completed item's overall quality score into the
// session average.
func (m *Manager) recordQuality(item *queue.Item) {
	if item.QualityReportJSON == "" {
		return
	}
	var report struct {
		Overall float64 `json:"overall"`
	}
	if err := json.Unmarshal([]byte(item.QualityReportJSON), &report); err != nil {
		return
	}
	m.mu.Lock()
	m.qualitySum += report.Overall
	m.qualityCount++
	m.mu.Unlock()
}

func (m *Manager) recordOutcome(status queue.Status) {
	m.mu.Lock()
	switch status {
	case queue.StatusCompleted:
		m.stats.Produced++
	case queue.StatusRejected:
		m.stats.Rejected++
	case queue.StatusFailed:
		m.stats.Failed++
	}
	m.mu.Unlock()
}
