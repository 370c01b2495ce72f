package workflow

import (
	"context"
	"errors"
	"time"

	"shortform/internal/logging"
	"shortform/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.statusOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.started = time.Now()
	m.stats = Stats{}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleItems(ctx, logger); err != nil {
			logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"))
		}

		item, err := m.store.NextForStatuses(ctx, m.statusOrder...)
		if err != nil {
			m.setLastError(err)
			logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"))
			m.waitForItemOrShutdown(ctx)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processItem(ctx, logger, item); err != nil && errors.Is(err, context.Canceled) {
			return
		}
		m.pauseBetweenItems(ctx)
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// pauseBetweenItems spaces out successive stage executions so external
// services are not hammered when the queue is deep.
func (m *Manager) pauseBetweenItems(ctx context.Context) {
	if m.itemPause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(m.itemPause):
	}
}

// ProcessNext runs a single stage transition for the oldest actionable item.
// It powers one-shot production runs; the daemon uses Start instead.
func (m *Manager) ProcessNext(ctx context.Context) (*queue.Item, error) {
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	item, err := m.store.NextForStatuses(ctx, m.statusOrder...)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	if err := m.processItem(ctx, logger, item); err != nil {
		return item, err
	}
	return item, nil
}

// ProcessUntilSettled advances a single item through every stage until it
// reaches a terminal status. Used by the one-shot produce command.
func (m *Manager) ProcessUntilSettled(ctx context.Context, itemID int64) (*queue.Item, error) {
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	for {
		item, err := m.store.GetByID(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if item == nil || item.IsTerminal() {
			return item, nil
		}
		if _, ok := m.stageForStatus(item.Status); !ok {
			return item, nil
		}
		if err := m.processItem(ctx, logger, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return item, err
			}
			// Failure state is already persisted; report the final item.
			return m.store.GetByID(ctx, itemID)
		}
	}
}
