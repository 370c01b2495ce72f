package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/retry"
	"shortform/internal/services"
	"shortform/internal/stage"
)

func (m *Manager) processItem(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	stg, ok := m.stageForStatus(item.Status)
	if !ok {
		logger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		m.waitForItemOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(services.WithStage(services.WithItemID(ctx, item.ID), stg.name), requestID)
	stageLogger := logging.WithContext(stageCtx, logger)
	if aware, ok := stg.handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, item); err != nil {
		stageLogger.Error("failed to transition item to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, item)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, item *queue.Item) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("topic", item.Topic))

	handler := stg.handler
	if handler == nil {
		err := fmt.Errorf("stage %s has no handler", stg.name)
		m.handleStageFailure(ctx, stg.name, item, err)
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, item); err != nil {
		m.handleStageFailure(ctx, stg.name, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	policy := m.stagePolicy(stg.name)
	work := func(attemptCtx context.Context) error {
		return m.executeWithHeartbeat(attemptCtx, handler, item)
	}
	var fallback retry.Fallback
	if provider, ok := handler.(stage.FallbackProvider); ok {
		fallback = func(fbCtx context.Context) error {
			return provider.Fallback(fbCtx, item)
		}
	}

	execErr := m.retrier.Run(ctx, stg.name, policy, work, fallback)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, item, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if item.Status == stg.processingStatus || item.Status == "" {
		item.Status = stg.doneStatus
	}
	item.LastHeartbeat = nil
	if item.Status == queue.StatusCompleted && item.ProgressPercent < 100 {
		item.ProgressPercent = 100
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)))
	m.setLastItem(item)

	if item.Status == queue.StatusCompleted {
		m.recordOutcome(queue.StatusCompleted)
		m.recordQuality(item)
		if err := m.notifier.NotifyProduced(ctx, item.Topic, item.ArtifactPath); err != nil {
			stageLogger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// stagePolicy resolves the configured retry bounds for a stage. Each attempt
// additionally runs under the stage timeout.
func (m *Manager) stagePolicy(name string) retry.Policy {
	configured := m.cfg.Retry.ForStage(name)
	return retry.Policy{
		MaxAttempts: configured.MaxAttempts,
		Delay:       time.Duration(configured.DelaySeconds) * time.Second,
	}
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	execCtx := ctx
	if timeout := m.cfg.Workflow.StageTimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	hbCtx, hbCancel := context.WithCancel(execCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := handler.Execute(execCtx, item)
	hbCancel()
	hbWG.Wait()

	if execErr != nil && errors.Is(execErr, context.DeadlineExceeded) && ctx.Err() == nil {
		return services.Wrap(services.ErrTimeout, "", "execute", "Stage exceeded its time budget", execErr)
	}
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing queue.Status, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = processing
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastItem(item)
	return nil
}
