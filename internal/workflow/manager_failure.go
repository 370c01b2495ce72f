package workflow

import (
	"context"
	"errors"
	"strings"

	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, base).With(logging.String("component", "workflow-manager"))

	status := services.FailureStatus(stageErr)
	message := m.classifyStageFailure(stageName, stageErr)
	if status == queue.StatusRejected {
		item.SetRejected(message)
	} else {
		item.SetFailed(message)
	}

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.String("resolved_status", string(status)),
		logging.String("error_message", message),
		logging.Error(stageErr))

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	m.recordOutcome(status)

	var notifyErr error
	if status == queue.StatusRejected {
		notifyErr = m.notifier.NotifyRejected(ctx, item.Topic, message)
	} else {
		notifyErr = m.notifier.NotifyError(ctx, stageErr, stageName)
	}
	if notifyErr != nil {
		logger.Warn("failure notification failed", logging.Error(notifyErr))
	}
}

func (m *Manager) classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageName + " failed without error detail"
	}
	message := strings.TrimSpace(services.Details(stageErr).Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = stageName + " failed"
	}
	return message
}
