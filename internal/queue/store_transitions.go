package queue

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ResetStuckProcessing resets items in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	return s.rollbackProcessing(ctx, "Reset from stuck processing", nil)
}

// ReclaimStaleProcessing returns items stuck in processing back to the start of
// their current stage when heartbeats expire.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.rollbackProcessing(ctx, "Reclaimed from stale processing", &cutoff)
}

func (s *Store) rollbackProcessing(ctx context.Context, label string, cutoff *time.Time) (int64, error) {
	caseClause := ""
	args := make([]any, 0, len(stageRollbackTransitions)*3+3)
	for _, transition := range stageRollbackTransitions {
		caseClause += " WHEN ? THEN ?"
		args = append(args, transition.from, transition.to)
	}
	args = append(args, label, time.Now().UTC().Format(time.RFC3339Nano))
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}

	query := `UPDATE queue_items
        SET status = CASE status` + caseClause + ` ELSE status END,
            progress_stage = ?, progress_percent = 0, progress_message = NULL,
            last_heartbeat = NULL, updated_at = ?
        WHERE status IN (` + makePlaceholders(len(stageRollbackTransitions)) + `)`

	if cutoff != nil {
		query += ` AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`
		args = append(args, cutoff.UTC().Format(time.RFC3339Nano))
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("rollback processing items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing. Rejected
// items are deliberately excluded: a quality rejection must be revised
// upstream, not re-run.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
             SET status = ?, error_message = NULL, progress_stage = NULL,
                 progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending, now, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := []any{StatusPending, now, StatusFailed}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, error_message = NULL, progress_stage = NULL,
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// FailProcessing marks all in-flight items failed with the supplied reason.
// Used on daemon shutdown so nothing is left claiming to be processing.
func (s *Store) FailProcessing(ctx context.Context, reason string) (int64, error) {
	placeholders := makePlaceholders(len(stageRollbackTransitions))
	args := []any{StatusFailed, reason, time.Now().UTC().Format(time.RFC3339Nano)}
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, error_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("fail processing items: %w", err)
	}
	return res.RowsAffected()
}
