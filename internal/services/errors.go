package services

import (
	"errors"
	"fmt"
	"strings"

	"shortform/internal/queue"
)

var (
	ErrExternalTool    = errors.New("external tool error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
	ErrContentRejected = errors.New("content rejected")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsPermanent reports whether an error should never be retried. Content
// rejections and validation or configuration failures are intrinsic to the
// request, so spending retry budget on them cannot help.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrContentRejected) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfiguration)
}

// FailureStatus maps a stage error to the queue status the workflow manager
// should persist after the stage fails. Content rejections land in the
// terminal rejected state so they are never picked up for another attempt.
func FailureStatus(err error) queue.Status {
	if errors.Is(err, ErrContentRejected) {
		return queue.StatusRejected
	}
	return queue.StatusFailed
}

// Details extracts a human-readable message from a wrapped stage error,
// stripping the sentinel prefix when present.
type ErrorDetails struct {
	Message string
}

// Details returns the displayable portion of a stage error.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	msg := err.Error()
	for _, marker := range []error{ErrExternalTool, ErrValidation, ErrConfiguration, ErrNotFound, ErrTimeout, ErrTransient, ErrContentRejected} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			msg = strings.TrimPrefix(msg, prefix)
			break
		}
	}
	return ErrorDetails{Message: msg}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
