package stage

import (
	"context"
	"log/slog"

	"shortform/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// FallbackProvider is implemented by handlers that can supply a substitute
// result after every execute attempt fails.
type FallbackProvider interface {
	Fallback(context.Context, *queue.Item) error
}

// LoggerAware is implemented by handlers that accept a stage-scoped logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
