package workflow

import (
	"context"

	"shortform/internal/queue"
	"shortform/internal/stage"
)

// HealthReport aggregates stage readiness and queue counts.
type HealthReport struct {
	Stages []stage.Health
	Queue  queue.HealthSummary
	Ready  bool
}

// Health runs every registered stage health check and summarizes the queue.
func (m *Manager) Health(ctx context.Context) (HealthReport, error) {
	report := HealthReport{Ready: true}
	for _, stg := range m.stages {
		if stg.handler == nil {
			report.Stages = append(report.Stages, stage.Unhealthy(stg.name, "handler not configured"))
			report.Ready = false
			continue
		}
		health := stg.handler.HealthCheck(ctx)
		if !health.Ready {
			report.Ready = false
		}
		report.Stages = append(report.Stages, health)
	}

	summary, err := m.store.Health(ctx)
	if err != nil {
		return report, err
	}
	report.Queue = summary
	return report, nil
}
