package daemon

import (
	"context"
	"testing"
	"time"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/testsupport"
	"shortform/internal/workflow"
)

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), noopNotifier{})
	manager.ConfigureStages(workflow.StageSet{})

	d, err := New(cfg, store, logging.NewNop(), manager, noopNotifier{})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

type noopNotifier struct{}

func (noopNotifier) NotifyProduced(context.Context, string, string) error { return nil }
func (noopNotifier) NotifyRejected(context.Context, string, string) error { return nil }
func (noopNotifier) NotifyError(context.Context, error, string) error     { return nil }
func (noopNotifier) NotifyDaemonStarted(context.Context) error            { return nil }
func (noopNotifier) NotifyDaemonStopped(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopNotifier) TestNotification(context.Context) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testConfig(t)
	first := newTestDaemon(t, cfg)
	second := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	t.Cleanup(func() { first.Stop(ctx) })

	if err := second.Start(ctx); err == nil {
		second.Stop(ctx)
		t.Fatal("second instance must be refused")
	}
}

func TestDaemonStopReleasesLock(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	d.Stop(ctx)

	replacement := newTestDaemon(t, cfg)
	if err := replacement.Start(ctx); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	replacement.Stop(ctx)
}
