package testsupport

import (
	"context"
	"testing"

	"shortform/internal/config"
	"shortform/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRequest enqueues a production request for tests using the provided store.
func NewRequest(t testing.TB, store *queue.Store, topic string) *queue.Item {
	t.Helper()

	item, err := store.NewRequest(context.Background(), topic, "", 0)
	if err != nil {
		t.Fatalf("store.NewRequest: %v", err)
	}
	return item
}
