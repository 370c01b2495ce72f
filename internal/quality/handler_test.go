package quality

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
)

func newStageHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.Default()
	return NewHandler(&cfg, logging.NewNop())
}

func reviewableItem(t *testing.T, script string) *queue.Item {
	t.Helper()
	item := &queue.Item{ID: 1, Topic: "Test Person", Script: script}
	require.NoError(t, item.SetResearch(approvableResearch()))
	require.NoError(t, item.SetAssets([]queue.Asset{{SourceID: "pexels:1", URL: "https://img.example/1.jpg"}}))
	return item
}

func TestHandlerExecuteApprovesAndAttachesReport(t *testing.T) {
	handler := newStageHandler(t)
	item := reviewableItem(t, approvableScript)

	require.NoError(t, handler.Execute(context.Background(), item))
	require.NotEmpty(t, item.QualityReportJSON)

	var report Report
	require.NoError(t, json.Unmarshal([]byte(item.QualityReportJSON), &report))
	assert.True(t, report.Approved)
}

func TestHandlerExecuteRejectionIsPermanent(t *testing.T) {
	handler := newStageHandler(t)
	item := reviewableItem(t, approvableScript+" He was a happy slave.")

	err := handler.Execute(context.Background(), item)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrContentRejected)
	assert.True(t, services.IsPermanent(err), "rejection must never be retried")

	// The report is attached even when the item is rejected.
	var report Report
	require.NoError(t, json.Unmarshal([]byte(item.QualityReportJSON), &report))
	assert.False(t, report.Approved)
	assert.NotEmpty(t, report.Issues)
}

func TestHandlerPrepareRequiresScript(t *testing.T) {
	handler := newStageHandler(t)
	err := handler.Prepare(context.Background(), &queue.Item{})
	assert.ErrorIs(t, err, services.ErrValidation)
}
