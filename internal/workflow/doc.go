// Package workflow drives queued production requests through the staged
// pipeline: research, scripting, asset gathering, narration, quality review,
// and assembly. Each stage moves an item between start, processing, and done
// statuses; failures are classified into retryable and terminal outcomes, and
// a heartbeat monitor reclaims items orphaned by crashes.
package workflow
