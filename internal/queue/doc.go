// Package queue persists production requests and drives their status
// lifecycle in SQLite.
//
// Concurrency behavior:
//   - SQLite writes use WAL mode with a busy timeout plus a short bounded
//     retry on SQLITE_BUSY so concurrent stage updates do not surface
//     transient lock errors.
//   - Heartbeats distinguish live processing items from abandoned ones;
//     stale items are reclaimed back to the start of their current stage.
//
// The store owns schema creation and version checks. An item's per-stage
// payloads (research, script, assets, narration, artifact, quality report)
// are persisted as they are produced so a failed run can be inspected even
// though re-running always starts from research again.
package queue
