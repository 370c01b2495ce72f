package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const itemColumns = "id, topic, audience_tag, target_duration_sec, status, research_json, script, assets_json, narration_path, artifact_path, quality_report_json, publish_meta_json, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat, needs_review, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		topic            string
		audienceTag      sql.NullString
		targetDuration   sql.NullInt64
		statusStr        string
		researchJSON     sql.NullString
		script           sql.NullString
		assetsJSON       sql.NullString
		narrationPath    sql.NullString
		artifactPath     sql.NullString
		qualityReport    sql.NullString
		publishMeta      sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&topic,
		&audienceTag,
		&targetDuration,
		&statusStr,
		&researchJSON,
		&script,
		&assetsJSON,
		&narrationPath,
		&artifactPath,
		&qualityReport,
		&publishMeta,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                id,
		Topic:             topic,
		AudienceTag:       audienceTag.String,
		TargetDurationSec: int(targetDuration.Int64),
		Status:            Status(statusStr),
		ResearchJSON:      researchJSON.String,
		Script:            script.String,
		AssetsJSON:        assetsJSON.String,
		NarrationPath:     narrationPath.String,
		ArtifactPath:      artifactPath.String,
		QualityReportJSON: qualityReport.String,
		PublishMetaJSON:   publishMeta.String,
		ErrorMessage:      errorMessage.String,
		ProgressStage:     progressStage.String,
		ProgressPercent:   progressPercent.Float64,
		ProgressMessage:   progressMessage.String,
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}
	item.ReviewReason = reviewReason.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func parseTimeString(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}
