package experiment

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shortform/internal/config"
)

//go:embed schema.sql
var schemaFS embed.FS

const schemaVersion = 2

// ErrSchemaMismatch is returned when the experiments database was created by
// an incompatible version.
var ErrSchemaMismatch = errors.New("experiments database schema version mismatch")

// Store persists variations, outcomes, and resolutions in SQLite so that
// experiments survive daemon restarts.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens the experiments database under the configured state
// directory, creating the schema on first use.
func OpenStore(cfg *config.Config) (*Store, error) {
	return OpenStorePath(filepath.Join(cfg.Paths.StateDir, "experiments.db"))
}

// OpenStorePath opens or creates the experiments database at path.
func OpenStorePath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create experiments state directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open experiments database: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return s.createSchema(ctx)
	}
	if err != nil {
		return fmt.Errorf("inspect experiments schema: %w", err)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("read experiments schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: have %d, want %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read embedded experiments schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("create experiments schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("record experiments schema version: %w", err)
	}
	return nil
}

// SaveVariations stores a generated variation set. Existing variations with
// the same identifiers are left untouched so repeated generation is a no-op.
func (s *Store) SaveVariations(ctx context.Context, variations []Variation) error {
	for _, v := range variations {
		baseline, err := json.Marshal(v.Baseline)
		if err != nil {
			return fmt.Errorf("encode variation baseline: %w", err)
		}
		payload, err := json.Marshal(v.Payload)
		if err != nil {
			return fmt.Errorf("encode variation payload: %w", err)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO variations (id, content_id, platform, dimension, idx, baseline, payload, exposure_fraction, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.ContentID, v.Platform, string(v.Dimension), v.Index, string(baseline), string(payload),
			v.ExposureFraction, v.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("store variation %s: %w", v.ID, err)
		}
	}
	return nil
}

// GroupVariations returns the stored variations for one experiment group,
// ordered by index.
func (s *Store) GroupVariations(ctx context.Context, key GroupKey) ([]Variation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_id, platform, dimension, idx, baseline, payload, exposure_fraction, created_at FROM variations
         WHERE content_id = ? AND platform = ? AND dimension = ? ORDER BY idx`,
		key.ContentID, key.Platform, string(key.Dimension))
	if err != nil {
		return nil, fmt.Errorf("query variations: %w", err)
	}
	defer rows.Close()
	return scanVariations(rows)
}

// ContentVariations returns every stored variation for a piece of content.
func (s *Store) ContentVariations(ctx context.Context, contentID int64) ([]Variation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_id, platform, dimension, idx, baseline, payload, exposure_fraction, created_at FROM variations
         WHERE content_id = ? ORDER BY platform, dimension, idx`, contentID)
	if err != nil {
		return nil, fmt.Errorf("query variations: %w", err)
	}
	defer rows.Close()
	return scanVariations(rows)
}

// VariationByID returns one stored variation, or nil when the identifier is
// unknown.
func (s *Store) VariationByID(ctx context.Context, id string) (*Variation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_id, platform, dimension, idx, baseline, payload, exposure_fraction, created_at
         FROM variations WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query variation %s: %w", id, err)
	}
	defer rows.Close()

	variations, err := scanVariations(rows)
	if err != nil {
		return nil, err
	}
	if len(variations) == 0 {
		return nil, nil
	}
	return &variations[0], nil
}

func scanVariations(rows *sql.Rows) ([]Variation, error) {
	var variations []Variation
	for rows.Next() {
		var (
			v         Variation
			dimension string
			baseline  string
			payload   string
			createdAt string
		)
		if err := rows.Scan(&v.ID, &v.ContentID, &v.Platform, &dimension, &v.Index,
			&baseline, &payload, &v.ExposureFraction, &createdAt); err != nil {
			return nil, fmt.Errorf("scan variation: %w", err)
		}
		v.Dimension = Dimension(dimension)
		if err := json.Unmarshal([]byte(baseline), &v.Baseline); err != nil {
			return nil, fmt.Errorf("decode variation baseline: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &v.Payload); err != nil {
			return nil, fmt.Errorf("decode variation payload: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			v.CreatedAt = t
		}
		variations = append(variations, v)
	}
	return variations, rows.Err()
}

// Groups lists every distinct experiment group with stored variations.
func (s *Store) Groups(ctx context.Context) ([]GroupKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT content_id, platform, dimension FROM variations ORDER BY content_id, platform, dimension`)
	if err != nil {
		return nil, fmt.Errorf("query experiment groups: %w", err)
	}
	defer rows.Close()

	var keys []GroupKey
	for rows.Next() {
		var (
			key       GroupKey
			dimension string
		)
		if err := rows.Scan(&key.ContentID, &key.Platform, &dimension); err != nil {
			return nil, fmt.Errorf("scan experiment group: %w", err)
		}
		key.Dimension = Dimension(dimension)
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RecordOutcome upserts the metrics for a variation. The latest write wins,
// so re-delivering the same outcome is harmless.
func (s *Store) RecordOutcome(ctx context.Context, outcome Outcome) error {
	metrics, err := json.Marshal(outcome.Metrics)
	if err != nil {
		return fmt.Errorf("encode outcome metrics: %w", err)
	}
	recordedAt := outcome.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcomes (variation_id, metrics, recorded_at) VALUES (?, ?, ?)
         ON CONFLICT(variation_id) DO UPDATE SET metrics = excluded.metrics, recorded_at = excluded.recorded_at`,
		outcome.VariationID, string(metrics), recordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store outcome for %s: %w", outcome.VariationID, err)
	}
	return nil
}

// OutcomeFor returns the stored outcome for a variation, or nil when none has
// been recorded yet.
func (s *Store) OutcomeFor(ctx context.Context, variationID string) (*Outcome, error) {
	var (
		metrics    string
		recordedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT metrics, recorded_at FROM outcomes WHERE variation_id = ?`, variationID).
		Scan(&metrics, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query outcome for %s: %w", variationID, err)
	}

	outcome := &Outcome{VariationID: variationID}
	if err := json.Unmarshal([]byte(metrics), &outcome.Metrics); err != nil {
		return nil, fmt.Errorf("decode outcome metrics: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
		outcome.RecordedAt = t
	}
	return outcome, nil
}

// SaveResolution records the decided winner for a group, replacing any
// earlier decision.
func (s *Store) SaveResolution(ctx context.Context, res Resolution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resolutions (content_id, platform, dimension, winner_id, winner_score, uplift, confidence, resolved_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(content_id, platform, dimension) DO UPDATE SET
             winner_id = excluded.winner_id, winner_score = excluded.winner_score,
             uplift = excluded.uplift, confidence = excluded.confidence, resolved_at = excluded.resolved_at`,
		res.Group.ContentID, res.Group.Platform, string(res.Group.Dimension),
		res.WinnerID, res.WinnerScore, res.Uplift, res.Confidence,
		res.ResolvedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store resolution for %s: %w", res.Group, err)
	}
	return nil
}

// Resolutions returns every stored resolution.
func (s *Store) Resolutions(ctx context.Context) ([]Resolution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_id, platform, dimension, winner_id, winner_score, uplift, confidence, resolved_at
         FROM resolutions ORDER BY content_id, platform, dimension`)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []Resolution
	for rows.Next() {
		var (
			res        Resolution
			dimension  string
			resolvedAt string
		)
		if err := rows.Scan(&res.Group.ContentID, &res.Group.Platform, &dimension,
			&res.WinnerID, &res.WinnerScore, &res.Uplift, &res.Confidence, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		res.Group.Dimension = Dimension(dimension)
		if t, err := time.Parse(time.RFC3339Nano, resolvedAt); err == nil {
			res.ResolvedAt = t
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, rows.Err()
}
