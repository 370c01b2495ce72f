package experiment

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"shortform/internal/config"
	"shortform/internal/logging"
)

const lockStripes = 16

// Engine coordinates variation experiments: it decides which items are
// exposed, generates their variation sets, records outcomes, and resolves
// winners. Safe for concurrent use; groups are locked independently.
type Engine struct {
	cfg    config.Experiments
	store  *Store
	logger *slog.Logger
	now    func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	stripes [lockStripes]sync.Mutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRandSource replaces the exposure coin's randomness, for tests.
func WithRandSource(src rand.Source) EngineOption {
	return func(e *Engine) {
		e.rand = rand.New(src)
	}
}

// WithClock replaces the engine's clock, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an Engine backed by the given store.
func NewEngine(cfg config.Experiments, store *Store, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:    cfg,
		store:  store,
		logger: logging.NewNop(),
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ShouldExpose flips the weighted exposure coin for one stored variation:
// true with the probability saved as that variation's exposure fraction. When
// experiments are disabled, or the variation is unknown, nothing is exposed.
func (e *Engine) ShouldExpose(ctx context.Context, variationID string) (bool, error) {
	if !e.cfg.Enabled {
		return false, nil
	}
	variation, err := e.store.VariationByID(ctx, variationID)
	if err != nil {
		return false, err
	}
	if variation == nil {
		return false, nil
	}
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rand.Float64() < variation.ExposureFraction, nil
}

// Generate produces and persists the variation set for a piece of content on
// one platform, stamping each variation with the baseline it competes against
// and the configured exposure fraction. Generation is deterministic, so
// calling it again for the same content yields the same set and changes
// nothing.
func (e *Engine) Generate(ctx context.Context, contentID int64, topic, platform string, baseline Payload) ([]Variation, error) {
	if !e.cfg.Enabled {
		return nil, nil
	}
	variations := GenerateVariations(contentID, topic, platform, baseline, e.cfg.ExposureFraction, e.cfg.MaxPerDimension, e.now())
	if len(variations) == 0 {
		return nil, nil
	}
	for _, group := range variationGroups(variations) {
		lock := &e.stripes[stripeFor(group.key)]
		lock.Lock()
		err := e.store.SaveVariations(ctx, group.variations)
		lock.Unlock()
		if err != nil {
			return nil, err
		}
	}
	e.logger.Info("experiment variations generated",
		logging.String(logging.FieldEventType, "experiment_generated"),
		logging.Int64(logging.FieldItemID, contentID),
		logging.String("platform", platform),
		logging.Int("variations", len(variations)))
	return variations, nil
}

type variationGroup struct {
	key        GroupKey
	variations []Variation
}

// variationGroups splits a variation set by group, preserving order.
func variationGroups(variations []Variation) []variationGroup {
	var groups []variationGroup
	index := map[GroupKey]int{}
	for _, v := range variations {
		key := v.Group()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, variationGroup{key: key})
		}
		groups[i].variations = append(groups[i].variations, v)
	}
	return groups
}

// RecordOutcome stores the observed metrics for a variation, under the same
// group lock that resolution takes so a resolve sees either all of an outcome
// write or none of it. The latest delivery wins; recording the same outcome
// twice is a no-op.
func (e *Engine) RecordOutcome(ctx context.Context, variationID string, metrics map[string]float64) error {
	variation, err := e.store.VariationByID(ctx, variationID)
	if err != nil {
		return err
	}
	if variation == nil {
		return fmt.Errorf("record outcome: unknown variation %s", variationID)
	}

	lock := &e.stripes[stripeFor(variation.Group())]
	lock.Lock()
	defer lock.Unlock()
	return e.store.RecordOutcome(ctx, Outcome{
		VariationID: variationID,
		Metrics:     metrics,
		RecordedAt:  e.now(),
	})
}

// ResolveGroup scores every variation in a group that has a recorded outcome
// and persists the winner. Groups with fewer than two scored variations are
// skipped and return nil without error: one data point is not an experiment.
func (e *Engine) ResolveGroup(ctx context.Context, key GroupKey) (*Resolution, error) {
	lock := &e.stripes[stripeFor(key)]
	lock.Lock()
	defer lock.Unlock()

	variations, err := e.store.GroupVariations(ctx, key)
	if err != nil {
		return nil, err
	}

	type scored struct {
		id    string
		score float64
	}
	var entries []scored
	for _, v := range variations {
		outcome, err := e.store.OutcomeFor(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		if outcome == nil {
			continue
		}
		entries = append(entries, scored{id: v.ID, score: scoreOutcome(key.Platform, outcome.Metrics)})
	}

	if len(entries) < 2 {
		e.logger.Debug("experiment group skipped",
			logging.String(logging.FieldEventType, "experiment_skipped"),
			logging.String("group", key.String()),
			logging.Int("scored", len(entries)))
		return nil, nil
	}

	winner := entries[0]
	scores := make([]float64, 0, len(entries))
	for _, entry := range entries {
		scores = append(scores, entry.score)
		if entry.score > winner.score {
			winner = entry
		}
	}
	runnerUp := scored{score: -1}
	for _, entry := range entries {
		if entry.id != winner.id && entry.score > runnerUp.score {
			runnerUp = entry
		}
	}

	uplift := 0.0
	if runnerUp.score > 0 {
		uplift = (winner.score - runnerUp.score) / runnerUp.score
	}

	res := Resolution{
		Group:       key,
		WinnerID:    winner.id,
		WinnerScore: winner.score,
		Uplift:      uplift,
		Confidence:  heuristicConfidence(scores),
		ResolvedAt:  e.now().UTC(),
	}
	if err := e.store.SaveResolution(ctx, res); err != nil {
		return nil, err
	}

	e.logger.Info("experiment group resolved",
		logging.String(logging.FieldEventType, "experiment_resolved"),
		logging.String("group", key.String()),
		logging.String("winner", res.WinnerID),
		logging.Float64("confidence", res.Confidence))
	return &res, nil
}

// ResolveAll resolves every group that has enough scored variations and
// returns the decided resolutions.
func (e *Engine) ResolveAll(ctx context.Context) ([]Resolution, error) {
	keys, err := e.store.Groups(ctx)
	if err != nil {
		return nil, err
	}

	var resolutions []Resolution
	for _, key := range keys {
		res, err := e.ResolveGroup(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("resolve group %s: %w", key, err)
		}
		if res != nil {
			resolutions = append(resolutions, *res)
		}
	}
	return resolutions, nil
}

func stripeFor(key GroupKey) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.String()))
	return int(h.Sum32() % lockStripes)
}
