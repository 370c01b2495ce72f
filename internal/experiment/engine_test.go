package experiment

import (
	"context"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortform/internal/config"
)

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	store, err := OpenStorePath(filepath.Join(t.TempDir(), "experiments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Experiments{Enabled: true, ExposureFraction: 0.5, MaxPerDimension: 2}
	return NewEngine(cfg, store, opts...)
}

func TestGenerateIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Generate(ctx, 7, "Test Person", "youtube", Payload{})
	require.NoError(t, err)
	second, err := engine.Generate(ctx, 7, "Test Person", "youtube", Payload{})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Payload, second[i].Payload)
	}

	stored, err := engine.store.ContentVariations(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, stored, len(first), "regeneration must not duplicate rows")
}

func TestGenerateRespectsPerDimensionCap(t *testing.T) {
	engine := newTestEngine(t)

	variations, err := engine.Generate(context.Background(), 1, "Test Person", "tiktok", Payload{})
	require.NoError(t, err)

	perDimension := map[Dimension]int{}
	for _, v := range variations {
		perDimension[v.Dimension]++
	}
	for dim, count := range perDimension {
		assert.LessOrEqual(t, count, 2, "dimension %s over cap", dim)
	}
}

func TestGeneratePersistsBaselineAndFraction(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	baseline := Payload{Title: "The story of Test Person", Tags: []string{"biography"}}
	_, err := engine.Generate(ctx, 7, "Test Person", "youtube", baseline)
	require.NoError(t, err)

	stored, err := engine.store.ContentVariations(ctx, 7)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	for _, v := range stored {
		assert.Equal(t, baseline, v.Baseline)
		assert.Equal(t, 0.5, v.ExposureFraction)
	}
}

func TestGenerateExcludesBaselineIdenticalCandidates(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	// Collide with the first title template, the first tag rotation (order
	// scrambled to prove set comparison), and the first optimal hour.
	baseline := Payload{
		Title:    "Did you know this about Test Person? 🤔",
		Tags:     []string{"shorts", "history", "education"},
		PostHour: 15,
	}
	variations, err := engine.Generate(ctx, 21, "Test Person", "youtube", baseline)
	require.NoError(t, err)
	require.NotEmpty(t, variations)

	ids := map[string]bool{}
	for _, v := range variations {
		ids[v.ID] = true
		switch v.Dimension {
		case DimensionTitle:
			assert.NotEqual(t, baseline.Title, v.Payload.Title)
		case DimensionTags:
			assert.False(t, sameTags(baseline.Tags, v.Payload.Tags))
		case DimensionSchedule:
			assert.NotEqual(t, baseline.PostHour, v.Payload.PostHour)
		}
	}

	// The filtered candidates leave gaps; surviving identifiers keep their
	// template positions.
	assert.False(t, ids[VariationID(21, "youtube", DimensionTitle, 0)])
	assert.True(t, ids[VariationID(21, "youtube", DimensionTitle, 1)])
	assert.True(t, ids[VariationID(21, "youtube", DimensionTitle, 2)])
}

func TestVariationIDFormat(t *testing.T) {
	assert.Equal(t, "42_youtube_title_0", VariationID(42, "youtube", DimensionTitle, 0))
}

func TestShouldExposeRespectsVariationFraction(t *testing.T) {
	engine := newTestEngine(t, WithRandSource(rand.NewSource(1)))
	ctx := context.Background()

	variations, err := engine.Generate(ctx, 2, "Test Person", "youtube", Payload{})
	require.NoError(t, err)
	require.NotEmpty(t, variations)
	id := variations[0].ID

	exposed := 0
	const trials = 10_000
	for i := 0; i < trials; i++ {
		hit, err := engine.ShouldExpose(ctx, id)
		require.NoError(t, err)
		if hit {
			exposed++
		}
	}
	assert.InDelta(t, 0.5, float64(exposed)/trials, 0.05)
}

func TestShouldExposeUnknownVariation(t *testing.T) {
	engine := newTestEngine(t)

	hit, err := engine.ShouldExpose(context.Background(), "99_youtube_title_0")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestShouldExposeDisabled(t *testing.T) {
	store, err := OpenStorePath(filepath.Join(t.TempDir(), "experiments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := NewEngine(config.Experiments{Enabled: false, ExposureFraction: 1}, store)
	hit, err := engine.ShouldExpose(context.Background(), "1_youtube_title_0")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRecordOutcomeLastWriteWins(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Generate(ctx, 3, "Test Person", "youtube", Payload{})
	require.NoError(t, err)
	id := VariationID(3, "youtube", DimensionTitle, 0)

	require.NoError(t, engine.RecordOutcome(ctx, id, map[string]float64{"views": 100}))
	require.NoError(t, engine.RecordOutcome(ctx, id, map[string]float64{"views": 250}))

	outcome, err := engine.store.OutcomeFor(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, 250.0, outcome.Metrics["views"])
}

func TestRecordOutcomeUnknownVariation(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.RecordOutcome(context.Background(), "99_youtube_title_0", map[string]float64{"views": 1})
	require.Error(t, err, "outcomes must be attributable to a stored variation")
}

func TestResolveGroupSkipsUnderTwoScored(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Generate(ctx, 5, "Test Person", "youtube", Payload{})
	require.NoError(t, err)
	key := GroupKey{ContentID: 5, Platform: "youtube", Dimension: DimensionTitle}

	res, err := engine.ResolveGroup(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, res, "no outcomes recorded")

	require.NoError(t, engine.RecordOutcome(ctx, VariationID(5, "youtube", DimensionTitle, 0),
		map[string]float64{"engagement_rate": 0.4}))
	res, err = engine.ResolveGroup(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, res, "one outcome is not an experiment")
}

func TestResolveGroupPicksHighestWeightedScore(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Generate(ctx, 9, "Test Person", "tiktok", Payload{})
	require.NoError(t, err)
	key := GroupKey{ContentID: 9, Platform: "tiktok", Dimension: DimensionTitle}

	loser := VariationID(9, "tiktok", DimensionTitle, 0)
	winner := VariationID(9, "tiktok", DimensionTitle, 1)
	require.NoError(t, engine.RecordOutcome(ctx, loser, map[string]float64{
		"completion_rate": 0.4, "shares": 0.2, "views": 500,
	}))
	require.NoError(t, engine.RecordOutcome(ctx, winner, map[string]float64{
		"completion_rate": 0.8, "shares": 0.6, "views": 2000,
	}))

	res, err := engine.ResolveGroup(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, winner, res.WinnerID)
	assert.Greater(t, res.Uplift, 0.0)
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 100.0)
}

func TestResolveGroupConsistentUnderConcurrentOutcomes(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Generate(ctx, 17, "Test Person", "youtube", Payload{})
	require.NoError(t, err)
	key := GroupKey{ContentID: 17, Platform: "youtube", Dimension: DimensionTitle}
	a := VariationID(17, "youtube", DimensionTitle, 0)
	b := VariationID(17, "youtube", DimensionTitle, 1)
	require.NoError(t, engine.RecordOutcome(ctx, a, map[string]float64{"engagement_rate": 0.3}))
	require.NoError(t, engine.RecordOutcome(ctx, b, map[string]float64{"engagement_rate": 0.5}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = engine.RecordOutcome(ctx, a, map[string]float64{"engagement_rate": 0.3})
			_ = engine.RecordOutcome(ctx, b, map[string]float64{"engagement_rate": 0.5})
		}
	}()

	for i := 0; i < 50; i++ {
		res, err := engine.ResolveGroup(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Contains(t, []string{a, b}, res.WinnerID)
		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 100.0)
	}
	wg.Wait()
}

func TestResolveGroupViewsNormalization(t *testing.T) {
	// A million views must not swamp rate metrics: views cap at the
	// thousand-unit ceiling.
	score := scoreOutcome("youtube", map[string]float64{"views": 1_000_000})
	assert.InDelta(t, 0.15, score, 1e-9)
}

func TestHeuristicConfidenceZeroSpread(t *testing.T) {
	assert.Equal(t, 100.0, heuristicConfidence([]float64{0.5, 0.5, 0.5}))
}

func TestResolveAllPersistsResolutions(t *testing.T) {
	engine := newTestEngine(t, WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	ctx := context.Background()

	_, err := engine.Generate(ctx, 11, "Test Person", "facebook", Payload{})
	require.NoError(t, err)
	require.NoError(t, engine.RecordOutcome(ctx, VariationID(11, "facebook", DimensionTags, 0),
		map[string]float64{"shares": 0.2}))
	require.NoError(t, engine.RecordOutcome(ctx, VariationID(11, "facebook", DimensionTags, 1),
		map[string]float64{"shares": 0.6}))

	resolved, err := engine.ResolveAll(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	stored, err := engine.store.Resolutions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, resolved[0].WinnerID, stored[0].WinnerID)
}

func TestResolveWinnerMonotonicity(t *testing.T) {
	// Raising the winner's metrics must never change the decision away from it.
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Generate(ctx, 13, "Test Person", "youtube", Payload{})
	require.NoError(t, err)
	key := GroupKey{ContentID: 13, Platform: "youtube", Dimension: DimensionTitle}
	a := VariationID(13, "youtube", DimensionTitle, 0)
	b := VariationID(13, "youtube", DimensionTitle, 1)

	require.NoError(t, engine.RecordOutcome(ctx, a, map[string]float64{"engagement_rate": 0.3}))
	require.NoError(t, engine.RecordOutcome(ctx, b, map[string]float64{"engagement_rate": 0.5}))

	for _, boost := range []float64{0.6, 0.8, 1.0} {
		require.NoError(t, engine.RecordOutcome(ctx, b, map[string]float64{"engagement_rate": boost}))
		res, err := engine.ResolveGroup(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, b, res.WinnerID)
	}
}
