package quality

import (
	"fmt"
	"log/slog"
	"strings"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
)

// FactScorer reports what fraction of the researched facts are reflected in
// the script, in [0, 1]. The default implementation matches fact keywords
// against the script text; callers can substitute a model-backed scorer.
type FactScorer func(facts []string, script string) float64

// Gate scores a script against weighted review dimensions and decides whether
// the item may proceed to assembly. Rejection is final: the workflow never
// retries a gated item.
type Gate struct {
	cfg        config.Quality
	assembly   config.Assembly
	logger     *slog.Logger
	factScorer FactScorer
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger used for evaluation records.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithFactScorer replaces the keyword-based fact alignment scorer.
func WithFactScorer(scorer FactScorer) Option {
	return func(g *Gate) {
		if scorer != nil {
			g.factScorer = scorer
		}
	}
}

// New builds a Gate from the quality and assembly configuration sections.
func New(cfg config.Quality, assembly config.Assembly, opts ...Option) *Gate {
	g := &Gate{
		cfg:        cfg,
		assembly:   assembly,
		logger:     logging.NewNop(),
		factScorer: keywordFactScorer,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate scores the script against every dimension and returns the report.
// Approval requires the weighted overall score and the accuracy score to meet
// the global threshold, the sensitivity score to meet its floor, and zero
// blocking issues.
func (g *Gate) Evaluate(research queue.ResearchPayload, script string, artifact ArtifactInfo) Report {
	lower := strings.ToLower(script)

	accuracy := g.assessAccuracy(research, lower)
	sensitivity := g.assessSensitivity(lower)
	educational := assessEducational(lower)
	verification := clamp01(research.VerificationScore)
	language := assessLanguage(script)

	w := g.cfg.Weights
	report := Report{
		Dimensions: []DimensionScore{
			{Name: DimensionAccuracy, Score: accuracy, Weight: w.Accuracy},
			{Name: DimensionSensitivity, Score: sensitivity, Weight: w.Sensitivity},
			{Name: DimensionEducational, Score: educational, Weight: w.Educational},
			{Name: DimensionVerification, Score: verification, Weight: w.Verification},
			{Name: DimensionLanguage, Score: language, Weight: w.Language},
		},
	}
	for _, d := range report.Dimensions {
		report.Overall += d.Score * d.Weight
	}

	report.Issues = g.collectIssues(lower, artifact)
	report.Recommendations = g.recommend(report)

	report.Approved = report.Overall >= g.cfg.GlobalThreshold &&
		sensitivity >= g.cfg.SensitivityFloor &&
		accuracy >= g.cfg.GlobalThreshold &&
		len(report.Issues) == 0

	g.logger.Info("quality evaluation complete",
		logging.String(logging.FieldEventType, "quality_evaluated"),
		logging.Float64("overall", report.Overall),
		logging.Float64("sensitivity", sensitivity),
		logging.Float64("accuracy", accuracy),
		logging.Int("issues", len(report.Issues)),
		logging.Bool("approved", report.Approved))

	return report
}

// collectIssues gathers hard failures. Any issue blocks approval regardless
// of the composite score.
func (g *Gate) collectIssues(lowerScript string, artifact ArtifactInfo) []string {
	var issues []string

	for _, term := range g.cfg.BlockedTerms {
		if strings.Contains(lowerScript, strings.ToLower(term)) {
			issues = append(issues, fmt.Sprintf("script contains blocked phrase %q", term))
		}
	}

	for _, term := range g.cfg.ContextTerms {
		if strings.Contains(lowerScript, strings.ToLower(term)) && !hasContextualFraming(lowerScript) {
			issues = append(issues, fmt.Sprintf("term %q appears without historical framing", term))
		}
	}

	for _, phrase := range overgeneralizations {
		if strings.Contains(lowerScript, phrase) {
			issues = append(issues, fmt.Sprintf("overgeneralization %q flattens individual experiences", phrase))
		}
	}

	issues = append(issues, g.checkTechnical(artifact)...)
	return issues
}

// overgeneralizations are phrases that erase individual experience and must
// be rewritten rather than published.
var overgeneralizations = []string{
	"all slaves",
	"every slave",
	"slaves were",
	"slaves did",
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
