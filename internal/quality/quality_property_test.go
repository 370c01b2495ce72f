//go:build property

package quality

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"shortform/internal/config"
	"shortform/internal/queue"
)

var scriptWords = []string{
	"during", "the", "era", "they", "led", "a", "movement", "that", "changed",
	"society", "published", "in", "1855", "legacy", "continues", "today",
	"freedom", "justice", "community", "you", "imagine", "understand",
}

func genScript() gopter.Gen {
	words := make([]any, len(scriptWords))
	for i, w := range scriptWords {
		words[i] = w
	}
	return gen.SliceOfN(40, gen.OneConstOf(words...)).Map(func(parts []string) string {
		return strings.Join(parts, " ") + "."
	})
}

func TestEvaluateScoreBounds(t *testing.T) {
	cfg := config.Default()
	gate := New(cfg.Quality, cfg.Assembly)

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("overall score stays within [0, 1]", prop.ForAll(
		func(script string, verification float64) bool {
			report := gate.Evaluate(queue.ResearchPayload{
				Facts:             []string{"Led a movement.", "Published in 1855."},
				VerificationScore: verification,
			}, script, ArtifactInfo{})
			return report.Overall >= 0 && report.Overall <= 1
		},
		genScript(),
		gen.Float64Range(0, 1),
	))

	properties.Property("approval implies no blocking issues", prop.ForAll(
		func(script string) bool {
			report := gate.Evaluate(queue.ResearchPayload{VerificationScore: 1}, script, ArtifactInfo{})
			return !report.Approved || len(report.Issues) == 0
		},
		genScript(),
	))

	properties.Property("adding a blocked phrase never raises sensitivity", prop.ForAll(
		func(script string) bool {
			clean := gate.assessSensitivity(strings.ToLower(script))
			tainted := gate.assessSensitivity(strings.ToLower(script) + " a happy slave")
			return tainted <= clean
		},
		genScript(),
	))

	properties.TestingRun(t)
}
