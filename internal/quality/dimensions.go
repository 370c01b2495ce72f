package quality

import (
	"strconv"
	"strings"
	"unicode"

	"shortform/internal/queue"
)

// contextualFramings signal that a sensitive term is being discussed as part
// of its historical context rather than stated as fact.
var contextualFramings = []string{
	"despite",
	"although",
	"even though",
	"context of",
	"during the",
}

// personFirstPhrases indicate person-first language.
var personFirstPhrases = []string{
	"enslaved person",
	"enslaved people",
}

func hasContextualFraming(lowerScript string) bool {
	for _, phrase := range contextualFramings {
		if strings.Contains(lowerScript, phrase) {
			return true
		}
	}
	return false
}

// assessSensitivity scores cultural sensitivity. Blocked phrases carry the
// heaviest penalty, outdated terminology a lighter one, and context-dependent
// terms only penalize when no historical framing is present.
func (g *Gate) assessSensitivity(lowerScript string) float64 {
	score := 1.0

	for _, term := range g.cfg.BlockedTerms {
		if strings.Contains(lowerScript, strings.ToLower(term)) {
			score -= 0.3
		}
	}
	for _, term := range g.cfg.OutdatedTerms {
		if strings.Contains(lowerScript, strings.ToLower(term)) {
			score -= 0.1
		}
	}

	framed := hasContextualFraming(lowerScript)
	for _, term := range g.cfg.ContextTerms {
		if strings.Contains(lowerScript, strings.ToLower(term)) && !framed {
			score -= 0.15
		}
	}

	framings := 0
	for _, phrase := range contextualFramings {
		framings += strings.Count(lowerScript, phrase)
	}
	if framings >= 3 {
		score += 0.05
	}
	for _, phrase := range personFirstPhrases {
		if strings.Contains(lowerScript, phrase) {
			score += 0.05
			break
		}
	}

	return clamp01(score)
}

// assessAccuracy scores how faithfully the script reflects the research. The
// fact alignment fraction scales a 0.8 baseline, and mentioning the subject's
// life dates earns small bonuses.
func (g *Gate) assessAccuracy(research queue.ResearchPayload, lowerScript string) float64 {
	alignment := 1.0
	if len(research.Facts) > 0 {
		alignment = g.factScorer(research.Facts, lowerScript)
	}
	score := 0.8 * (0.5 + 0.5*clamp01(alignment))

	if research.BirthYear != 0 && strings.Contains(lowerScript, strconv.Itoa(research.BirthYear)) {
		score += 0.05
	}
	if research.DeathYear != 0 && strings.Contains(lowerScript, strconv.Itoa(research.DeathYear)) {
		score += 0.05
	}
	return clamp01(score)
}

// keywordFactScorer treats a fact as covered when at least half of its
// significant keywords appear in the script.
func keywordFactScorer(facts []string, script string) float64 {
	lower := strings.ToLower(script)
	aligned := 0
	scored := 0
	for _, fact := range facts {
		keywords := significantKeywords(fact)
		if len(keywords) == 0 {
			continue
		}
		scored++
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if float64(hits) >= float64(len(keywords))*0.5 {
			aligned++
		}
	}
	if scored == 0 {
		return 1.0
	}
	return float64(aligned) / float64(scored)
}

// significantKeywords extracts lowercase words longer than three characters.
func significantKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 3 {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

// Keyword families that indicate depth of historical treatment.
var (
	historicalContextKeywords = []string{"during", "era", "period", "century", "at the time"}
	impactKeywords            = []string{"impact", "influence", "changed", "shaped", "legacy"}
	agencyKeywords            = []string{"resisted", "fought", "led", "organized", "founded", "built"}
	systemicKeywords          = []string{"system", "institution", "laws", "economy", "society"}

	learningIndicators = []string{"learn", "discover", "understand", "explore", "reveals", "did you know"}
	themeKeywords      = []string{"freedom", "justice", "courage", "education", "community", "resistance", "equality"}
	contemporaryLinks  = []string{"today", "modern", "still", "continues"}
)

// assessEducational rewards scripts that place the subject in context,
// describe impact and agency, and connect history to the present.
func assessEducational(lowerScript string) float64 {
	score := 0.6

	for _, family := range [][]string{
		historicalContextKeywords,
		impactKeywords,
		agencyKeywords,
		systemicKeywords,
	} {
		if containsAny(lowerScript, family) {
			score += 0.1
		}
	}

	if countMatches(lowerScript, learningIndicators) >= 2 {
		score += 0.1
	}
	if countDistinct(lowerScript, themeKeywords) >= 3 {
		score += 0.1
	}
	if containsAny(lowerScript, contemporaryLinks) {
		score += 0.1
	}
	return clamp01(score)
}

// assessLanguage penalizes dense vocabulary and long sentences, both of which
// hurt narration pacing, and gives a small bonus for engaging phrasing.
func assessLanguage(script string) float64 {
	score := 0.9

	words := strings.Fields(script)
	if len(words) > 0 {
		long := 0
		for _, w := range words {
			if len(strings.Trim(w, ".,!?;:\"'")) > 12 {
				long++
			}
		}
		if float64(long)/float64(len(words)) > 0.15 {
			score -= 0.1
		}
	}

	sentences := splitSentences(script)
	if len(sentences) > 0 {
		longSentences := 0
		for _, s := range sentences {
			if len(strings.Fields(s)) > 20 {
				longSentences++
			}
		}
		if float64(longSentences)/float64(len(sentences)) > 0.3 {
			score -= 0.1
		}
	}

	engaging := []string{"you", "imagine", "?", "incredible", "remarkable"}
	if countMatches(strings.ToLower(script), engaging) >= 2 {
		score += 0.05
	}
	return clamp01(score)
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func countMatches(text string, phrases []string) int {
	total := 0
	for _, p := range phrases {
		total += strings.Count(text, p)
	}
	return total
}

func countDistinct(text string, phrases []string) int {
	distinct := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			distinct++
		}
	}
	return distinct
}
