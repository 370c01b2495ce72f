package scriptgen

import (
	"fmt"
	"regexp"
	"strings"

	"shortform/internal/queue"
)

// Narration pacing used to budget facts against the target duration.
const wordsPerSecond = 2.5

// Generate renders a narration script from the research payload: an opening
// hook, the strongest facts that fit the duration budget, and a closing
// call to action. Person-first framing is applied to the whole script.
func Generate(research queue.ResearchPayload, targetDurationSec int) string {
	var b strings.Builder

	hook := fmt.Sprintf("Did you know? The story of %s will change how you see history.", research.Title)
	b.WriteString(hook)
	b.WriteString("\n\n")

	for i, fact := range selectFacts(research.Facts, targetDurationSec, hook) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, fact)
	}

	b.WriteString("\nFollow for more stories they never taught you.")
	return personFirst(b.String())
}

// selectFacts keeps facts in research order until the narration budget for
// the target duration is spent. At least one fact is always included.
func selectFacts(facts []string, targetDurationSec int, hook string) []string {
	if len(facts) == 0 {
		return nil
	}
	budget := int(float64(targetDurationSec) * wordsPerSecond)
	spent := len(strings.Fields(hook))

	selected := facts[:1]
	spent += len(strings.Fields(facts[0]))
	for _, fact := range facts[1:] {
		words := len(strings.Fields(fact))
		if spent+words > budget {
			break
		}
		selected = append(selected, fact)
		spent += words
	}
	return selected
}

// personFirstReplacements rewrites dehumanizing shorthand into person-first
// language before the script reaches the quality gate. Most specific phrases
// first so the generic rules do not mangle them.
var personFirstReplacements = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\b(fugitive|runaway) slaves\b`), "enslaved people seeking freedom"},
	{regexp.MustCompile(`(?i)\bformer slave\b`), "formerly enslaved person"},
	{regexp.MustCompile(`(?i)\ba slave\b`), "an enslaved person"},
	{regexp.MustCompile(`(?i)\bslaves\b`), "enslaved people"},
}

func personFirst(script string) string {
	for _, r := range personFirstReplacements {
		script = r.pattern.ReplaceAllString(script, r.replacement)
	}
	return script
}
