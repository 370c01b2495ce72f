package research

import (
	"regexp"
	"strconv"
	"strings"
)

var yearPattern = regexp.MustCompile(`\b(1[0-9]{3}|20[0-2][0-9])\b`)

// lifeYears pulls the subject's birth and death years out of the summary
// text. The first two distinct years found are taken as birth and death when
// they are in order; a single year is treated as the birth year.
func lifeYears(text string) (birth, death int) {
	matches := yearPattern.FindAllString(text, 2)
	if len(matches) == 0 {
		return 0, 0
	}
	birth, _ = strconv.Atoi(matches[0])
	if len(matches) > 1 {
		if d, _ := strconv.Atoi(matches[1]); d > birth {
			death = d
		}
	}
	return birth, death
}

// splitFacts breaks the summary extract into sentence-level facts, capped at
// maxFacts. Fragments shorter than a few words are dropped.
func splitFacts(extract string, maxFacts int) []string {
	if maxFacts <= 0 {
		return nil
	}
	raw := strings.FieldsFunc(extract, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	facts := make([]string, 0, maxFacts)
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(strings.Fields(s)) < 3 {
			continue
		}
		facts = append(facts, s+".")
		if len(facts) == maxFacts {
			break
		}
	}
	return facts
}

// imageKeywords derives asset search keywords from the subject and era.
func imageKeywords(topic string, birthYear int) []string {
	keywords := []string{topic, topic + " portrait", "historical archive"}
	if birthYear > 0 {
		century := (birthYear / 100) + 1
		keywords = append(keywords, strconv.Itoa(century)+"th century")
	}
	return keywords
}
