package experiment

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title treatments in fixed order: a question hook, a numbered hook, and an
// emotional hook. Generation walks the list, so the same topic always yields
// the same variations.
var titleTemplates = []struct {
	format string
	suffix string
}{
	{"Did you know this about %s?", " 🤔"},
	{"3 facts about %s they never taught you", " 📚"},
	{"The incredible story of %s", " 🔥"},
}

// Tag pools per platform, most specific first. Variation i rotates the pool
// by i so each variation leads with a different tag set.
var platformTagPools = map[string][]string{
	"youtube":  {"history", "education", "shorts", "documentary", "learning"},
	"tiktok":   {"historytok", "learnontiktok", "fyp", "blackhistory", "educational"},
	"facebook": {"history", "didyouknow", "onthisday", "heritage", "learning"},
}

// Peak posting hours (UTC) per platform, best first.
var platformOptimalHours = map[string][]int{
	"youtube":  {15, 18, 21},
	"tiktok":   {19, 21, 23},
	"facebook": {12, 17, 20},
}

const tagsPerVariation = 3

// GenerateVariations builds the deterministic variation set for one piece of
// content on one platform, at most maxPerDimension variations per dimension.
// Candidates identical to the baseline treatment are skipped, since they
// could never measure a difference. Indexes track the template position, not
// the output position, so identifiers stay stable when a candidate is
// filtered out.
func GenerateVariations(contentID int64, topic, platform string, baseline Payload, exposureFraction float64, maxPerDimension int, now time.Time) []Variation {
	if maxPerDimension <= 0 {
		return nil
	}

	var variations []Variation
	added := map[Dimension]int{}
	add := func(dimension Dimension, index int, payload Payload) {
		variations = append(variations, Variation{
			ID:               VariationID(contentID, platform, dimension, index),
			ContentID:        contentID,
			Platform:         platform,
			Dimension:        dimension,
			Index:            index,
			Baseline:         baseline,
			Payload:          payload,
			ExposureFraction: exposureFraction,
			CreatedAt:        now.UTC(),
		})
		added[dimension]++
	}

	displayTopic := cases.Title(language.English, cases.NoLower).String(topic)
	for i, tpl := range titleTemplates {
		if added[DimensionTitle] >= maxPerDimension {
			break
		}
		title := fmt.Sprintf(tpl.format, displayTopic) + tpl.suffix
		if title == baseline.Title {
			continue
		}
		add(DimensionTitle, i, Payload{Title: title})
	}

	if pool, ok := platformTagPools[platform]; ok {
		for i := 0; i < len(pool); i++ {
			if added[DimensionTags] >= maxPerDimension {
				break
			}
			tags := make([]string, 0, tagsPerVariation)
			for j := 0; j < tagsPerVariation; j++ {
				tags = append(tags, pool[(i+j)%len(pool)])
			}
			if sameTags(tags, baseline.Tags) {
				continue
			}
			add(DimensionTags, i, Payload{Tags: tags})
		}
	}

	if hours, ok := platformOptimalHours[platform]; ok {
		for i := 0; i < len(hours); i++ {
			if added[DimensionSchedule] >= maxPerDimension {
				break
			}
			if hours[i] == baseline.PostHour {
				continue
			}
			add(DimensionSchedule, i, Payload{PostHour: hours[i]})
		}
	}

	return variations
}

// sameTags reports whether two tag lists name the same set, ignoring order.
func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
