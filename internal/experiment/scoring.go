package experiment

import "math"

// platformMetricWeights ranks outcomes by what each platform actually rewards.
// Unknown platforms fall back to the youtube weighting.
var platformMetricWeights = map[string]map[string]float64{
	"youtube": {
		"engagement_rate": 0.3,
		"watch_time":      0.25,
		"completion_rate": 0.2,
		"views":           0.15,
		"revenue":         0.1,
	},
	"tiktok": {
		"completion_rate": 0.3,
		"shares":          0.25,
		"engagement_rate": 0.2,
		"views":           0.15,
		"comments":        0.1,
	},
	"facebook": {
		"shares":          0.3,
		"engagement_rate": 0.25,
		"comments":        0.2,
		"reach":           0.15,
		"saves":           0.1,
	},
}

// metricWeights returns the weighting table for a platform.
func metricWeights(platform string) map[string]float64 {
	if weights, ok := platformMetricWeights[platform]; ok {
		return weights
	}
	return platformMetricWeights["youtube"]
}

// scoreOutcome computes the weighted performance score for one outcome.
// Count-style metrics (views, reach) are normalized against a thousand-unit
// ceiling so they compare with rate metrics.
func scoreOutcome(platform string, metrics map[string]float64) float64 {
	score := 0.0
	for metric, weight := range metricWeights(platform) {
		value, ok := metrics[metric]
		if !ok {
			continue
		}
		if metric == "views" || metric == "reach" {
			value = math.Min(value/1000, 1)
		}
		score += weight * value
	}
	return score
}

// heuristicConfidence estimates how clearly the best score separates from the
// rest of the group, scaled to [0, 100]. A group with zero spread counts as
// fully confident; a winner close to the mean scores low.
func heuristicConfidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	mean := 0.0
	max := scores[0]
	for _, s := range scores {
		mean += s
		if s > max {
			max = s
		}
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	stddev := math.Sqrt(variance / float64(len(scores)))
	if stddev == 0 {
		return 100
	}
	return math.Min(math.Abs(max-mean)/stddev, 1) * 100
}
