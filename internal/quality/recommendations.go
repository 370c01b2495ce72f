package quality

// recommend produces actionable revision hints for dimensions that scored
// below their gates. Recommendations never block approval on their own.
func (g *Gate) recommend(report Report) []string {
	var recs []string

	if report.Dimension(DimensionSensitivity).Score < g.cfg.SensitivityFloor {
		recs = append(recs, "use person-first language (enslaved people, not slaves) and frame sensitive terms in their historical context")
	}
	if report.Dimension(DimensionAccuracy).Score < g.cfg.GlobalThreshold {
		recs = append(recs, "align the script more closely with the verified research facts")
	}
	if report.Dimension(DimensionEducational).Score < g.cfg.GlobalThreshold {
		recs = append(recs, "add historical context and connect the subject's legacy to the present")
	}
	if report.Dimension(DimensionVerification).Score < g.cfg.GlobalThreshold {
		recs = append(recs, "source additional corroborating references before publication")
	}
	if report.Dimension(DimensionLanguage).Score < g.cfg.GlobalThreshold {
		recs = append(recs, "shorten long sentences and prefer plain vocabulary for narration")
	}

	return recs
}
