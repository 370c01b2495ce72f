package quality

import "fmt"

// ArtifactInfo describes the planned render that the gate checks against the
// assembly configuration. Zero-valued fields are treated as unknown and
// skipped, since the gate runs before the final render exists.
type ArtifactInfo struct {
	Width           int
	Height          int
	Codec           string
	DurationSeconds float64
	AssetSourceIDs  []string
}

// checkTechnical verifies the planned output against the configured render
// profile. Failures are blocking issues.
func (g *Gate) checkTechnical(artifact ArtifactInfo) []string {
	var issues []string

	if artifact.Width != 0 && artifact.Height != 0 {
		if artifact.Width != g.assembly.Width || artifact.Height != g.assembly.Height {
			issues = append(issues, fmt.Sprintf("resolution %dx%d does not match required %dx%d",
				artifact.Width, artifact.Height, g.assembly.Width, g.assembly.Height))
		}
	}

	if artifact.Codec != "" && artifact.Codec != g.assembly.Codec {
		issues = append(issues, fmt.Sprintf("codec %q does not match required %q", artifact.Codec, g.assembly.Codec))
	}

	if max := float64(g.assembly.MaxDurationSeconds); max > 0 && artifact.DurationSeconds > max {
		issues = append(issues, fmt.Sprintf("duration %.1fs exceeds the %.0fs ceiling", artifact.DurationSeconds, max))
	}

	for i, src := range artifact.AssetSourceIDs {
		if src == "" {
			issues = append(issues, fmt.Sprintf("asset %d has no source attribution", i))
		}
	}

	return issues
}
