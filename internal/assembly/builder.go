package assembly

import (
	"fmt"

	"shortform/internal/config"
	"shortform/internal/queue"
)

// buildRenderArgs assembles the ffmpeg invocation for the final short: a
// slideshow of the gathered images timed across the narration, or a plain
// black background when no imagery is available. The -shortest flag pins the
// video length to the narration, and the configured ceiling caps runaway
// inputs.
func buildRenderArgs(cfg config.Assembly, assets []queue.Asset, narrationPath, outputPath string, durationSec float64) []string {
	args := []string{"-y"}

	size := fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
	if len(assets) == 0 {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=black:s=%s:r=%d", size, cfg.FPS),
		)
	} else {
		perImage := durationSec / float64(len(assets))
		if perImage <= 0 {
			perImage = 3
		}
		for _, asset := range assets {
			args = append(args,
				"-loop", "1",
				"-t", fmt.Sprintf("%.2f", perImage),
				"-i", asset.LocalPath,
			)
		}
	}

	args = append(args, "-i", narrationPath)

	if len(assets) > 1 {
		filter := ""
		for i := range assets {
			filter += fmt.Sprintf("[%d:v]scale=%s:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1[v%d];",
				i, size, cfg.Width, cfg.Height, i)
		}
		for i := range assets {
			filter += fmt.Sprintf("[v%d]", i)
		}
		filter += fmt.Sprintf("concat=n=%d:v=1:a=0[v]", len(assets))
		args = append(args,
			"-filter_complex", filter,
			"-map", "[v]",
			"-map", fmt.Sprintf("%d:a", len(assets)),
		)
	} else if len(assets) == 1 {
		args = append(args,
			"-vf", fmt.Sprintf("scale=%s:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
				size, cfg.Width, cfg.Height),
		)
	}

	args = append(args,
		"-c:v", cfg.Codec,
		"-r", fmt.Sprintf("%d", cfg.FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
	)
	if cfg.MaxDurationSeconds > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", cfg.MaxDurationSeconds))
	}
	return append(args, outputPath)
}
