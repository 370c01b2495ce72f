package narration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
	"shortform/internal/stage"
)

// CommandRunner executes an external synthesis command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// defaultCommandRunner executes the narration command and folds its output
// into the error for debugging.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Handler synthesizes the narration audio for a scripted item with an
// external text-to-speech command.
type Handler struct {
	cfg    *config.Config
	run    CommandRunner
	logger *slog.Logger
}

// NewHandler builds the narration stage handler from configuration.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	return NewHandlerWithRunner(cfg, defaultCommandRunner, logger)
}

// NewHandlerWithRunner allows injecting the command runner (used in tests).
func NewHandlerWithRunner(cfg *config.Config, run CommandRunner, logger *slog.Logger) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "narration"))
	}
	return &Handler{cfg: cfg, run: run, logger: stageLogger}
}

// SetLogger replaces the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "narration"))
	}
}

func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.Script) == "" {
		return services.Wrap(
			services.ErrValidation,
			"narrating",
			"validate inputs",
			"No script present; run scripting before narration",
			nil,
		)
	}
	item.ProgressStage = "Narrating"
	item.ProgressMessage = "Synthesizing narration"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	return nil
}

func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, h.logger)

	workDir := h.cfg.RequestWorkDir(item.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "narrating", "create work directory", "Cannot create request work directory", err)
	}

	scriptPath := filepath.Join(workDir, "narration-script.txt")
	if err := os.WriteFile(scriptPath, []byte(item.Script), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "narrating", "write script", "Cannot write narration script", err)
	}
	audioPath := filepath.Join(workDir, "narration.wav")

	runCtx := ctx
	if timeout := h.cfg.Narration.TimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	args := []string{"-v", h.cfg.Narration.Voice, "-f", scriptPath, "-w", audioPath}
	if err := h.run(runCtx, h.cfg.Narration.Command, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "narrating", "run synthesizer", "Narration synthesis failed", err)
	}
	if info, err := os.Stat(audioPath); err != nil || info.Size() == 0 {
		return services.Wrap(
			services.ErrExternalTool,
			"narrating",
			"verify output",
			"Synthesizer reported success but produced no audio",
			err,
		)
	}

	item.NarrationPath = audioPath
	item.ProgressPercent = 100
	item.ProgressMessage = "Narration ready"
	logger.Info("narration synthesized",
		logging.String(logging.FieldEventType, "narration_complete"),
		logging.String("audio_path", audioPath))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	command := strings.TrimSpace(h.cfg.Narration.Command)
	if command == "" {
		return stage.Unhealthy("narrating", "narration command is not configured")
	}
	if _, err := exec.LookPath(command); err != nil {
		return stage.Unhealthy("narrating", fmt.Sprintf("narration command %q not found in PATH", command))
	}
	return stage.Healthy("narrating")
}
