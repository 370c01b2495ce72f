package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shortform/internal/assembly"
	"shortform/internal/assets"
	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/narration"
	"shortform/internal/notifications"
	"shortform/internal/quality"
	"shortform/internal/queue"
	"shortform/internal/research"
	"shortform/internal/scriptgen"
	"shortform/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// withStore opens the queue database for the duration of fn.
func (c *commandContext) withStore(fn func(cfg *config.Config, store *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// buildManager assembles the full pipeline against live stage handlers.
func buildManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *workflow.Manager {
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	manager.ConfigureStages(workflow.StageSet{
		Research:  research.NewHandler(cfg.Research, logger),
		Script:    scriptgen.NewHandler(logger),
		Assets:    assets.NewHandler(cfg, logger),
		Narration: narration.NewHandler(cfg, logger),
		Quality:   quality.NewHandler(cfg, logger),
		Assembly:  assembly.NewHandler(cfg, logger),
	})
	return manager
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
