package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ytdigest/internal/config"
	"ytdigest/internal/logging"
	"ytdigest/internal/runlock"
	"ytdigest/internal/services"
)

// commandContext lazily loads configuration and the logger once per
// invocation and shares them between the root pre-run hook and subcommands.
type commandContext struct {
	opts *rootOptions

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(opts *rootOptions) *commandContext {
	return &commandContext{opts: opts}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, resolved, exists, err := config.Load(strings.TrimSpace(c.opts.configPath))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "", "load config", "", err)
			return
		}
		if level := strings.TrimSpace(c.opts.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "", "prepare directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "", "build logger", "", err)
			return
		}
		c.logger = logging.NewComponentLogger(logger, "cli")
	})
	return c.logger, c.loggerErr
}

// shouldSkipConfig reports whether cmd or an ancestor opted out of config
// loading, which config init needs before any file exists.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// acquireRunLock takes the state-directory lock. A lock held by another run
// is an environment problem, so it exits with the misconfiguration status.
func acquireRunLock(cfg *config.Config) (*runlock.Lock, error) {
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			return nil, services.Wrap(services.ErrConfiguration, "", "acquire run lock", "", err)
		}
		return nil, err
	}
	return lock, nil
}
