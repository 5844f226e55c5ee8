package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"magicscraper/internal/config"
	"magicscraper/internal/logging"
	"magicscraper/internal/preflight"
	"magicscraper/internal/services"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// openLogger builds the command logger writing to the command's stderr and
// the configured log file. The returned func closes the log file.
func (c *commandContext) openLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}
	return logger, func() { _ = closer.Close() }, nil
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// runContext tags the command context with a fresh run id and the stage name
// so every log line of one invocation can be correlated.
func runContext(cmd *cobra.Command, stage string) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithRunID(ctx, uuid.NewString())
	return services.WithStage(ctx, stage)
}

// requireLocalState fails when any state directory is missing or read-only.
func requireLocalState(ctx context.Context, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg, false))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return services.Wrap(services.ErrConfiguration, "cli", "preflight", strings.Join(parts, "; "), nil)
}

// describeError appends the operator hint for classified errors.
func describeError(err error) error {
	if hint := services.Hint(err); hint != "" {
		return fmt.Errorf("%w (hint: %s)", err, hint)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
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
