package cli

import (
	"log/slog"

	"github.com/aretw0/plotline/internal/config"
	"github.com/aretw0/plotline/internal/logging"
)

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	// Root overrides storage.root when set.
	Root string
	// LogLevel overrides log.level when set.
	LogLevel string
}

// Setup loads the configuration and creates the application logger.
func Setup(opts GlobalOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.Root != "" {
		cfg.Storage.Root = opts.Root
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level), nil
}
