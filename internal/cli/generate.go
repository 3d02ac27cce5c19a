package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/plotline"
	"github.com/aretw0/plotline/internal/config"
	"github.com/aretw0/plotline/internal/presentation/tui"
	"github.com/aretw0/plotline/pkg/allocator"
)

// GenerateOptions configure a single command-line run.
type GenerateOptions struct {
	Concept string
	// Styled renders the banner and a Markdown summary for a terminal.
	Styled bool
	Debug  bool
	Out    io.Writer
	Logger *slog.Logger
}

// RunGenerate builds the services from cfg and executes one pipeline run.
// Sequential allocation is the default for the command line.
func RunGenerate(ctx context.Context, cfg *config.Config, opts GenerateOptions) error {
	svc, err := Build(ctx, cfg, BuildOptions{
		DefaultStrategy: allocator.StrategySequential,
		Debug:           opts.Debug,
		Logger:          opts.Logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	return generate(ctx, svc.Engine, opts)
}

func generate(ctx context.Context, engine *plotline.Engine, opts GenerateOptions) error {
	if opts.Styled {
		tui.PrintBanner(opts.Out, plotline.Version)
	}

	result, err := engine.Generate(ctx, opts.Concept)
	// A failed run still reports the files it left behind.
	if result != nil && result.Bundle != nil {
		fmt.Fprintln(opts.Out, tui.RenderSummary(result, opts.Styled))
	}
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return nil
}
