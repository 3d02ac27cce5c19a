package plotline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/internal/pipeline"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/motion"
	"github.com/aretw0/plotline/pkg/ports"
)

// Dependencies are the services a pipeline run needs.
type Dependencies = pipeline.Dependencies

// Engine is the high-level entry point for the plotline library.
// It binds a pipeline to one storage root.
type Engine struct {
	pipeline *pipeline.Orchestrator
	root     string
	opts     []pipeline.Option
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, pipeline.WithLifecycleHooks(hooks))
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConverter replaces the default motion converter (for example to add pen-lift commands).
func WithConverter(c *motion.Converter) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, pipeline.WithConverter(c))
	}
}

// WithThreshold converts the raster to pure black and white at level before vectorizing.
func WithThreshold(level uint8) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, pipeline.WithThreshold(level))
	}
}

// WithThumbnail writes a thumbnail fitting size x size pixels.
func WithThumbnail(size int) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, pipeline.WithThumbnail(size))
	}
}

// WithArchive zips the bundle after a successful run.
func WithArchive(enabled bool) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, pipeline.WithArchive(enabled))
	}
}

// WithPublisher uploads the archive and records the returned link on the result.
func WithPublisher(p ports.ArchivePublisher) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, pipeline.WithPublisher(p))
	}
}

// New initializes a new Engine writing bundles under root.
func New(root string, deps Dependencies, opts ...Option) (*Engine, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	eng := &Engine{root: absRoot}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	pipelineOpts := append([]pipeline.Option{pipeline.WithLogger(eng.logger)}, eng.opts...)
	eng.pipeline, err = pipeline.New(deps, pipelineOpts...)
	if err != nil {
		return nil, err
	}
	return eng, nil
}

// Generate runs concept through the whole pipeline.
// On failure the partial result is returned together with a *domain.StageError.
func (e *Engine) Generate(ctx context.Context, concept string) (*domain.Result, error) {
	return e.pipeline.Run(ctx, concept, e.root)
}

// Root returns the absolute storage root.
func (e *Engine) Root() string {
	return e.root
}
