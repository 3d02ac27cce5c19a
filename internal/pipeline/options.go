package pipeline

import (
	"log/slog"

	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/motion"
	"github.com/aretw0/plotline/pkg/ports"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConverter replaces the default motion converter.
func WithConverter(c *motion.Converter) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.converter = c
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithThreshold enables black/white preprocessing of the raster before vectorization.
// A level of zero disables it.
func WithThreshold(level uint8) Option {
	return func(o *Orchestrator) {
		o.threshold = level
	}
}

// WithThumbnail enables thumbnail generation bounded by size x size. Zero disables it.
func WithThumbnail(size int) Option {
	return func(o *Orchestrator) {
		o.thumbnailSize = size
	}
}

// WithArchive enables the zip archive of the bundle.
func WithArchive(enabled bool) Option {
	return func(o *Orchestrator) {
		o.archive = enabled
	}
}

// WithPublisher uploads the archive after it is written. Requires WithArchive.
func WithPublisher(p ports.ArchivePublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithRunIDSource replaces the generator of run identifiers.
func WithRunIDSource(source func() string) Option {
	return func(o *Orchestrator) {
		if source != nil {
			o.newRunID = source
		}
	}
}
