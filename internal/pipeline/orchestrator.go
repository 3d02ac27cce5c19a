package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/allocator"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/motion"
	"github.com/aretw0/plotline/pkg/ports"
	"github.com/aretw0/plotline/pkg/raster"
	"github.com/aretw0/plotline/pkg/svgpath"
	"github.com/google/uuid"
)

// Dependencies are the services every run needs.
type Dependencies struct {
	Expander   ports.PromptExpander
	Generator  ports.ImageGenerator
	Fetcher    ports.RasterFetcher
	Allocator  ports.Allocator
	Vectorizer ports.Vectorizer
}

func (d Dependencies) validate() error {
	var missing []string
	if d.Expander == nil {
		missing = append(missing, "expander")
	}
	if d.Generator == nil {
		missing = append(missing, "generator")
	}
	if d.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if d.Allocator == nil {
		missing = append(missing, "allocator")
	}
	if d.Vectorizer == nil {
		missing = append(missing, "vectorizer")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline: missing dependencies: %v", missing)
	}
	return nil
}

// Orchestrator executes pipeline runs. It holds no per-run state and is safe for
// concurrent use; concurrent runs only share the allocator.
type Orchestrator struct {
	deps      Dependencies
	converter *motion.Converter
	publisher ports.ArchivePublisher

	threshold     uint8
	thumbnailSize int
	archive       bool

	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	newRunID func() string
}

// New creates an orchestrator.
func New(deps Dependencies, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		deps:      deps,
		converter: motion.NewConverter(),
		logger:    logging.NewNop(),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// run is the mutable state of one Run call.
type run struct {
	id      string
	concept string
	started time.Time
	result  *domain.Result
	bundle  *domain.ArtifactBundle
	logger  *slog.Logger
}

func (r *run) bundleID() string {
	if r.bundle == nil {
		return ""
	}
	return r.bundle.ID
}

// Run executes every stage for concept, allocating the bundle under root.
//
// The returned Result is never nil once the concept is accepted: on failure it carries
// whatever the completed stages produced, and the error is a *domain.StageError naming
// the failing stage. The Result is not modified after Run returns.
func (o *Orchestrator) Run(ctx context.Context, concept, root string) (*domain.Result, error) {
	clean, err := domain.NormalizeConcept(concept)
	if err != nil {
		return nil, err
	}

	r := &run{
		id:      o.newRunID(),
		concept: clean,
		started: time.Now(),
		result:  &domain.Result{Concept: clean},
	}
	r.result.RunID = r.id
	r.logger = o.logger.With("run_id", r.id)

	o.emitRunStart(ctx, r)
	err = o.execute(ctx, r, root)
	o.emitRunFinish(ctx, r, err)

	r.result.Bundle = r.bundle.Snapshot()
	return r.result, err
}

func (o *Orchestrator) execute(ctx context.Context, r *run, root string) error {
	if err := o.expand(ctx, r); err != nil {
		return err
	}

	var ref string
	err := o.stage(ctx, r, domain.StageGenerate, domain.ErrImageGenerationFailed, func(ctx context.Context) error {
		var err error
		ref, err = o.deps.Generator.Generate(ctx, domain.ComposeImagePrompt(r.result.Prompt.Text))
		if err != nil {
			return err
		}
		if ref == "" {
			return errors.New("generator returned an empty image reference")
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, r, domain.StageAllocate, domain.ErrAllocationFailed, func(ctx context.Context) error {
		path, err := o.deps.Allocator.Allocate(ctx, r.concept, root)
		if err != nil {
			return err
		}
		r.bundle = domain.NewBundle(path)
		r.logger = r.logger.With("bundle_id", r.bundle.ID)
		return nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, r, domain.StageDownload, domain.ErrDownloadFailed, func(ctx context.Context) error {
		img, err := o.deps.Fetcher.Fetch(ctx, ref)
		if err != nil {
			return err
		}
		ext := img.Extension
		if ext == "" {
			ext = raster.Extension(img.MIMEType, img.Data)
		}
		path := filepath.Join(r.bundle.RootPath, domain.RasterBaseName+"."+ext)
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return err
		}
		r.bundle.RasterPath = path
		return nil
	})
	if err != nil {
		return err
	}

	vectorInput := r.bundle.RasterPath
	if o.threshold > 0 {
		err = o.stage(ctx, r, domain.StagePrepare, domain.ErrVectorConversionFailed, func(ctx context.Context) error {
			prepared := filepath.Join(r.bundle.RootPath, domain.PreparedFileName)
			if err := raster.PrepareFile(r.bundle.RasterPath, prepared, o.threshold); err != nil {
				return err
			}
			vectorInput = prepared
			return nil
		})
		if err != nil {
			return err
		}
	}

	err = o.stage(ctx, r, domain.StageVectorize, domain.ErrVectorConversionFailed, func(ctx context.Context) error {
		dest := filepath.Join(r.bundle.RootPath, domain.VectorFileName)
		if err := o.deps.Vectorizer.Vectorize(ctx, vectorInput, dest); err != nil {
			return err
		}
		r.bundle.VectorPath = dest
		return nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, r, domain.StageConvert, domain.ErrMotionConversionFailed, func(ctx context.Context) error {
		return o.convert(r)
	})
	if err != nil {
		return err
	}

	o.postProcess(ctx, r)
	return nil
}

// expand runs the only mandatory stage whose failure does not abort the run. It only
// returns an error when the run was cancelled before it started.
func (o *Orchestrator) expand(ctx context.Context, r *run) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStageError(domain.StageExpand, domain.ErrCancelled, err)
	}

	start := time.Now()
	o.emitStageStart(ctx, r, domain.StageExpand)

	text, err := o.deps.Expander.Expand(ctx, r.concept)
	if err == nil && text == "" {
		err = errors.New("expander returned an empty prompt")
	}
	if err != nil {
		r.result.Prompt = domain.DegradedPrompt(err)
		r.result.Warnings = append(r.result.Warnings, domain.Warning{
			Stage: domain.StageExpand,
			Err:   fmt.Errorf("%w: %w", domain.ErrPromptExpansionDegraded, err),
		})
		r.logger.Warn("Prompt expansion failed, using fallback prompt", "stage", domain.StageExpand, "err", err)
		o.emitStageFinish(ctx, r, domain.StageExpand, start, err, false)
		o.emitDegraded(ctx, r, err)
		return nil
	}

	r.result.Prompt = domain.GenerationPrompt{Text: text}
	o.emitStageFinish(ctx, r, domain.StageExpand, start, nil, false)
	return nil
}

func (o *Orchestrator) convert(r *run) error {
	set, err := svgpath.ParseFile(r.bundle.VectorPath)
	if err != nil {
		return err
	}
	program, err := o.converter.Convert(set)
	if err != nil {
		return err
	}
	out, err := motion.Marshal(program)
	if err != nil {
		return err
	}
	dest := filepath.Join(r.bundle.RootPath, domain.MotionFileName)
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return err
	}
	r.bundle.MotionPath = dest
	return nil
}

// stage runs fn as a fatal stage. Cancellation is checked at the boundary so a cancelled
// run never starts new work.
func (o *Orchestrator) stage(ctx context.Context, r *run, stage domain.Stage, kind error, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		serr := domain.NewStageError(stage, domain.ErrCancelled, err)
		r.logger.Info("Run cancelled", "stage", stage)
		return serr
	}

	start := time.Now()
	o.emitStageStart(ctx, r, stage)

	err := fn(ctx)
	if err != nil {
		serr := domain.NewStageError(stage, kind, err)
		r.logger.Error("Stage failed", "stage", stage, "err", err)
		o.emitStageFinish(ctx, r, stage, start, serr, true)
		return serr
	}

	o.emitStageFinish(ctx, r, stage, start, nil, false)
	return nil
}

// archiveName names the archive after the concept the same way sequential bundles are named.
func archiveName(concept string) string {
	return allocator.BaseName(concept) + domain.ArchiveExtension
}
