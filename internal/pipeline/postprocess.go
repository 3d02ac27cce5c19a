package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/aretw0/plotline/pkg/archive"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/raster"
)

// postProcess runs the optional stages after the bundle is complete. Failures and
// cancellation are recorded as warnings; the run still succeeds.
func (o *Orchestrator) postProcess(ctx context.Context, r *run) {
	if o.thumbnailSize > 0 {
		o.optional(ctx, r, domain.StageThumbnail, func(ctx context.Context) error {
			dest := filepath.Join(r.bundle.RootPath, domain.ThumbnailFileName)
			if err := raster.ThumbnailFile(r.bundle.RasterPath, dest, o.thumbnailSize); err != nil {
				return err
			}
			r.bundle.ThumbnailPath = dest
			return nil
		})
	}

	if !o.archive {
		return
	}
	o.optional(ctx, r, domain.StageArchive, func(ctx context.Context) error {
		dest := filepath.Join(r.bundle.RootPath, archiveName(r.concept))
		files := []string{r.bundle.RasterPath, r.bundle.VectorPath, r.bundle.MotionPath, r.bundle.ThumbnailPath}
		if err := archive.Write(dest, files); err != nil {
			return err
		}
		r.bundle.ArchivePath = dest
		return nil
	})

	if o.publisher == nil || r.bundle.ArchivePath == "" {
		return
	}
	o.optional(ctx, r, domain.StagePublish, func(ctx context.Context) error {
		url, err := o.publisher.Publish(ctx, r.bundle.ID, r.bundle.ArchivePath)
		if err != nil {
			return err
		}
		r.result.ArchiveURL = url
		return nil
	})
}

func (o *Orchestrator) optional(ctx context.Context, r *run, stage domain.Stage, fn func(context.Context) error) {
	if err := ctx.Err(); err != nil {
		r.result.Warnings = append(r.result.Warnings, domain.Warning{
			Stage: stage,
			Err:   domain.NewStageError(stage, domain.ErrCancelled, err),
		})
		return
	}

	start := time.Now()
	o.emitStageStart(ctx, r, stage)

	if err := fn(ctx); err != nil {
		serr := domain.NewStageError(stage, domain.ErrPostProcessFailed, err)
		r.result.Warnings = append(r.result.Warnings, domain.Warning{Stage: stage, Err: serr})
		r.logger.Warn("Post-processing step failed", "stage", stage, "err", err)
		o.emitStageFinish(ctx, r, stage, start, serr, false)
		return
	}
	o.emitStageFinish(ctx, r, stage, start, nil, false)
}
