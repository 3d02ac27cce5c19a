package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/plotline/pkg/domain"
)

// LogHooks returns hooks that write one structured record per lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "run_id", e.RunID, "concept", e.Concept)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "run_finish",
					"run_id", e.RunID,
					"bundle_id", e.BundleID,
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, "run_finish", "run_id", e.RunID, "bundle_id", e.BundleID, "duration", e.Duration)
		},
		OnStageStart: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage_start", "run_id", e.RunID, "stage", e.Stage)
		},
		OnStageFinish: func(ctx context.Context, e *domain.StageEvent) {
			attrs := []any{"run_id", e.RunID, "stage", e.Stage, "bundle_id", e.BundleID, "duration", e.Duration}
			switch {
			case e.Err == nil:
				logger.DebugContext(ctx, "stage_finish", attrs...)
			case e.Fatal:
				logger.ErrorContext(ctx, "stage_finish", append(attrs, "err", e.Err)...)
			default:
				logger.WarnContext(ctx, "stage_finish", append(attrs, "err", e.Err)...)
			}
		},
		OnDegraded: func(ctx context.Context, e *domain.StageEvent) {
			logger.WarnContext(ctx, "prompt_degraded", "run_id", e.RunID, "err", e.Err)
		},
	}
}

// Combine fans every event out to each set of hooks in order. Nil callbacks are skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			for _, h := range hooks {
				if h.OnRunStart != nil {
					h.OnRunStart(ctx, e)
				}
			}
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			for _, h := range hooks {
				if h.OnRunFinish != nil {
					h.OnRunFinish(ctx, e)
				}
			}
		},
		OnStageStart: func(ctx context.Context, e *domain.StageEvent) {
			for _, h := range hooks {
				if h.OnStageStart != nil {
					h.OnStageStart(ctx, e)
				}
			}
		},
		OnStageFinish: func(ctx context.Context, e *domain.StageEvent) {
			for _, h := range hooks {
				if h.OnStageFinish != nil {
					h.OnStageFinish(ctx, e)
				}
			}
		},
		OnDegraded: func(ctx context.Context, e *domain.StageEvent) {
			for _, h := range hooks {
				if h.OnDegraded != nil {
					h.OnDegraded(ctx, e)
				}
			}
		},
	}
}
