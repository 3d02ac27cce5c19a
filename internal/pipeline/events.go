package pipeline

import (
	"context"
	"time"

	"github.com/aretw0/plotline/pkg/domain"
)

func (o *Orchestrator) base(r *run, t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: r.id}
}

func (o *Orchestrator) emitRunStart(ctx context.Context, r *run) {
	r.logger.Info("Run started", "concept", r.concept)
	if o.hooks.OnRunStart != nil {
		o.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: o.base(r, domain.EventRunStart),
			Concept:   r.concept,
		})
	}
}

func (o *Orchestrator) emitRunFinish(ctx context.Context, r *run, err error) {
	d := time.Since(r.started)
	if err != nil {
		r.logger.Error("Run failed", "duration", d, "err", err)
	} else {
		r.logger.Info("Run finished", "duration", d, "warnings", len(r.result.Warnings))
	}
	if o.hooks.OnRunFinish != nil {
		o.hooks.OnRunFinish(ctx, &domain.RunEvent{
			EventBase: o.base(r, domain.EventRunFinish),
			Concept:   r.concept,
			BundleID:  r.bundleID(),
			Duration:  d,
			Err:       err,
		})
	}
}

func (o *Orchestrator) emitStageStart(ctx context.Context, r *run, stage domain.Stage) {
	r.logger.Debug("Stage started", "stage", stage)
	if o.hooks.OnStageStart != nil {
		o.hooks.OnStageStart(ctx, &domain.StageEvent{
			EventBase: o.base(r, domain.EventStageStart),
			Stage:     stage,
			BundleID:  r.bundleID(),
		})
	}
}

func (o *Orchestrator) emitStageFinish(ctx context.Context, r *run, stage domain.Stage, start time.Time, err error, fatal bool) {
	if o.hooks.OnStageFinish != nil {
		o.hooks.OnStageFinish(ctx, &domain.StageEvent{
			EventBase: o.base(r, domain.EventStageFinish),
			Stage:     stage,
			BundleID:  r.bundleID(),
			Duration:  time.Since(start),
			Err:       err,
			Fatal:     fatal,
		})
	}
}

func (o *Orchestrator) emitDegraded(ctx context.Context, r *run, cause error) {
	if o.hooks.OnDegraded != nil {
		o.hooks.OnDegraded(ctx, &domain.StageEvent{
			EventBase: o.base(r, domain.EventDegraded),
			Stage:     domain.StageExpand,
			Err:       cause,
		})
	}
}
