package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart    EventType = "run_start"
	EventRunFinish   EventType = "run_finish"
	EventStageStart  EventType = "stage_start"
	EventStageFinish EventType = "stage_finish"
	EventDegraded    EventType = "degraded"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// RunEvent marks the start or end of a pipeline run.
type RunEvent struct {
	EventBase
	Concept  string        `json:"concept,omitempty"`
	BundleID string        `json:"bundle_id,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// StageEvent marks the start or end of one stage.
type StageEvent struct {
	EventBase
	Stage    Stage         `json:"stage"`
	BundleID string        `json:"bundle_id,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	// Err is set on a failed finish. Fatal reports whether it aborted the run.
	Err   error `json:"-"`
	Fatal bool  `json:"fatal,omitempty"`
}

// LifecycleHooks defines callbacks for pipeline observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnRunStart    func(context.Context, *RunEvent)
	OnRunFinish   func(context.Context, *RunEvent)
	OnStageStart  func(context.Context, *StageEvent)
	OnStageFinish func(context.Context, *StageEvent)
	OnDegraded    func(context.Context, *StageEvent)
}
