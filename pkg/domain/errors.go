package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds of a pipeline run. Fatal kinds abort the run; ErrPromptExpansionDegraded and
// the post-processing warnings never do.
var (
	ErrPromptExpansionDegraded = errors.New("prompt expansion degraded")
	ErrImageGenerationFailed   = errors.New("image generation failed")
	ErrAllocationFailed        = errors.New("allocation failed")
	ErrDownloadFailed          = errors.New("download failed")
	ErrVectorConversionFailed  = errors.New("vector conversion failed")
	ErrMotionConversionFailed  = errors.New("motion conversion failed")
	ErrPostProcessFailed       = errors.New("post-processing failed")
	ErrCancelled               = errors.New("cancelled")
)

// Causes surfaced by specific stages.
var (
	// ErrEmptyInput is returned by the converter for a path set without segments.
	ErrEmptyInput = errors.New("empty input")
	// ErrPollTimeout is returned when a conversion job never reaches a terminal state
	// within its configured bound.
	ErrPollTimeout = errors.New("conversion poll bound exceeded")
	// ErrJobFailed is returned when a conversion job reports a failure terminal state.
	ErrJobFailed = errors.New("conversion job failed")
)

// Concept validation errors.
var (
	ErrEmptyConcept    = errors.New("concept is empty")
	ErrConceptTooLarge = errors.New("concept exceeds maximum allowed size")
	ErrInvalidUTF8     = errors.New("concept contains invalid UTF-8 sequences")
)

// ErrArtifactNotFound is returned when a bundle or one of its files does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// Stage identifies a step of the pipeline.
type Stage string

const (
	StageExpand    Stage = "expand_prompt"
	StageGenerate  Stage = "generate_image"
	StageAllocate  Stage = "allocate"
	StageDownload  Stage = "download_raster"
	StagePrepare   Stage = "prepare_raster"
	StageVectorize Stage = "vectorize"
	StageConvert   Stage = "convert_motion"
	StageThumbnail Stage = "thumbnail"
	StageArchive   Stage = "archive"
	StagePublish   Stage = "publish"
)

// StageError is a failure tagged with the stage that produced it.
// errors.Is matches both the Kind sentinel and anything in the Err chain.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

// NewStageError builds a StageError. A context cancellation or deadline in err overrides
// kind with ErrCancelled.
func NewStageError(stage Stage, kind error, err error) *StageError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = ErrCancelled
	}
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Public returns a message safe to cross a trust boundary: stage and kind only, never
// the underlying cause (which may carry filesystem paths or upstream payloads).
func (e *StageError) Public() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
}

// Warning is a non-fatal stage failure recorded on a run result.
type Warning struct {
	Stage Stage `json:"stage"`
	Err   error `json:"-"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Stage, w.Err)
}
