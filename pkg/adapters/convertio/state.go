package convertio

// JobState is the normalized state of a remote conversion job.
type JobState string

const (
	StateQueued     JobState = "queued"
	StateUploading  JobState = "uploading"
	StateConverting JobState = "converting"
	StateFinished   JobState = "finished"
	StateError      JobState = "error"
	StateFailed     JobState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool {
	return s == StateFinished || s == StateError || s == StateFailed
}

// stateOf maps the step reported by the service to a JobState. Unknown steps are
// treated as still converting.
func stateOf(step string) JobState {
	switch step {
	case "wait", "queued":
		return StateQueued
	case "upload", "uploading":
		return StateUploading
	case "finish", "finished":
		return StateFinished
	case "error":
		return StateError
	case "failed":
		return StateFailed
	}
	return StateConverting
}
