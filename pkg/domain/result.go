package domain

// Result is what a pipeline run returns to its caller.
// On failure the orchestrator still returns the partial Result alongside the error so the
// caller can report which files were left on disk; Bundle is nil if allocation never ran.
type Result struct {
	RunID    string           `json:"run_id"`
	Concept  string           `json:"concept"`
	Prompt   GenerationPrompt `json:"prompt"`
	Bundle   *ArtifactBundle  `json:"bundle,omitempty"`
	Warnings []Warning        `json:"-"`

	// ArchiveURL is set when the archive was published to remote storage.
	ArchiveURL string `json:"archive_url,omitempty"`
}

// Raster is a downloaded image payload.
type Raster struct {
	Data     []byte
	MIMEType string
	// Extension is the file extension without the dot (png, jpg, webp).
	Extension string
}
