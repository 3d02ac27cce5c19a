package domain

import "path/filepath"

// File names written inside a bundle directory.
const (
	RasterBaseName    = "generated"
	VectorFileName    = "generated.svg"
	MotionFileName    = "generated.gcode"
	ThumbnailFileName = "thumbnail.png"
	PreparedFileName  = "prepared.png"
	ArchiveExtension  = ".zip"
)

// ArtifactKind names one file of a bundle. It is the opaque handle adapters expose
// instead of filesystem paths.
type ArtifactKind string

const (
	ArtifactRaster    ArtifactKind = "raster"
	ArtifactVector    ArtifactKind = "vector"
	ArtifactMotion    ArtifactKind = "motion"
	ArtifactThumbnail ArtifactKind = "thumbnail"
	ArtifactArchive   ArtifactKind = "archive"
)

// ArtifactBundle is the unit of work state of one pipeline run.
// ID and RootPath are set at allocation; each stage sets exactly one path on success.
type ArtifactBundle struct {
	ID       string `json:"id"`
	RootPath string `json:"root_path"`

	RasterPath string `json:"raster_path,omitempty"`
	VectorPath string `json:"vector_path,omitempty"`
	MotionPath string `json:"motion_path,omitempty"`

	// Optional post-processing outputs.
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	ArchivePath   string `json:"archive_path,omitempty"`
}

// NewBundle returns a bundle rooted at an allocated directory.
func NewBundle(rootPath string) *ArtifactBundle {
	return &ArtifactBundle{
		ID:       filepath.Base(rootPath),
		RootPath: rootPath,
	}
}

// Complete reports whether every mandatory stage produced its output.
func (b *ArtifactBundle) Complete() bool {
	if b == nil {
		return false
	}
	return b.RootPath != "" && b.RasterPath != "" && b.VectorPath != "" && b.MotionPath != ""
}

// Path returns the stored path for an artifact kind, or "" when it was not produced.
func (b *ArtifactBundle) Path(kind ArtifactKind) string {
	if b == nil {
		return ""
	}
	switch kind {
	case ArtifactRaster:
		return b.RasterPath
	case ArtifactVector:
		return b.VectorPath
	case ArtifactMotion:
		return b.MotionPath
	case ArtifactThumbnail:
		return b.ThumbnailPath
	case ArtifactArchive:
		return b.ArchivePath
	}
	return ""
}

// Kinds lists the artifact kinds the bundle currently holds, in a stable order.
func (b *ArtifactBundle) Kinds() []ArtifactKind {
	all := []ArtifactKind{ArtifactRaster, ArtifactVector, ArtifactMotion, ArtifactThumbnail, ArtifactArchive}
	var out []ArtifactKind
	for _, k := range all {
		if b.Path(k) != "" {
			out = append(out, k)
		}
	}
	return out
}

// Snapshot returns a copy that can be handed out without sharing mutable state.
func (b *ArtifactBundle) Snapshot() *ArtifactBundle {
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}
