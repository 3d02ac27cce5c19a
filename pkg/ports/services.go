package ports

import (
	"context"

	"github.com/aretw0/plotline/pkg/domain"
)

// PromptExpander turns free-text concept into a detailed generation prompt.
type PromptExpander interface {
	Expand(ctx context.Context, concept string) (string, error)
}

// ImageGenerator requests a raster image for a prompt.
// It returns a reference the RasterFetcher understands (http(s) URL or data URL).
// An empty reference with a nil error is treated as a failed generation.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RasterFetcher downloads the raster behind a reference.
type RasterFetcher interface {
	Fetch(ctx context.Context, ref string) (*domain.Raster, error)
}

// Vectorizer converts the raster at rasterPath into an SVG document written to destPath.
// Implementations must not leave a partial file at destPath on failure.
type Vectorizer interface {
	Vectorize(ctx context.Context, rasterPath, destPath string) error
}

// ArchivePublisher uploads an archive produced for a bundle and returns a reference
// (typically a time-limited URL) callers can hand out.
type ArchivePublisher interface {
	Publish(ctx context.Context, bundleID, archivePath string) (string, error)
}
