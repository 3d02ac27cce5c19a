package ports

import (
	"context"

	"github.com/aretw0/plotline/pkg/domain"
)

// ResultStore keeps finished run results by bundle ID so inbound adapters can resolve
// opaque artifact references without exposing filesystem paths.
type ResultStore interface {
	// Save records a result. Results without a bundle are ignored.
	Save(ctx context.Context, result *domain.Result) error
	// Load returns domain.ErrArtifactNotFound for unknown bundle IDs.
	Load(ctx context.Context, bundleID string) (*domain.Result, error)
	Delete(ctx context.Context, bundleID string) error
	List(ctx context.Context) ([]string, error)
}
