package ports

import "context"

// Allocator reserves a fresh, exclusively owned directory under root for a new bundle.
// The directory exists when Allocate returns. Implementations wrap failures so that
// callers can classify them as allocation failures.
type Allocator interface {
	Allocate(ctx context.Context, seed, root string) (string, error)
}
