package allocator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/plotline/pkg/domain"
	"github.com/google/uuid"
)

// Token allocates directories named by a random 128-bit UUID.
// Safe for any number of concurrent callers without locking.
type Token struct {
	source func() (string, error)
	logger *slog.Logger
}

// NewToken creates a unique-token allocator.
func NewToken(opts ...Option) *Token {
	c := newConfig(opts)
	return &Token{
		source: c.tokenSource,
		logger: c.logger,
	}
}

// Allocate reserves a fresh token-named directory under root. The seed only appears in logs.
func (t *Token) Allocate(ctx context.Context, seed, root string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAllocationFailed, err)
	}

	token, err := t.source()
	if err != nil {
		return "", fmt.Errorf("%w: generate token: %w", domain.ErrAllocationFailed, err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("%w: ensure root: %w", domain.ErrAllocationFailed, err)
	}

	path := filepath.Join(root, token)
	if err := os.Mkdir(path, 0o755); err != nil {
		return "", fmt.Errorf("%w: create bundle dir: %w", domain.ErrAllocationFailed, err)
	}

	t.logger.Debug("Allocated token bundle", "seed", Sanitize(seed), "path", path)
	return path, nil
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
