package allocator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/plotline/pkg/domain"
)

// Sequential allocates "<sanitized-seed>_<n>" directories, n being one more than the
// highest suffix already present under root.
type Sequential struct {
	locks  *keyLocks
	logger *slog.Logger
}

// NewSequential creates a sequential allocator.
func NewSequential(opts ...Option) *Sequential {
	c := newConfig(opts)
	return &Sequential{
		locks:  newKeyLocks(c.locker, c.lockTTL, c.logger),
		logger: c.logger,
	}
}

// Allocate reserves the next numbered directory for seed under root.
func (s *Sequential) Allocate(ctx context.Context, seed, root string) (string, error) {
	base := BaseName(seed)

	var reserved string
	err := s.locks.withLock(ctx, lockKey(root, base), func(ctx context.Context) error {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("ensure root: %w", err)
		}

		next, err := nextIndex(root, base)
		if err != nil {
			return err
		}

		path := filepath.Join(root, fmt.Sprintf("%s_%d", base, next))
		// Mkdir (not MkdirAll) so a name claimed behind our back surfaces as an error
		// instead of two runs sharing one directory.
		if err := os.Mkdir(path, 0o755); err != nil {
			return fmt.Errorf("create bundle dir: %w", err)
		}
		reserved = path
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAllocationFailed, err)
	}

	s.logger.Debug("Allocated sequential bundle", "seed", base, "path", reserved)
	return reserved, nil
}

// nextIndex scans root for directories named base_<n> and returns max(n)+1.
func nextIndex(root, base string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 1, nil
		}
		return 0, fmt.Errorf("scan root: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		suffix := strings.Trim(strings.TrimPrefix(entry.Name(), base), "_")
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest + 1, nil
}

func lockKey(root, base string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return abs + string(filepath.Separator) + base
}
