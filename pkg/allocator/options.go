package allocator

import (
	"log/slog"
	"time"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/ports"
)

type config struct {
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	logger      *slog.Logger
	tokenSource func() (string, error)
}

func newConfig(opts []Option) *config {
	c := &config{
		lockTTL:     DefaultLockTTL,
		logger:      logging.NewNop(),
		tokenSource: newUUID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures an allocator.
type Option func(*config)

// WithLocker enables cross-process locking for the sequential strategy.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *config) {
		c.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed allocation locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.lockTTL = ttl
	}
}

// WithLogger configures a logger for the allocator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenSource replaces the random token generator of the token strategy.
func WithTokenSource(source func() (string, error)) Option {
	return func(c *config) {
		c.tokenSource = source
	}
}
