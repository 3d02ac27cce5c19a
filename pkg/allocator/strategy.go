package allocator

import (
	"fmt"
	"strings"

	"github.com/aretw0/plotline/pkg/ports"
)

// Strategy selects an allocation policy.
type Strategy string

const (
	// StrategySequential suits single-process, human-invoked runs.
	StrategySequential Strategy = "sequential"
	// StrategyToken is required whenever runs may execute concurrently.
	StrategyToken Strategy = "token"
)

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySequential:
		return StrategySequential, nil
	case StrategyToken, "uuid", "unique":
		return StrategyToken, nil
	}
	return "", fmt.Errorf("unknown allocation strategy %q (supported: sequential, token)", s)
}

// New builds the allocator for a strategy.
func New(strategy Strategy, opts ...Option) (ports.Allocator, error) {
	switch strategy {
	case StrategySequential:
		return NewSequential(opts...), nil
	case StrategyToken:
		return NewToken(opts...), nil
	}
	return nil, fmt.Errorf("unknown allocation strategy %q", strategy)
}
