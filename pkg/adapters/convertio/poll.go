package convertio

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backoff selects how the wait between status polls evolves.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// ParseBackoff maps a configuration value to a Backoff. Empty means fixed.
func ParseBackoff(s string) (Backoff, error) {
	switch Backoff(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackoffFixed:
		return BackoffFixed, nil
	case BackoffExponential:
		return BackoffExponential, nil
	}
	return "", fmt.Errorf("unknown backoff %q (supported: fixed, exponential)", s)
}

// PollConfig bounds the wait for a conversion job.
type PollConfig struct {
	// Interval is the first wait between polls.
	Interval time.Duration
	// MaxAttempts caps the number of status requests. Zero disables this cap.
	MaxAttempts int
	// Timeout caps the total time spent polling. Zero disables this cap.
	// At least one of MaxAttempts and Timeout always applies; see bounded.
	Timeout time.Duration
	Backoff Backoff
	// MaxInterval caps exponential growth. Zero means uncapped.
	MaxInterval time.Duration
}

// DefaultPollConfig polls every 3 seconds for at most 5 minutes.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    3 * time.Second,
		MaxAttempts: 100,
		Timeout:     5 * time.Minute,
		Backoff:     BackoffFixed,
		MaxInterval: 30 * time.Second,
	}
}

// bounded fills in defaults so polling always ends: a non-positive Interval takes the
// default interval and, when neither cap is set, both default caps apply.
func (p PollConfig) bounded() PollConfig {
	def := DefaultPollConfig()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.MaxAttempts <= 0 && p.Timeout <= 0 {
		p.MaxAttempts = def.MaxAttempts
		p.Timeout = def.Timeout
	}
	return p
}

// wait returns the delay before poll number attempt+1 (attempt starts at 1).
func (p PollConfig) wait(attempt int) time.Duration {
	d := p.Interval
	if p.Backoff != BackoffExponential {
		return d
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxInterval > 0 && d >= p.MaxInterval {
			return p.MaxInterval
		}
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
