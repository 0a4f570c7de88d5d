// Package retry provides the bounded randomized-backoff retry used by
// the ingestion gateway. Delays are drawn uniformly from [MinDelay,
// MaxDelay] between attempts.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/core/errs"
)

type Config struct {
	MaxAttempts int           // total attempts, including the first
	MinDelay    time.Duration // lower bound of the randomized wait
	MaxDelay    time.Duration // upper bound of the randomized wait
}

// DefaultConfig mirrors the platform adapter contract: up to 5 attempts
// with a 1-3s randomized wait between them.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, MinDelay: 1 * time.Second, MaxDelay: 3 * time.Second}
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. retryable decides whether a given failure is
// worth another attempt; a nil retryable retries everything.
func Do(ctx context.Context, cfg Config, log zerolog.Logger, retryable func(error) bool, op func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.MinDelay
		if cfg.MaxDelay > cfg.MinDelay {
			delay += time.Duration(rand.Int63n(int64(cfg.MaxDelay - cfg.MinDelay)))
		}
		log.Debug().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("delay", delay).
			Msg("retrying after failure")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// IsTransient classifies failures the gateway is allowed to retry:
// explicit rate-limit signals plus the usual network-ish suspects.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errs.ErrRateLimited) {
		return true
	}
	if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrNoTranscript) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"no such host",
		"broken pipe",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
