package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// retrySleepFunc is the sleep function used between retries (injectable for tests)
var retrySleepFunc = time.Sleep

// RetryingOracle wraps an oracle with bounded exponential backoff on
// transient failures. Timeouts are not retried here: the caller marks the
// unit ORACLE_TIMEOUT and moves on.
type RetryingOracle struct {
	inner       Oracle
	maxAttempts int
}

// NewRetryingOracle wraps an oracle with retry behavior
func NewRetryingOracle(inner Oracle, maxAttempts int) *RetryingOracle {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RetryingOracle{inner: inner, maxAttempts: maxAttempts}
}

// Name returns the inner provider name
func (r *RetryingOracle) Name() string {
	return r.inner.Name()
}

// Classify calls the inner oracle with retries
func (r *RetryingOracle) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	var resp *ClassifyResponse
	err := r.do(ctx, func() error {
		var innerErr error
		resp, innerErr = r.inner.Classify(ctx, req)
		return innerErr
	})
	return resp, err
}

// Verify calls the inner oracle with retries
func (r *RetryingOracle) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	var resp *VerifyResponse
	err := r.do(ctx, func() error {
		var innerErr error
		resp, innerErr = r.inner.Verify(ctx, req)
		return innerErr
	})
	return resp, err
}

func (r *RetryingOracle) do(ctx context.Context, call func() error) error {
	var err error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err = call()
		if err == nil || !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < r.maxAttempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			retrySleepFunc(backoff)
		}
	}
	return err
}

// isRetryable returns true for transient failures: transport hiccups and
// malformed responses, which a fresh completion often fixes
func isRetryable(err error) bool {
	if errors.Is(err, ErrOracleTimeout) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "rate limit") ||
		strings.Contains(s, "429") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503")
}
