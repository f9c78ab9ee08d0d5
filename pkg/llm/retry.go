package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// TransientError marks a failure worth retrying (timeouts, 5xx, connection
// resets). Anything else aborts the retry loop immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient llm error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

const (
	maxAttempts     = 3
	initialInterval = 2 * time.Second
	maxInterval     = 10 * time.Second
)

// retryProvider decorates any provider with exponential-backoff retries
// on transient failures.
type retryProvider struct {
	inner LLMProvider
}

// WithRetry wraps a provider so transient failures are retried up to 3
// times with exponential backoff. Streaming capability of the inner
// provider is preserved.
func WithRetry(inner LLMProvider) LLMProvider {
	if sp, ok := inner.(StreamingProvider); ok {
		return &retryStreamingProvider{retryProvider{inner: inner}, sp}
	}
	return &retryProvider{inner: inner}
}

func (r *retryProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	return retryCall(ctx, func() (string, error) {
		return r.inner.Chat(ctx, history, options...)
	})
}

func (r *retryProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return retryCall(ctx, func() (string, error) {
		return r.inner.Generate(ctx, prompt, options...)
	})
}

type retryStreamingProvider struct {
	retryProvider
	streamer StreamingProvider
}

func (r *retryStreamingProvider) GenerateStream(ctx context.Context, prompt string, onToken func(string), options ...Option) (string, error) {
	// No retry once tokens have been surfaced: a mid-stream restart would
	// duplicate output on the consumer side.
	emitted := false
	result, err := r.streamer.GenerateStream(ctx, prompt, func(tok string) {
		emitted = true
		onToken(tok)
	}, options...)
	if err != nil && !emitted && IsTransient(err) {
		return retryCall(ctx, func() (string, error) {
			return r.streamer.GenerateStream(ctx, prompt, onToken, options...)
		})
	}
	return result, err
}

func retryCall(ctx context.Context, call func() (string, error)) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.MaxInterval = maxInterval

	var result string
	op := func() error {
		var err error
		result, err = call()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
	return result, err
}
