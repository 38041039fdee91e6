package llmclient

import (
	"context"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 2 * time.Second
)

// retryClient wraps a Client with simple exponential backoff.
// Permanent errors and context cancellation are not retried.
type retryClient struct {
	inner    Client
	attempts int
	backoff  time.Duration
}

// WithRetry wraps client so transient transport failures are retried.
func WithRetry(client Client, attempts int, backoff time.Duration) Client {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &retryClient{inner: client, attempts: attempts, backoff: backoff}
}

func (r *retryClient) Name() string { return r.inner.Name() }
func (r *retryClient) Close() error { return r.inner.Close() }

func (r *retryClient) Chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	var lastErr error
	delay := r.backoff
	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		out, err := r.inner.Chat(ctx, system, user, maxTokens)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if IsPermanent(err) || ctx.Err() != nil {
			return "", err
		}
	}
	return "", lastErr
}
