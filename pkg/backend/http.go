package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/example/regionkit/pkg/errors"
	"github.com/example/regionkit/pkg/scope"
)

const (
	defaultTimeout  = 5 * time.Minute
	defaultAttempts = 3
	defaultBackoff  = time.Second
)

// retryableError marks a transient failure (network error, 5xx) that
// should trigger another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// HTTP submits plans to a diffusion server over the JSON wire protocol.
//
// Requests are rate limited and transient failures retried with
// exponential backoff. A generation can take minutes, so the client
// timeout is generous; pass a ctx with a deadline to cut it shorter.
type HTTP struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

// HTTPOption configures an HTTP backend.
type HTTPOption func(*HTTP)

// WithRateLimit caps submissions to r per second with the given burst.
func WithRateLimit(r float64, burst int) HTTPOption {
	return func(b *HTTP) { b.limiter = rate.NewLimiter(rate.Limit(r), burst) }
}

// WithHeader adds a header to every request, e.g. an Authorization token.
func WithHeader(key, value string) HTTPOption {
	return func(b *HTTP) { b.headers[key] = value }
}

// WithHTTPClient replaces the default client, mainly for tests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTP) { b.client = c }
}

// NewHTTP creates an HTTP backend for the server at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	b := &HTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit posts the plan to /generate and decodes the per-region images.
func (b *HTTP) Submit(ctx context.Context, plan *scope.Plan) (*Result, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	wp, err := encodePlan(plan)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBackend, err, "encode plan")
	}
	body, err := json.Marshal(wp)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBackend, err, "marshal plan")
	}

	var wr wireResult
	err = retry(ctx, defaultAttempts, defaultBackoff, func() error {
		return b.post(ctx, "/generate", body, &wr)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBackend, err, "submit plan")
	}
	return decodeResult(&wr)
}

func (b *HTTP) post(ctx context.Context, path string, body []byte, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, val := range b.headers {
		req.Header.Set(k, val)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return &retryableError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(v)
	case resp.StatusCode >= 500:
		return &retryableError{err: fmt.Errorf("server status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("server status %d", resp.StatusCode)
	}
}

// retry runs fn up to attempts times, doubling the delay after each
// failure. Only retryableError values are retried.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !errors.As(err, new(*retryableError)) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
