package exchange

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

const (
	defaultAttempts   = 3
	defaultTimeout    = 10 * time.Second
	defaultBackoffMin = 500 * time.Millisecond
	defaultBackoffMax = 8 * time.Second
)

// Transport is the retrying HTTP doer shared by the REST adapters. Transient
// failures (network errors, 5xx) are retried up to Attempts times with
// exponential backoff; 4xx responses are returned to the adapter immediately
// since retrying them cannot help. The client timeout bounds each individual
// request, independent of the retry budget.
type Transport struct {
	Client     *http.Client
	Logger     *zap.Logger
	Attempts   int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

func NewTransport(logger *zap.Logger) *Transport {
	return &Transport{
		Client:     &http.Client{Timeout: defaultTimeout},
		Logger:     logger,
		Attempts:   defaultAttempts,
		BackoffMin: defaultBackoffMin,
		BackoffMax: defaultBackoffMax,
	}
}

// Do executes the request built by build, retrying transient failures.
// The request is rebuilt on every attempt so bodies and nonces stay fresh.
// Returns the response body and status code; err is non-nil only when every
// attempt failed at the network level or the context expired.
func (t *Transport) Do(ctx context.Context, build func() (*http.Request, error)) ([]byte, int, error) {
	b := &backoff.Backoff{
		Min:    t.BackoffMin,
		Max:    t.BackoffMax,
		Factor: 2,
	}

	var lastErr error
	for attempt := 1; attempt <= t.Attempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, 0, err
		}
		req = req.WithContext(ctx)

		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			t.Logger.Warn("request failed",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode < 500 {
				return body, resp.StatusCode, nil
			} else {
				lastErr = &StatusError{Code: resp.StatusCode}
				t.Logger.Warn("server error",
					zap.String("url", req.URL.String()),
					zap.Int("status", resp.StatusCode),
					zap.Int("attempt", attempt))
			}
		}

		if attempt == t.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(b.Duration()):
		}
	}

	return nil, 0, lastErr
}

// StatusError marks a retryable HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return http.StatusText(e.Code)
}
