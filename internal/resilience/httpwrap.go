package resilience

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPClient wraps an http.Client with retries, per-attempt timeouts and a
// circuit breaker. It is used for outbound payment gateway calls.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
}

// NewGatewayClient returns an HTTPClient for the named gateway whose transport
// emits OpenTelemetry client spans.
func NewGatewayClient(gateway string, timeout time.Duration, maxAttempts int) HTTPClient {
	return HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return gateway + " " + r.Method + " " + r.URL.Path
				}),
			),
		},
		Breaker:     NewBreaker(5, 0.5, 30*time.Second).WithTarget(gateway),
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: maxAttempts,
		Jitter:      0.2,
		Timeout:     timeout,
	}
}

// Do executes req. Transport errors and 5xx responses are retried with
// exponential backoff; the body is buffered so it can be replayed. When the
// breaker is open ErrOpenCircuit is returned without touching the network.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	maxAttempts := cl.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	breaker := cl.Breaker
	if breaker == nil {
		// never reaches its minimum sample within one call
		breaker = NewBreaker(maxAttempts+1, 1, time.Second)
	}

	body, err := replayableBody(req)
	if err != nil {
		return nil, err
	}
	gateway := breaker.targetLabel()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !breaker.Allow(ctx) {
			GatewayAttempts.WithLabelValues(gateway, "rejected").Inc()
			return nil, ErrOpenCircuit
		}
		resp, err := cl.doOnce(ctx, cloneRequest(ctx, req, body))
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			breaker.Report(ctx, true)
			GatewayAttempts.WithLabelValues(gateway, "ok").Inc()
			return resp, nil
		}
		breaker.Report(ctx, false)
		GatewayAttempts.WithLabelValues(gateway, "failed").Inc()
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New(resp.Status)
			if attempt == maxAttempts {
				// hand the final 5xx back so callers can read the error body
				return resp, nil
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(cl.BaseBackoff, attempt, cl.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		return cl.Client.Do(req)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func replayableBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	return data, nil
}

func cloneRequest(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		clone.ContentLength = int64(len(body))
	}
	return clone
}
