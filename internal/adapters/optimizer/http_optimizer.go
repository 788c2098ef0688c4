package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"route-tracking-service/internal/platform/obs"
	"route-tracking-service/internal/ports"
	"strings"
	"time"
)

// ErrEmptyRoute is returned when the optimizer answers without an order.
var ErrEmptyRoute = errors.New("optimizer response has no optimizedRoute")

type Options struct {
	APIKey string
	// Timeout bounds each HTTP attempt; the caller's context bounds the whole call.
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	Client      *http.Client
	Logger      *slog.Logger
}

// HTTPOptimizer implements ports.RouteOptimizer against the re-route
// endpoint. It is safe for concurrent use.
type HTTPOptimizer struct {
	client      *http.Client
	url         string
	apiKey      string
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

func NewHTTPOptimizer(url string, opts Options) (*HTTPOptimizer, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("optimizer url is empty")
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 8 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPOptimizer{
		client:      client,
		url:         url,
		apiKey:      opts.APIKey,
		maxAttempts: attempts,
		backoff:     backoff,
		logger:      logger,
	}, nil
}

// Optimize posts the attendance snapshot and decodes the proposed order.
func (c *HTTPOptimizer) Optimize(
	ctx context.Context,
	in ports.OptimizationRequest,
) (_ *ports.OptimizationResponse, err error) {
	defer obs.Time(ctx, c.logger, "optimizer.Optimize")(&err)

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode optimization request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("optimize route %q: %w", in.RouteID, err)
	}
	defer resp.Body.Close()

	var out ports.OptimizationResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode optimization response: %w", err)
	}
	if len(out.OptimizedRoute) == 0 {
		return nil, ErrEmptyRoute
	}

	return &out, nil
}
