package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Client calls a drop-shipping provider endpoint.
type Client interface {
	RequestFulfillment(ctx context.Context, providerURL string, req Request) (*Response, error)
}

type httpClient struct {
	httpClient *http.Client
	timeout    time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*Response]
}

// NewHTTPClient bounds each provider call by timeout and trips a per-provider breaker after
// repeated failures so an outage costs one fast error per item instead of a timeout.
func NewHTTPClient(timeout time.Duration) Client {
	return &httpClient{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[*Response]),
	}
}

func (c *httpClient) breaker(providerURL string) *gobreaker.CircuitBreaker[*Response] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[providerURL]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        providerURL,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("fulfillment breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	c.breakers[providerURL] = cb
	return cb
}

func (c *httpClient) RequestFulfillment(ctx context.Context, providerURL string, req Request) (*Response, error) {
	if providerURL == "" {
		return nil, ErrNoProvider
	}
	return c.breaker(providerURL).Execute(func() (*Response, error) {
		return c.do(ctx, providerURL, req)
	})
}

func (c *httpClient) do(ctx context.Context, providerURL string, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, providerURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fulfillment request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read fulfillment response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d %s", ErrProviderStatus, resp.StatusCode, string(raw))
	}

	var out Response
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode fulfillment response: %w", err)
		}
	}
	return &out, nil
}
