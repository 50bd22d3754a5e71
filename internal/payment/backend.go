package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"

	"go.uber.org/zap"
)

// Backend produces a signed gateway payload. Business refusals come back as
// Success=false; transport failures as errors.
type Backend interface {
	RequestSignature(ctx context.Context, req SignRequest) (*SignResponse, error)
}

type httpBackend struct {
	url        string
	httpClient *http.Client
}

// NewHTTPBackend posts sign requests to a remote signing function.
func NewHTTPBackend(url string) Backend {
	return &httpBackend{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (b *httpBackend) RequestSignature(ctx context.Context, req SignRequest) (*SignResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("method", "RequestSignature"),
		zap.String("order_id", req.OrderID),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		log.Error("payment backend request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment backend response: %w", err)
	}

	var out SignResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 400 {
			log.Error("payment backend returned non-success status",
				zap.Int("status", resp.StatusCode),
				zap.ByteString("response", raw),
			)
			return nil, fmt.Errorf("%w: %d", ErrBackendStatus, resp.StatusCode)
		}
		return nil, fmt.Errorf("decode payment backend response: %w", err)
	}

	// A JSON body with an error status is a refusal, not an outage.
	if resp.StatusCode >= 400 {
		out.Success = false
		if out.Error == "" {
			out.Error = http.StatusText(resp.StatusCode)
		}
	}
	return &out, nil
}
