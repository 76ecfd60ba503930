package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/viralforge/economy-bridge/internal/domain"
	"github.com/viralforge/economy-bridge/internal/ports"
)

const (
	// DefaultTimeout bounds every gateway round-trip.
	DefaultTimeout = 20 * time.Second

	maxResponseBytes = 1 << 20
)

// Client talks to the economy gateway using the form-encoded request / flat JSON
// response envelope. It never retries; callers own the retry policy.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client whose requests fail after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger: slog.Default().With(
			"module", "gateway",
			"layer", "adapter",
		),
	}
}

// EncodeParameters renders the request body. The method comes first, the fields follow
// in key order. Values are not escaped: the protocol forbids '&' and '=' in them.
func EncodeParameters(method string, fields domain.ParameterSet) string {
	parts := make([]string, 0, len(fields)+1)
	if method != "" {
		parts = append(parts, "method="+method)
	}
	for _, k := range fields.SortedKeys() {
		if k == "method" {
			continue
		}
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, "&")
}

// Request posts one gateway call and decodes the flat JSON reply.
func (c *Client) Request(ctx context.Context, url, method string, fields domain.ParameterSet) (domain.GatewayResponse, error) {
	start := time.Now()
	body := EncodeParameters(method, fields)
	c.logger.DebugContext(ctx, "gateway request", "operation", "gateway_request", "gateway_method", method, "url", url, "body", body)

	resp, err := c.do(ctx, url, body)
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrGatewayDecode):
		outcome = "decode_failure"
	default:
		outcome = "transport_failure"
	}
	observeRequest(method, outcome, time.Since(start))

	if err != nil {
		c.logger.ErrorContext(ctx, "gateway request failed",
			"operation", "gateway_request",
			"outcome", "failure",
			"gateway_method", method,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, url, body string) (domain.GatewayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrGatewayUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, res.StatusCode)
	}
	c.logger.DebugContext(ctx, "gateway response", "operation", "gateway_request", "body", strings.TrimSpace(string(raw)))

	return Decode(raw)
}

// Decode parses a gateway body into a flat string map.
func Decode(raw []byte) (domain.GatewayResponse, error) {
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayDecode, err)
	}
	if out == nil {
		out = map[string]string{}
	}
	return domain.GatewayResponse(out), nil
}

var _ ports.GatewayClient = (*Client)(nil)
