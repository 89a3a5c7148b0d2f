package asynclog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the ingestion endpoint used when Config.BaseURL is empty
const DefaultBaseURL = "http://localhost:8080"

// Config configures a Client
type Config struct {
	// BaseURL of the gateway's ingestion API
	BaseURL string

	// APIKey is sent as the Authorization bearer credential
	APIKey string

	// HTTPClient carries the request. Default: 30 second timeout client.
	// Use NewBreakerTransport here to fail fast while the endpoint is down.
	HTTPClient *http.Client
}

// Result is the ingestion endpoint's reply
type Result struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx reply
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client submits finalized log records. Each call is a single attempt.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: base, apiKey: cfg.APIKey, httpClient: hc}
}

// Submit finalizes the builder and sends it tagged as a custom call
func (c *Client) Submit(ctx context.Context, b *LogBuilder) (*Result, error) {
	rec, err := b.Finalize()
	if err != nil {
		return nil, err
	}
	return c.Log(ctx, rec, ProviderCustom)
}

// Log sends rec to {BaseURL}/{provider}/v1/log. A non-2xx reply is returned
// as a Result; only transport failures are errors.
func (c *Client) Log(ctx context.Context, rec LogRecord, provider Provider) (*Result, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("asynclog: unknown provider %q", provider)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("asynclog: encode record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/v1/log", c.baseURL, provider)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("asynclog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asynclog: submit: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("asynclog: read reply: %w", err)
	}

	return &Result{StatusCode: resp.StatusCode, Body: body}, nil
}
