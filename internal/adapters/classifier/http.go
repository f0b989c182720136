package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/moodtune/internal/adapters/breaker"
	"github.com/okian/moodtune/pkg/logger"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	maxResponseBytes   = 1 << 20
)

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) HTTPOption {
	return func(c *HTTPClient) {
		if cb != nil {
			c.cb = cb
		}
	}
}

// HTTPClient talks to a model server exposing POST /classify and GET /health.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  logger.Logger
	version atomic.Value // string
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Scores       map[string]float64 `json:"scores"`
	ModelVersion string             `json:"model_version"`
}

type healthResponse struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
}

// NewHTTPClient creates a client for the model server at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:  logger.Get().Named("classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		c.cb = breaker.New("classifier", c.logger)
	}
	return c
}

// Classify implements Classifier. Transport failures, non-2xx responses and
// an open breaker all surface as emotion.ErrModelUnavailable.
func (c *HTTPClient) Classify(ctx context.Context, text string) (map[string]float64, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		var resp classifyResponse
		if err := c.do(ctx, http.MethodPost, "/classify", classifyRequest{Text: text}, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if breaker.IsOpen(err) {
			return nil, unavailable(fmt.Errorf("classifier breaker: %w", err))
		}
		return nil, unavailable(err)
	}

	resp, _ := out.(classifyResponse)
	if err := checkScores(resp.Scores); err != nil {
		return nil, unavailable(err)
	}
	if resp.ModelVersion != "" {
		c.version.Store(resp.ModelVersion)
	}
	return resp.Scores, nil
}

// ModelVersion implements Versioner. It is empty until a classification
// response names a version.
func (c *HTTPClient) ModelVersion() string {
	v, _ := c.version.Load().(string)
	return v
}

// Health implements Prober.
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp healthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", unavailable(err)
	}
	return resp.ModelVersion, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, into any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(into); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
