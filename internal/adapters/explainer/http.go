package explainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/moodtune/internal/adapters/breaker"
	"github.com/okian/moodtune/pkg/logger"
)

// ErrUnavailable is returned when no explainability backend can serve.
var ErrUnavailable = errors.New("explainer unavailable")

const defaultTimeout = 10 * time.Second

// Option configures an HTTPExplainer.
type Option func(*HTTPExplainer)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(e *HTTPExplainer) {
		if d > 0 {
			e.http.Timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(e *HTTPExplainer) {
		if cb != nil {
			e.cb = cb
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *HTTPExplainer) {
		if l != nil {
			e.logger = l
		}
	}
}

// HTTPExplainer calls POST {baseURL}/explain.
type HTTPExplainer struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  logger.Logger
}

type explainRequest struct {
	Text   string `json:"text"`
	Target string `json:"target_emotion"`
}

// NewHTTPExplainer creates an explainer for the service at baseURL.
func NewHTTPExplainer(baseURL string, opts ...Option) *HTTPExplainer {
	e := &HTTPExplainer{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.Get().Named("explainer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cb == nil {
		e.cb = breaker.New("explainer", e.logger)
	}
	return e
}

// Available implements Explainer. It is false while the breaker is open.
func (e *HTTPExplainer) Available(context.Context) bool {
	return e.baseURL != "" && e.cb.State() != gobreaker.StateOpen
}

// Explain implements Explainer.
func (e *HTTPExplainer) Explain(ctx context.Context, text, label string) (Explanation, error) {
	out, err := e.cb.Execute(func() (interface{}, error) {
		return e.call(ctx, explainRequest{Text: text, Target: label})
	})
	if err != nil {
		return Explanation{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	exp, _ := out.(Explanation)
	return exp, nil
}

func (e *HTTPExplainer) call(ctx context.Context, body explainRequest) (Explanation, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return Explanation{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/explain", bytes.NewReader(buf))
	if err != nil {
		return Explanation{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return Explanation{}, fmt.Errorf("POST /explain: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Explanation{}, fmt.Errorf("POST /explain: status %d", resp.StatusCode)
	}
	var exp Explanation
	if err := json.NewDecoder(resp.Body).Decode(&exp); err != nil {
		return Explanation{}, fmt.Errorf("decode explanation: %w", err)
	}
	return exp, nil
}
