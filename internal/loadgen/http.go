package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/moodtune/pkg/logger"
)

// Outcome is the result of one submitted request.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeFailed    Outcome = "failed"
)

// HTTPClient wraps http.Client for the service's JSON API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(cfg *Config) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: cfg.Timeout}, baseURL: cfg.BaseURL}
}

// Get fetches path, sending subject when non-empty, and decodes the JSON body into out.
func (c *HTTPClient) Get(ctx context.Context, path, subject string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if subject != "" {
		req.Header.Set("X-Subject-ID", subject)
	}
	return c.do(req, out)
}

// Recommend posts one generated request.
func (c *HTTPClient) Recommend(ctx context.Context, r Request) (int, error) {
	body, err := json.Marshal(map[string]string{"text": r.Text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recommendations", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Subject-ID", r.Subject)
	req.Header.Set("Idempotency-Key", r.IdempotencyKey)
	return c.do(req, nil)
}

func (c *HTTPClient) do(req *http.Request, out any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode != StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func classify(status int, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case status == StatusOK:
		return OutcomeSuccess
	case status == StatusConflict:
		return OutcomeDuplicate
	case status == StatusNotFound:
		return OutcomeNoMatch
	default:
		return OutcomeFailed
	}
}

// submitRequests sends requests through a worker pool. It returns the number
// of successful recommendations per subject.
func submitRequests(ctx context.Context, cfg *Config, reqs []Request, stats *Stats) map[string]int {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "submitting requests", logger.Int("requests", len(reqs)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg)
	var submitted, successful, duplicate, noMatch, failed int64

	var mu sync.Mutex
	perSubject := make(map[string]int)

	jobs := make(chan Request, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				if ctx.Err() != nil {
					return
				}
				status, err := client.Recommend(ctx, r)
				atomic.AddInt64(&submitted, 1)
				switch classify(status, err) {
				case OutcomeSuccess:
					atomic.AddInt64(&successful, 1)
					mu.Lock()
					perSubject[r.Subject]++
					mu.Unlock()
				case OutcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case OutcomeNoMatch:
					atomic.AddInt64(&noMatch, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "request failed", logger.Int("status", status), logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, r := range reqs {
			select {
			case <-ctx.Done():
				return
			case jobs <- r:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Successful = int(atomic.LoadInt64(&successful))
	stats.Duplicate = int(atomic.LoadInt64(&duplicate))
	stats.NoMatch = int(atomic.LoadInt64(&noMatch))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("no_match", stats.NoMatch),
		logger.Int("failed", stats.Failed))
	return perSubject
}
