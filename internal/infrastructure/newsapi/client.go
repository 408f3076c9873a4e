package newsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/metrics"
	"NewsIngest/internal/ports"
	"NewsIngest/internal/ratelimit"
	"NewsIngest/internal/retry"
)

// The upstream caps page size at 100.
const maxPageSize = 100

// Options configures the search API client.
type Options struct {
	BaseURL        string
	APIKey         string
	Language       string
	Country        string
	MaxRetries     int
	RetryDelay     time.Duration
	MaxRetryDelay  time.Duration
	RequestTimeout time.Duration
	FetchTimeout   time.Duration
}

// Stats is an in-process snapshot of client activity.
type Stats struct {
	TotalRequests int64     `json:"total_requests"`
	Successful    int64     `json:"successful"`
	Failed        int64     `json:"failed"`
	Retries       int64     `json:"retries"`
	RateLimitHits int64     `json:"rate_limit_hits"`
	Throttled     int64     `json:"throttled"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// SuccessRate is successful over total attempts, 0 when idle.
func (s Stats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.TotalRequests)
}

// Client fetches headlines and searches from a GNews-compatible API.
type Client struct {
	opts   Options
	gate   *ratelimit.Gate
	http   *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

var _ ports.NewsFetcher = (*Client)(nil)

// NewClient wires the shared rate gate into a reusable HTTP client.
func NewClient(opts Options, gate *ratelimit.Gate, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if gate == nil {
		gate = ratelimit.NewGate(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{opts: opts, gate: gate, http: httpClient, logger: logger}
}

// Fetch requests up to maxItems records for target. Every attempt passes the
// rate gate. Transient failures are retried with exponential backoff; after
// the last failure Fetch returns no records and an *domain.ApiError.
func (c *Client) Fetch(ctx context.Context, target domain.FetchTarget, maxItems int) ([]domain.RawRecord, error) {
	if maxItems <= 0 {
		return nil, nil
	}

	reqURL, err := c.buildURL(target, min(maxItems, maxPageSize))
	if err != nil {
		return nil, &domain.ApiError{Target: target.String(), Err: err}
	}

	if c.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
	}

	policy := retry.Policy{
		MaxRetries: c.opts.MaxRetries,
		BaseDelay:  c.opts.RetryDelay,
		MaxDelay:   c.opts.MaxRetryDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.bump(func(s *Stats) { s.Retries++ })
			metrics.RecordRetry()
			c.logger.Warn("news api attempt failed, retrying",
				"target", target.String(), "attempt", attempt, "backoff", delay, "error", err)
		},
	}

	var (
		records    []domain.RawRecord
		lastStatus int
	)
	attempts, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		waited, err := c.gate.Wait(ctx)
		if err != nil {
			return retry.Permanent(err)
		}
		if waited > 0 {
			c.bump(func(s *Stats) { s.Throttled++ })
			metrics.RecordThrottle()
		}

		recs, status, err := c.get(ctx, reqURL)
		lastStatus = status
		if err != nil {
			c.bump(func(s *Stats) {
				s.TotalRequests++
				s.Failed++
				s.LastError = err.Error()
			})
			metrics.RecordAPIRequest(string(target.Kind), "failure")
			return err
		}
		c.bump(func(s *Stats) {
			s.TotalRequests++
			s.Successful++
			s.LastSuccess = time.Now()
		})
		metrics.RecordAPIRequest(string(target.Kind), "success")
		records = recs
		return nil
	})
	if err != nil {
		c.logger.Error("news api fetch failed", "target", target.String(), "attempts", attempts, "error", err)
		return nil, &domain.ApiError{Target: target.String(), StatusCode: lastStatus, Attempts: attempts, Err: err}
	}

	if len(records) > maxItems {
		records = records[:maxItems]
	}
	now := time.Now().UTC()
	for i := range records {
		records[i].Query = target.Value
		if target.Kind == domain.TargetCategory {
			records[i].CategoryHint = target.Value
		}
		records[i].FetchedAt = now
	}

	c.logger.Debug("news api fetch done", "target", target.String(), "records", len(records), "attempts", attempts)
	return records, nil
}

// Probe issues one non-waiting request; it fails with *domain.RateLimitError
// if the gate is still closed.
func (c *Client) Probe(ctx context.Context) error {
	if err := c.gate.TryAcquire(); err != nil {
		return err
	}
	reqURL, err := c.buildURL(domain.FetchTarget{Kind: domain.TargetCategory, Value: domain.CategoryGeneral}, 1)
	if err != nil {
		return err
	}
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}
	_, _, err = c.get(ctx, reqURL)
	return err
}

// Stats returns a copy of the activity counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Client) bump(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func (c *Client) buildURL(target domain.FetchTarget, pageSize int) (string, error) {
	if strings.TrimSpace(target.Value) == "" {
		return "", errors.New("empty fetch target")
	}

	q := url.Values{}
	var path string
	switch target.Kind {
	case domain.TargetCategory:
		path = "/top-headlines"
		q.Set("category", target.Value)
	case domain.TargetTopic:
		path = "/search"
		q.Set("q", target.Value)
		q.Set("sortby", "publishedAt")
	default:
		return "", fmt.Errorf("unknown target kind %q", target.Kind)
	}
	if c.opts.Language != "" {
		q.Set("lang", c.opts.Language)
	}
	if c.opts.Country != "" {
		q.Set("country", c.opts.Country)
	}
	q.Set("max", strconv.Itoa(pageSize))
	if c.opts.APIKey != "" {
		q.Set("apikey", c.opts.APIKey)
	}

	return c.opts.BaseURL + path + "?" + q.Encode(), nil
}

// get performs one attempt and classifies its failure for the retry loop.
func (c *Client) get(ctx context.Context, reqURL string) ([]domain.RawRecord, int, error) {
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, retry.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.bump(func(s *Stats) { s.RateLimitHits++ })
		return nil, resp.StatusCode, retry.Throttled(fmt.Errorf("unexpected status %s", resp.Status))
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, retry.Permanent(fmt.Errorf("unexpected status %s", resp.Status))
	}

	records, err := decode(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return records, resp.StatusCode, nil
}
