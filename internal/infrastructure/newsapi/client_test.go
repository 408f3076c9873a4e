package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/logging"
	"NewsIngest/internal/ratelimit"
)

func articlesJSON(n int) string {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"title":       fmt.Sprintf("Headline number %d for testing", i),
			"description": "A sufficiently long description for the article body.",
			"url":         fmt.Sprintf("https://news.example.com/a/%d", i),
			"publishedAt": "2026-10-01T10:00:00Z",
			"source":      map[string]any{"name": "Example", "url": "https://news.example.com"},
		})
	}
	raw, _ := json.Marshal(map[string]any{"totalArticles": n, "articles": items})
	return string(raw)
}

func newTestClient(baseURL string, gate *ratelimit.Gate, retries int) *Client {
	return NewClient(Options{
		BaseURL:        baseURL,
		APIKey:         "secret",
		Language:       "en",
		Country:        "us",
		MaxRetries:     retries,
		RetryDelay:     time.Millisecond,
		MaxRetryDelay:  5 * time.Millisecond,
		RequestTimeout: time.Second,
		FetchTimeout:   5 * time.Second,
	}, gate, nil, logging.Discard())
}

func TestFetchTruncatesToMaxItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articlesJSON(45)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil, 0)
	records, err := c.Fetch(context.Background(), domain.FetchTarget{Kind: domain.TargetTopic, Value: "climate"}, 30)

	require.NoError(t, err)
	assert.Len(t, records, 30)
	assert.Equal(t, "climate", records[0].Query)
	assert.Empty(t, records[0].CategoryHint)
	assert.False(t, records[0].FetchedAt.IsZero())
}

func TestFetchBuildsRequest(t *testing.T) {
	t.Parallel()

	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(articlesJSON(1)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil, 0)
	records, err := c.Fetch(context.Background(), domain.FetchTarget{Kind: domain.TargetCategory, Value: "sports"}, 500)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sports", records[0].CategoryHint)

	require.NotNil(t, got)
	assert.Equal(t, "/top-headlines", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "sports", q.Get("category"))
	assert.Equal(t, "100", q.Get("max"))
	assert.Equal(t, "secret", q.Get("apikey"))
	assert.Equal(t, "en", q.Get("lang"))
}

func TestFetchRetriesTransient(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		fail      func(w http.ResponseWriter)
		rateLimit int64
	}{
		"server error": {
			fail: func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) },
		},
		"too many requests": {
			fail:      func(w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) },
			rateLimit: 2,
		},
		"malformed payload": {
			fail: func(w http.ResponseWriter) { _, _ = w.Write([]byte(`{"articles": [`)) },
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= 2 {
					tc.fail(w)
					return
				}
				_, _ = w.Write([]byte(articlesJSON(3)))
			}))
			defer srv.Close()

			c := newTestClient(srv.URL, nil, 3)
			records, err := c.Fetch(context.Background(), domain.FetchTarget{Kind: domain.TargetTopic, Value: "ai"}, 10)

			require.NoError(t, err)
			assert.Len(t, records, 3)
			assert.Equal(t, int32(3), calls.Load())

			stats := c.Stats()
			assert.Equal(t, int64(3), stats.TotalRequests)
			assert.Equal(t, int64(1), stats.Successful)
			assert.Equal(t, int64(2), stats.Retries)
			assert.Equal(t, tc.rateLimit, stats.RateLimitHits)
		})
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil, 2)
	records, err := c.Fetch(context.Background(), domain.FetchTarget{Kind: domain.TargetTopic, Value: "ai"}, 10)

	assert.Nil(t, records)
	var apiErr *domain.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPermanentFailureStops(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil, 5)
	_, err := c.Fetch(context.Background(), domain.FetchTarget{Kind: domain.TargetTopic, Value: "ai"}, 10)

	var apiErr *domain.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, apiErr.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchHonorsGate(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		stamp []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamp = append(stamp, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(articlesJSON(1)))
	}))
	defer srv.Close()

	gate := ratelimit.NewGate(time.Second)
	c := newTestClient(srv.URL, gate, 0)
	target := domain.FetchTarget{Kind: domain.TargetTopic, Value: "ai"}

	_, err := c.Fetch(context.Background(), target, 5)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), target, 5)
	require.NoError(t, err)

	require.Len(t, stamp, 2)
	assert.GreaterOrEqual(t, stamp[1].Sub(stamp[0]), 990*time.Millisecond)
	assert.Equal(t, int64(1), c.Stats().Throttled)
}

func TestFetchLenientDecoding(t *testing.T) {
	t.Parallel()

	body := `{"totalArticles": "two", "articles": [
		{"title": 42, "url": "https://x.example/1", "source": "oops", "description": null},
		"not an object",
		{"title": "Fine title here", "publishedAt": "yesterday", "source": {"name": "Wire"}}
	]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil, 0)
	records, err := c.Fetch(context.Background(), domain.FetchTarget{Kind: domain.TargetTopic, Value: "ai"}, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Nil(t, records[0].Title)
	assert.Nil(t, records[0].Description)
	assert.Nil(t, records[0].SourceName)
	require.NotNil(t, records[0].URL)
	assert.Equal(t, "https://x.example/1", *records[0].URL)

	require.NotNil(t, records[1].SourceName)
	assert.Equal(t, "Wire", *records[1].SourceName)
	assert.Nil(t, records[1].URL)
}

func TestProbeRespectsGate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/top-headlines"))
		_, _ = w.Write([]byte(articlesJSON(1)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ratelimit.NewGate(time.Hour), 0)
	require.NoError(t, c.Probe(context.Background()))

	var rl *domain.RateLimitError
	require.ErrorAs(t, c.Probe(context.Background()), &rl)
}

func TestFetchZeroItems(t *testing.T) {
	t.Parallel()

	c := newTestClient("http://127.0.0.1:1", nil, 0)
	records, err := c.Fetch(context.Background(), domain.FetchTarget{Kind: domain.TargetTopic, Value: "ai"}, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}
