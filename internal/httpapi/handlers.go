package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	defaultTrendingHours = 24
	maxTrendingHours     = 24 * 30
)

type handlers struct {
	reader ports.ArticleReader
	probe  IngestProbe
	logger *slog.Logger
}

type articleView struct {
	ID                 int64     `json:"id"`
	URL                string    `json:"url"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Source             string    `json:"source"`
	ImageURL           string    `json:"image_url,omitempty"`
	PublishedAt        time.Time `json:"published_at"`
	PublishedFallback  bool      `json:"published_fallback"`
	SentimentScore     float64   `json:"sentiment_score"`
	SentimentLabel     string    `json:"sentiment_label"`
	Confidence         float64   `json:"confidence"`
	Keywords           []string  `json:"keywords"`
	Category           string    `json:"category"`
	CategoryConfidence float64   `json:"category_confidence"`
	QualityScore       float64   `json:"quality_score"`
	Readability        float64   `json:"readability"`
	Query              string    `json:"query,omitempty"`
	IngestedAt         time.Time `json:"ingested_at"`
}

func toView(a domain.Article) articleView {
	kw := a.Keywords
	if kw == nil {
		kw = []string{}
	}
	return articleView{
		ID:                 a.ID,
		URL:                a.URL,
		Title:              a.Title,
		Description:        a.Description,
		Source:             a.Source,
		ImageURL:           a.ImageURL,
		PublishedAt:        a.PublishedAt,
		PublishedFallback:  a.PublishedFallback,
		SentimentScore:     a.SentimentScore,
		SentimentLabel:     string(a.SentimentLabel),
		Confidence:         a.Confidence,
		Keywords:           kw,
		Category:           a.Category,
		CategoryConfidence: a.CategoryConfidence,
		QualityScore:       a.QualityScore,
		Readability:        a.Readability,
		Query:              a.Query,
		IngestedAt:         a.IngestedAt,
	}
}

func (h *handlers) articles(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items, err := h.reader.Query(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("query articles", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}

	out := make([]articleView, 0, len(items))
	for _, a := range items {
		out = append(out, toView(a))
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": out, "count": len(out)})
}

func (h *handlers) stats(c echo.Context) error {
	stats, err := h.reader.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("load stats", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "stats failed")
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *handlers) runs(c echo.Context) error {
	limit, err := intParam(c, "limit", 10)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	runs, err := h.reader.RecentRuns(c.Request().Context(), min(limit, maxLimit))
	if err != nil {
		h.logger.Error("load runs", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "runs failed")
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}

func (h *handlers) trending(c echo.Context) error {
	hours, err := intParam(c, "window_hours", defaultTrendingHours)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if hours == 0 || hours > maxTrendingHours {
		return echo.NewHTTPError(http.StatusBadRequest, "window_hours must be between 1 and 720")
	}
	limit, err := intParam(c, "limit", domain.DefaultTrendingLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	window := time.Duration(hours) * time.Hour
	topics, err := h.reader.Trending(c.Request().Context(), window, min(limit, maxLimit))
	if err != nil {
		h.logger.Error("load trending", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "trending failed")
	}
	if topics == nil {
		topics = []domain.TrendingTopic{}
	}
	return c.JSON(http.StatusOK, map[string]any{"window_hours": hours, "topics": topics})
}

// health reports storage reachability and upstream activity. With
// ?probe=true it also tries one upstream request without waiting on the
// rate gate.
func (h *handlers) health(c echo.Context) error {
	ctx := c.Request().Context()
	body := map[string]any{"status": "healthy"}
	code := http.StatusOK

	if err := h.reader.Ping(ctx); err != nil {
		body["status"] = "unhealthy"
		body["storage"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		body["storage"] = "ok"
	}

	if h.probe != nil {
		stats := h.probe.Stats()
		body["ingestion"] = map[string]any{
			"total_requests":  stats.TotalRequests,
			"successful":      stats.Successful,
			"failed":          stats.Failed,
			"retries":         stats.Retries,
			"rate_limit_hits": stats.RateLimitHits,
			"throttled":       stats.Throttled,
			"success_rate":    stats.SuccessRate(),
			"last_error":      stats.LastError,
		}

		if probe, _ := strconv.ParseBool(c.QueryParam("probe")); probe {
			var rl *domain.RateLimitError
			switch err := h.probe.Probe(ctx); {
			case err == nil:
				body["upstream"] = "ok"
			case errors.As(err, &rl):
				body["upstream"] = "throttled"
				body["retry_after_ms"] = rl.RetryAfter.Milliseconds()
			default:
				body["upstream"] = err.Error()
				body["status"] = "degraded"
			}
		}
	}

	return c.JSON(code, body)
}

func parseFilter(c echo.Context) (domain.ArticleFilter, error) {
	f := domain.ArticleFilter{
		Category: c.QueryParam("category"),
		Source:   c.QueryParam("source"),
		Search:   c.QueryParam("search"),
	}

	if s := c.QueryParam("sentiment"); s != "" {
		label := domain.SentimentLabel(s)
		if !label.Valid() {
			return f, errors.New("sentiment must be positive, neutral or negative")
		}
		f.Sentiment = label
	}
	if s := c.QueryParam("min_quality"); s != "" {
		q, err := strconv.ParseFloat(s, 64)
		if err != nil || q < 0 || q > 1 {
			return f, errors.New("min_quality must be a number in [0,1]")
		}
		f.MinQuality = q
	}
	if s := c.QueryParam("since"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, errors.New("since must be an RFC3339 timestamp")
		}
		f.Since = ts
	}

	limit, err := intParam(c, "limit", defaultLimit)
	if err != nil {
		return f, err
	}
	f.Limit = min(limit, maxLimit)

	f.Offset, err = intParam(c, "offset", 0)
	return f, err
}

func intParam(c echo.Context, name string, def int) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}
