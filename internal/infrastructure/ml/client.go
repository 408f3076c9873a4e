package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// Client talks to an external inference service for sentiment scoring.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.SentimentScorer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Score sends text to the /sentiment endpoint.
func (c *Client) Score(ctx context.Context, text string) (domain.SentimentScore, error) {
	if strings.TrimSpace(text) == "" {
		return domain.SentimentScore{}, nil
	}

	payload := map[string]any{"text": text}

	var resp struct {
		Polarity   *float64 `json:"polarity"`
		Confidence *float64 `json:"confidence"`
	}
	if err := c.post(ctx, "/sentiment", payload, &resp); err != nil {
		return domain.SentimentScore{}, err
	}
	if resp.Polarity == nil || resp.Confidence == nil {
		return domain.SentimentScore{}, fmt.Errorf("incomplete sentiment response")
	}
	if *resp.Polarity < -1 || *resp.Polarity > 1 || *resp.Confidence < 0 || *resp.Confidence > 1 {
		return domain.SentimentScore{}, fmt.Errorf("sentiment out of range: polarity=%v confidence=%v", *resp.Polarity, *resp.Confidence)
	}

	return domain.SentimentScore{Polarity: *resp.Polarity, Confidence: *resp.Confidence}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
