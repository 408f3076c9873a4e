package newsapi

import (
	"encoding/json"
	"io"

	"NewsIngest/internal/domain"
)

type envelope struct {
	TotalArticles json.RawMessage   `json:"totalArticles"`
	Articles      []json.RawMessage `json:"articles"`
}

// decode reads the response leniently: entries that are not objects are
// skipped and mistyped fields come back as nil.
func decode(r io.Reader) ([]domain.RawRecord, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, len(env.Articles))
	for _, raw := range env.Articles {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			continue
		}

		rec := domain.RawRecord{
			Title:       optString(fields["title"]),
			Description: optString(fields["description"]),
			URL:         optString(fields["url"]),
			ImageURL:    optString(fields["image"]),
			PublishedAt: optString(fields["publishedAt"]),
		}

		var source map[string]json.RawMessage
		if err := json.Unmarshal(fields["source"], &source); err == nil {
			rec.SourceName = optString(source["name"])
			rec.SourceURL = optString(source["url"])
		}

		records = append(records, rec)
	}
	return records, nil
}

func optString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}
