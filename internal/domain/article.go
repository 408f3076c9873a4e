package domain

import "time"

// SentimentLabel is the discrete polarity assigned during enrichment.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Valid reports whether the label belongs to the closed set.
func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// Article is the canonical, enriched news item keyed by URL.
type Article struct {
	ID                 int64
	URL                string
	Title              string
	Description        string
	Source             string
	SourceURL          string
	ImageURL           string
	Query              string
	PublishedAt        time.Time
	PublishedFallback  bool
	SentimentScore     float64
	SentimentLabel     SentimentLabel
	Confidence         float64
	Keywords           []string
	Category           string
	CategoryConfidence float64
	QualityScore       float64
	Readability        float64
	IngestedAt         time.Time
	UpdatedAt          time.Time
	ProcessingTime     time.Duration
}

// RawRecord is one upstream item as received. Nil pointers mark absent or
// mistyped fields.
type RawRecord struct {
	Title       *string
	Description *string
	URL         *string
	ImageURL    *string
	PublishedAt *string
	SourceName  *string
	SourceURL   *string

	// Query is the search topic or category the record was fetched for.
	Query string
	// CategoryHint is set when the record came from a category headline feed.
	CategoryHint string
	FetchedAt    time.Time
}

// UpsertResult tells whether a write created or refreshed a row.
type UpsertResult int

const (
	Inserted UpsertResult = iota + 1
	Updated
)

func (r UpsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}
