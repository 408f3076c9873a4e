package domain

import "time"

// ArticleFilter narrows repository queries. Zero values mean "any".
type ArticleFilter struct {
	Category   string
	Sentiment  SentimentLabel
	Source     string
	Search     string
	MinQuality float64
	Since      time.Time
	Limit      int
	Offset     int
}

// QualityBucket groups quality scores for reporting.
type QualityBucket string

const (
	QualityExcellent QualityBucket = "excellent"
	QualityGood      QualityBucket = "good"
	QualityFair      QualityBucket = "fair"
	QualityPoor      QualityBucket = "poor"
)

// BucketFor maps a score to its reporting bucket.
func BucketFor(score float64) QualityBucket {
	switch {
	case score >= 0.9:
		return QualityExcellent
	case score >= 0.7:
		return QualityGood
	case score >= 0.5:
		return QualityFair
	default:
		return QualityPoor
	}
}

// SourceCount is one row of the top-sources report.
type SourceCount struct {
	Source       string  `json:"source"`
	Count        int     `json:"count"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// Stats aggregates stored articles for consumers.
type Stats struct {
	Total          int                    `json:"total"`
	BySentiment    map[SentimentLabel]int `json:"by_sentiment"`
	ByCategory     map[string]int         `json:"by_category"`
	AvgSentiment   float64                `json:"avg_sentiment"`
	AvgQuality     float64                `json:"avg_quality"`
	AvgReadability float64                `json:"avg_readability"`
	QualityBuckets map[QualityBucket]int  `json:"quality_buckets"`
	TopSources     []SourceCount          `json:"top_sources"`
}
