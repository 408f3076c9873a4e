package domain

import "fmt"

// TargetKind distinguishes headline sections from free-text searches.
type TargetKind string

const (
	TargetCategory TargetKind = "category"
	TargetTopic    TargetKind = "topic"
)

// FetchTarget is one upstream request in a run's fetch plan.
type FetchTarget struct {
	Kind  TargetKind
	Value string
	Limit int
}

func (t FetchTarget) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.Value)
}

// SentimentScore is the scorer contract: polarity in [-1,1], confidence in [0,1].
type SentimentScore struct {
	Polarity   float64
	Confidence float64
}
