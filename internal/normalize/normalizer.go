// Package normalize turns raw upstream records into canonical articles.
package normalize

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"NewsIngest/internal/domain"
)

// Options bounds text lengths in characters and selects the date policy.
type Options struct {
	MinTitleLength       int
	MaxTitleLength       int
	MinDescriptionLength int
	MaxDescriptionLength int
	// RejectMalformedDates rejects unparseable timestamps instead of
	// substituting the ingestion time.
	RejectMalformedDates bool
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Normalizer is stateless and safe for concurrent use.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize cleans and validates raw. On success the reason is empty; on
// failure the returned article is the zero value.
func (n *Normalizer) Normalize(raw domain.RawRecord, now time.Time) (domain.Article, domain.RejectReason) {
	title := CleanText(deref(raw.Title))
	if title == "" {
		return domain.Article{}, domain.RejectMissingTitle
	}
	if reason := n.checkLength(title, n.opts.MinTitleLength, n.opts.MaxTitleLength); reason != "" {
		return domain.Article{}, reason
	}

	description := CleanText(deref(raw.Description))
	if reason := n.checkLength(description, n.opts.MinDescriptionLength, n.opts.MaxDescriptionLength); reason != "" {
		return domain.Article{}, reason
	}

	link := strings.TrimSpace(deref(raw.URL))
	if link == "" {
		return domain.Article{}, domain.RejectMissingURL
	}
	if !validURL(link) {
		return domain.Article{}, domain.RejectMalformedURL
	}

	now = now.UTC()
	published, fallback := now, true
	if s := strings.TrimSpace(deref(raw.PublishedAt)); s != "" {
		if t, ok := parseDate(s); ok {
			published, fallback = t, false
		} else if n.opts.RejectMalformedDates {
			return domain.Article{}, domain.RejectMalformedDate
		}
	}

	return domain.Article{
		URL:               link,
		Title:             title,
		Description:       description,
		Source:            strings.TrimSpace(deref(raw.SourceName)),
		SourceURL:         strings.TrimSpace(deref(raw.SourceURL)),
		ImageURL:          strings.TrimSpace(deref(raw.ImageURL)),
		Query:             raw.Query,
		Category:          raw.CategoryHint,
		PublishedAt:       published,
		PublishedFallback: fallback,
		IngestedAt:        now,
	}, ""
}

func (n *Normalizer) checkLength(s string, lo, hi int) domain.RejectReason {
	l := utf8.RuneCountInString(s)
	if l < lo {
		return domain.RejectTooShort
	}
	if hi > 0 && l > hi {
		return domain.RejectTooLong
	}
	return ""
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
