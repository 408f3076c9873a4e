package enrich

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

var stopWords = toSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "is", "are", "was", "were", "be", "been", "have",
	"has", "had", "do", "does", "did", "will", "would", "could", "should",
	"this", "that", "these", "those", "i", "me", "my", "we", "our", "you",
	"your", "he", "him", "his", "she", "her", "it", "its", "they", "them",
	"their", "what", "which", "who", "where", "when", "why", "how", "all",
	"any", "both", "each", "more", "most", "other", "some", "such", "no",
	"not", "only", "own", "same", "so", "than", "too", "very", "said",
	"says", "get", "go", "make", "take", "come", "see", "know", "think",
	"look", "first", "last", "long", "good", "new", "old", "right", "big",
	"small", "different", "large", "great", "little", "high", "next", "early",
	"young", "important", "public", "bad", "able", "may", "might", "must",
	"can", "well", "way", "even", "back", "still", "just", "now", "also",
	"here", "there", "up", "out", "down", "over", "under", "again", "off",
	"away", "around", "between", "through", "during", "before", "after",
	"above", "below", "into", "from", "against", "about", "without", "within",
	// news boilerplate
	"news", "report", "reports", "according", "sources", "source", "today",
	"yesterday", "announced", "breaking", "update", "updates", "latest",
	"story", "article", "published", "writes", "coverage",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

type scoredWord struct {
	word  string
	score float64
}

// ExtractKeywords ranks content words by frequency, length and how early they
// first appear. Equal scores are ordered alphabetically.
func ExtractKeywords(text string, limit int) []string {
	if limit <= 0 || text == "" {
		return nil
	}

	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil
	}

	freq := map[string]int{}
	first := map[string]int{}
	for i, w := range words {
		if _, ok := first[w]; !ok {
			first[w] = i
		}
		freq[w]++
	}

	total := float64(len(words))
	scored := make([]scoredWord, 0, len(freq))
	for w, f := range freq {
		tf := float64(f) / total
		lengthBonus := math.Min(2, float64(len(w))/5)
		positionBonus := math.Max(0.5, 1-float64(first[w])/total)
		scored = append(scored, scoredWord{word: w, score: tf * lengthBonus * positionBonus})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].word < scored[j].word
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.word
	}
	return out
}
