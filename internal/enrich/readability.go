package enrich

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// Readability scores text in [0,1]; higher reads easier. Long sentences
// and words over six characters pull the score down.
func Readability(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := 0
	for _, s := range sentenceBreak.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		return 0
	}

	long := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) > 6 {
			long++
		}
	}

	avgSentence := float64(len(words)) / float64(sentences)
	longRatio := float64(long) / float64(len(words))
	score := math.Max(0, math.Min(1, 1-avgSentence/25-longRatio*0.5))
	return math.Round(score*1000) / 1000
}
