package domain

// CategoryGeneral is the fallback bucket for unclassified articles.
const CategoryGeneral = "general"

// ContentCategories is the closed set detected from article text.
var ContentCategories = []string{
	"technology",
	"business",
	"health",
	"sports",
	"entertainment",
	"science",
	"politics",
}

// FeedCategories are the headline sections the upstream API serves.
var FeedCategories = []string{
	"general",
	"world",
	"business",
	"technology",
	"entertainment",
	"sports",
	"science",
	"health",
	"politics",
}

// IsFeedCategory reports whether name is a known headline section.
func IsFeedCategory(name string) bool {
	for _, c := range FeedCategories {
		if c == name {
			return true
		}
	}
	return false
}
