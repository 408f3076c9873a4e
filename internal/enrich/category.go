package enrich

import (
	"math"
	"regexp"
	"strings"

	"NewsIngest/internal/domain"
)

var categoryPatterns = map[string][]*regexp.Regexp{
	"technology": compile(
		`\b(ai|artificial intelligence|machine learning|tech|technology|software|app|digital|cyber|data|cloud|blockchain|cryptocurrency|bitcoin|startup|innovation|silicon valley)\b`,
		`\b(google|apple|microsoft|amazon|facebook|meta|tesla|netflix|uber|airbnb|twitter|instagram|tiktok|zoom|slack)\b`,
		`\b(iphone|android|ios|windows|mac|linux|website|internet|online|platform|algorithm|programming|coding)\b`,
	),
	"business": compile(
		`\b(business|economy|economic|market|markets|stock|stocks|finance|financial|investment|investor|revenue|profit|earnings|sales|company|corporate|ceo|executive)\b`,
		`\b(wall street|nasdaq|dow jones|sp500|trading|merger|acquisition|ipo|bankruptcy|recession|inflation|gdp|unemployment)\b`,
		`\b(startup|entrepreneur|venture capital|private equity|funding|valuation|unicorn|acquisition|merger)\b`,
	),
	"health": compile(
		`\b(health|medical|medicine|doctor|hospital|patient|disease|virus|vaccine|treatment|drug|pharmaceutical|healthcare|wellness|fitness)\b`,
		`\b(covid|coronavirus|pandemic|epidemic|outbreak|symptoms|diagnosis|therapy|surgery|clinic|research|study)\b`,
		`\b(fda|cdc|who|pfizer|moderna|johnson|mental health|depression|anxiety|diabetes|cancer|heart)\b`,
	),
	"sports": compile(
		`\b(sports|sport|game|games|team|teams|player|players|coach|championship|tournament|league|season|match|competition)\b`,
		`\b(football|basketball|baseball|soccer|tennis|golf|hockey|olympics|nfl|nba|mlb|fifa|espn|athlete|athletic)\b`,
		`\b(super bowl|world cup|playoffs|finals|draft|trade|injury|score|win|loss|defeat|victory)\b`,
	),
	"entertainment": compile(
		`\b(entertainment|movie|movies|film|films|actor|actress|celebrity|music|album|song|concert|show|tv|television|series|streaming)\b`,
		`\b(hollywood|netflix|disney|warner|universal|paramount|oscar|emmy|grammy|box office|premiere|trailer)\b`,
		`\b(director|producer|singer|musician|band|artist|performance|review|rating|cinema|theater)\b`,
	),
	"science": compile(
		`\b(science|scientific|research|study|discovery|experiment|climate|environment|space|nasa|physics|chemistry|biology|geology)\b`,
		`\b(climate change|global warming|renewable energy|solar|wind|fossil fuel|carbon|emission|pollution|conservation)\b`,
		`\b(mars|moon|satellite|telescope|spacecraft|asteroid|planet|galaxy|universe|scientist|laboratory)\b`,
	),
	"politics": compile(
		`\b(politics|political|government|president|congress|senate|house|election|vote|voting|campaign|politician|policy|law|legislation)\b`,
		`\b(republican|democrat|conservative|liberal|white house|supreme court|justice|governor|mayor)\b`,
		`\b(immigration|healthcare|taxes|budget|deficit|foreign policy|domestic|international|diplomacy|treaty)\b`,
	),
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Categorize scores title (double weight) and description against each
// content category by matches per 100 words. Any match wins; with none the
// hint is kept if it names a feed section, otherwise the article is filed as
// general.
func Categorize(title, description, hint string) (string, float64) {
	text := strings.ToLower(title + " " + title + " " + description)
	words := len(strings.Fields(text))
	if words == 0 {
		return fallbackCategory(hint)
	}

	best, bestScore := "", 0.0
	for _, category := range domain.ContentCategories {
		matches := 0
		for _, re := range categoryPatterns[category] {
			matches += len(re.FindAllStringIndex(text, -1))
		}
		score := float64(matches) / (float64(words) / 100)
		if score > bestScore {
			best, bestScore = category, score
		}
	}

	if best == "" {
		return fallbackCategory(hint)
	}
	return best, math.Min(1, bestScore)
}

func fallbackCategory(hint string) (string, float64) {
	if hint != "" && domain.IsFeedCategory(hint) {
		return hint, 0.5
	}
	return domain.CategoryGeneral, 0.3
}
