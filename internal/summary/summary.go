// Package summary extracts a best-effort match report from the free-form
// analysis text returned by the matching service.
//
// The extraction is a literal rule list over keywords and percentages. It has
// no notion of correctness beyond those rules and never fails: when nothing
// usable is found, fixed fallback content is substituted.
package summary

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultScore is used when the text carries no usable percentage.
	DefaultScore = 75
	// RecoveredScore is used when summarizing failed unexpectedly.
	RecoveredScore = 70

	maxEntries         = 5
	minStatementLength = 10
)

// MatchSummary is the display summary of a single analysis.
type MatchSummary struct {
	Score     int      `json:"score"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
	RawText   string   `json:"raw_text"`
}

var (
	fallbackStrengths = []string{
		"Relevant experience aligns with the role requirements",
		"Technical skills match key parts of the job description",
		"Professional background shows transferable strengths",
	}
	fallbackGaps = []string{
		"Add measurable achievements to highlight your impact",
		"Mirror the keywords used in the job description",
		"Expand on experience with the tools listed in the posting",
	}

	recoveredStrength = "Review the full analysis for your strengths"
	recoveredGap      = "Review the full analysis for improvement suggestions"
)

var (
	strengthKeywords = []string{
		"strength", "strong", "excellent", "good", "proficient",
		"experienced", "skilled", "knowledgeable", "qualifies", "matches",
	}
	strengthExclusions = []string{"missing", "improve"}
	strengthPrefixes   = []string{"strengths:"}

	gapKeywords = []string{"missing", "improve", "lack", "gap"}
	gapPrefixes = []string{"missing:", "areas for improvement:"}
)

var (
	// A percentage directly followed by a score label, e.g. "85% match".
	labeledScoreRe = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d+)%\s*(?:match|score|compatibility)`)
	// Any standalone percentage. Decimal tails such as the 5 in 12.5% are skipped.
	percentRe = regexp.MustCompile(`(?:^|[^\d.])(\d+)%`)

	statementBreakRe = regexp.MustCompile(`[.!?]+(?:\s+|$)|\r?\n`)
	bulletRe         = regexp.MustCompile(`^(?:[-*•·▪◦‣+>#]+\s*|\d+[.)]\s+)`)
)

// statements is swapped in tests.
var statements = splitStatements

// FallbackStrengths returns the generic statements used when no strength was found.
func FallbackStrengths() []string {
	return append([]string(nil), fallbackStrengths...)
}

// FallbackGaps returns the generic statements used when no gap was found.
func FallbackGaps() []string {
	return append([]string(nil), fallbackGaps...)
}

// Summarize builds a MatchSummary from analysis text. It never fails and
// never panics: every irregularity degrades to fallback content.
func Summarize(text string) (result MatchSummary) {
	defer func() {
		if r := recover(); r != nil {
			result = MatchSummary{
				Score:     RecoveredScore,
				Strengths: []string{recoveredStrength},
				Gaps:      []string{recoveredGap},
				RawText:   text,
			}
		}
	}()

	return summarize(text)
}

func summarize(text string) MatchSummary {
	clean := strings.ToValidUTF8(text, "")

	var strengths, gaps []string
	for _, statement := range statements(clean) {
		lower := strings.ToLower(strings.TrimSpace(statement))
		if lower == "" {
			continue
		}

		// The checks are independent; only the strength branch has exclusions,
		// so a statement may end up in both lists.
		if containsAny(lower, strengthKeywords) && !containsAny(lower, strengthExclusions) {
			if cleaned := cleanStatement(statement, strengthPrefixes); utf8.RuneCountInString(cleaned) > minStatementLength {
				strengths = append(strengths, cleaned)
			}
		}

		if containsAny(lower, gapKeywords) {
			if cleaned := cleanStatement(statement, gapPrefixes); utf8.RuneCountInString(cleaned) > minStatementLength {
				gaps = append(gaps, cleaned)
			}
		}
	}

	strengths = uniqueCapped(strengths, maxEntries)
	if len(strengths) == 0 {
		strengths = FallbackStrengths()
	}

	gaps = uniqueCapped(gaps, maxEntries)
	if len(gaps) == 0 {
		gaps = FallbackGaps()
	}

	return MatchSummary{
		Score:     extractScore(clean),
		Strengths: strengths,
		Gaps:      gaps,
		RawText:   text,
	}
}

func extractScore(text string) int {
	if score, ok := firstPercentage(labeledScoreRe, text); ok {
		return score
	}
	if score, ok := firstPercentage(percentRe, text); ok {
		return score
	}
	return DefaultScore
}

// firstPercentage returns the first in-range percentage captured by re,
// in order of appearance.
func firstPercentage(re *regexp.Regexp, text string) (int, bool) {
	for _, match := range re.FindAllStringSubmatch(text, -1) {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if value >= 0 && value <= 100 {
			return value, true
		}
	}
	return 0, false
}

func splitStatements(text string) []string {
	return statementBreakRe.Split(text, -1)
}

func cleanStatement(statement string, prefixes []string) string {
	s := strings.TrimSpace(statement)
	s = bulletRe.ReplaceAllString(s, "")

	for _, prefix := range prefixes {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = s[len(prefix):]
			break
		}
	}

	s = strings.TrimLeft(s, " \t*_:-")
	return capitalize(strings.TrimSpace(s))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func containsAny(s string, words []string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}

func uniqueCapped(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, limit)
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
		if len(result) == limit {
			break
		}
	}
	return result
}
