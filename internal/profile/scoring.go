package profile

import (
	"math"
	"strings"
	"unicode"

	"jobbot/internal/model"
)

// HardRejectScore is the sentinel returned when a job matches a negative
// keyword whose weight sits below the hard-reject threshold.
const HardRejectScore = -1000.0

const (
	positiveCap         = 5.0
	negativeOnlyPenalty = 5.0
	titleBonus          = 0.5
	skillBonus          = 0.8
	categoryBonus       = 0.6
)

// Tokenize splits text into lowercase alphanumeric tokens longer than
// two characters.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	var tokens []string
	for _, t := range strings.Fields(cleaned) {
		if len(t) > 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Score evaluates one job against a keyword set. The first negative
// keyword below hardRejectAt that matches short-circuits to
// HardRejectScore with only that keyword in the match list. The result
// is not floored at zero.
func Score(job model.JobPosting, keywords []model.Keyword, hardRejectAt float64) (float64, []string) {
	counts := make(map[string]int)
	for _, t := range Tokenize(job.Title) {
		counts[t]++
	}
	for _, t := range Tokenize(job.Description) {
		counts[t]++
	}
	for _, t := range Tokenize(job.Company) {
		counts[t]++
	}

	blobParts := []string{job.Title, job.Description, job.Company}
	blobParts = append(blobParts, job.Skills...)
	blobParts = append(blobParts, job.Categories...)
	blobParts = append(blobParts, job.MRTStations...)
	blob := strings.ToLower(strings.Join(blobParts, " "))

	var (
		score        float64
		matched      []string
		softNegative bool
		positives    []string
		seenPositive = make(map[string]bool)
	)

	for _, kw := range keywords {
		text := strings.ToLower(kw.Text)
		if !matchesContent(text, counts, blob) {
			continue
		}

		if kw.IsNegative && kw.Weight < hardRejectAt {
			return HardRejectScore, []string{text}
		}

		matched = append(matched, text)
		if kw.IsNegative {
			score -= math.Abs(kw.Weight)
			softNegative = true
		} else {
			score += math.Min(kw.Weight, positiveCap)
			if !seenPositive[text] {
				seenPositive[text] = true
				positives = append(positives, text)
			}
		}
	}

	if softNegative && score <= 0 {
		score -= negativeOnlyPenalty
	}

	titleTokens := make(map[string]int)
	for _, t := range Tokenize(job.Title) {
		titleTokens[t]++
	}
	titleBlob := strings.ToLower(job.Title)
	for _, text := range positives {
		if matchesContent(text, titleTokens, titleBlob) {
			score += titleBonus
		}
	}

	counted := make(map[string]bool)
	for _, text := range positives {
		if containsVerbatim(job.Skills, text) && !counted[text] {
			score += skillBonus
			counted[text] = true
		}
	}
	for _, text := range positives {
		if containsVerbatim(job.Categories, text) && !counted[text] {
			score += categoryBonus
			counted[text] = true
		}
	}

	return score, matched
}

// matchesContent reports whether a keyword appears in the job content:
// single words against the token multiset, phrases as whole-word
// substrings of the text blob.
func matchesContent(keyword string, tokens map[string]int, blob string) bool {
	if strings.Contains(keyword, " ") {
		return containsWholeWord(blob, keyword)
	}
	return tokens[keyword] > 0
}

// containsWholeWord reports whether sub occurs in s bounded by
// non-alphanumeric runes on both sides.
func containsWholeWord(s, sub string) bool {
	if sub == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(s[start:], sub)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(sub)
		if boundaryBefore(s, i) && boundaryAfter(s, end) {
			return true
		}
		start = i + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func containsVerbatim(entries []string, keyword string) bool {
	for _, e := range entries {
		if strings.EqualFold(strings.TrimSpace(e), keyword) {
			return true
		}
	}
	return false
}
