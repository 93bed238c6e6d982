package scanner

import (
	"regexp"
	"strings"
)

// Terms that mark a story as worth covering.
var highValueTerms = []string{
	"announce", "launch", "release", "unveil", "reveal",
	"new", "latest", "upcoming", "first", "breakthrough",
	"iphone", "samsung", "google", "apple", "microsoft",
	"ai", "chatgpt", "artificial intelligence", "machine learning",
	"leak", "rumor", "exclusive", "confirmed", "official",
	"price drop", "deal", "sale", "discount", "cheaper",
	"review", "hands-on", "tested", "comparison",
}

// Terms that rule a story out regardless of value terms.
var excludeTerms = []string{
	"sponsored", "advertisement", "crypto", "nft",
	"lawsuit", "court", "legal", "stock", "earnings",
}

var majorBrands = []string{"apple", "samsung", "google", "microsoft", "nvidia"}

// Base and ceiling of the potential score.
const (
	BaseScore = 5
	MaxScore  = 10
)

// IsHighPotential reports whether a story mentions a high-value term and no
// excluded one. Matching is substring based and case-insensitive.
func IsHighPotential(title, description string) bool {
	text := strings.ToLower(title + " " + description)
	return containsAny(text, highValueTerms) && !containsAny(text, excludeTerms)
}

// Potential scores a headline from BaseScore up to MaxScore.
func Potential(title string) int {
	t := strings.ToLower(title)
	score := BaseScore

	if containsAny(t, []string{"breaking", "just announced"}) {
		score += 3
	}
	if containsAny(t, []string{"exclusive", "first"}) {
		score += 2
	}
	if containsAny(t, []string{"leak", "rumor"}) {
		score += 2
	}
	if containsAny(t, majorBrands) {
		score += 2
	}
	if containsAny(t, []string{"ai", "chatgpt"}) {
		score += 2
	}
	if containsAny(t, []string{"iphone", "android"}) {
		score += 1
	}

	return min(score, MaxScore)
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	entityPattern = regexp.MustCompile(`&[^;\s]+;`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// CleanText strips markup and entities from feed text and collapses
// whitespace.
func CleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entityPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
