package content

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackCategory is used for posts that name no category.
const FallbackCategory = "technology"

// Categories lists the site's navigable sections in display order.
var Categories = []string{
	"science",
	"culture",
	"psychology",
	"technology",
	"health",
	"space",
	"lifestyle",
}

var categoryAliases = map[string]string{
	"mystery": "space",
}

var categoryDescriptions = map[string]string{
	"science":    "Breakthrough discoveries, research, and the science shaping tomorrow.",
	"culture":    "Dive into cultural phenomena, social trends, arts, and modern society.",
	"psychology": "Human behavior, cognition, and the surprising science of the mind.",
	"technology": "Gadgets, AI, and innovations changing how we live and work.",
	"health":     "Wellness, medicine, and evidence-based advice for better living.",
	"space":      "Astronomy, exploration, and the science of our universe.",
	"lifestyle":  "Ideas, habits, and trends for living smarter every day.",
}

// NormalizeCategory lower-cases a free-text category label and resolves
// aliases. Unknown labels are kept so they can still be filtered on; an empty
// label becomes FallbackCategory.
func NormalizeCategory(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return FallbackCategory
	}
	if alias, ok := categoryAliases[key]; ok {
		return alias
	}
	return key
}

// CategoryKey maps label onto one of Categories, falling back to
// FallbackCategory for anything unrecognised.
func CategoryKey(label string) string {
	key := NormalizeCategory(label)
	if _, ok := categoryDescriptions[key]; ok {
		return key
	}
	return FallbackCategory
}

// IsCategory reports whether label names one of Categories (aliases count).
func IsCategory(label string) bool {
	_, ok := categoryDescriptions[NormalizeCategory(label)]
	return ok
}

// CategoryDescription returns the blurb shown on a category's landing page.
func CategoryDescription(label string) string {
	return categoryDescriptions[CategoryKey(label)]
}

// CategoryTitle returns the display name of a category, e.g. "Technology".
func CategoryTitle(label string) string {
	// Casers keep state, so one is built per call.
	return cases.Title(language.English).String(NormalizeCategory(label))
}
