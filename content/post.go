package content

import (
	"math"
	"strings"
	"time"
)

// Defaults applied when a post's metadata header omits a field.
const (
	DefaultTitle  = "Untitled"
	DefaultAuthor = "Trends Today"
	DefaultImage  = "/images/placeholder.jpg"

	// WordsPerMinute is the reading speed used to estimate ReadingTime.
	WordsPerMinute = 200
)

// Post is a single article loaded from the content directory. Posts are
// never mutated once returned by the loader.
type Post struct {
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	Subtitle         string     `json:"subtitle,omitempty"`
	Description      string     `json:"description"`
	PublishedAt      time.Time  `json:"published_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	DateMissing      bool       `json:"date_missing,omitempty"`
	Category         string     `json:"category"`
	Tags             []string   `json:"tags"`
	Author           string     `json:"author"`
	Image            string     `json:"image"`
	ImageAlt         string     `json:"image_alt,omitempty"`
	ImageAttribution string     `json:"image_attribution,omitempty"`
	ReadingTime      int        `json:"reading_time"`
	Featured         bool       `json:"featured,omitempty"`
	Content          string     `json:"-"`
	SourcePath       string     `json:"-"`
}

// HasTag reports whether the post carries tag, ignoring case.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// URL returns the site-relative path of the post.
func (p *Post) URL() string {
	return "/" + p.Category + "/" + p.Slug
}

// EstimateReadingTime returns the minutes needed to read body at
// WordsPerMinute, never less than one.
func EstimateReadingTime(body string) int {
	words := len(strings.Fields(body))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
