package content

import (
	"sort"
	"strings"
	"time"
)

// SortByDateDesc orders posts newest first. The sort is stable, so posts with
// identical timestamps keep their relative order and repeated sorts are
// idempotent.
func SortByDateDesc(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt.After(posts[j].PublishedAt)
	})
}

// FilterByCategory returns the posts whose category matches, ignoring case
// and resolving aliases. Never returns nil.
func FilterByCategory(posts []Post, category string) []Post {
	want := NormalizeCategory(category)
	return filter(posts, func(p *Post) bool {
		return p.Category == want
	})
}

// FilterByTag returns the posts carrying tag, ignoring case.
func FilterByTag(posts []Post, tag string) []Post {
	tag = strings.TrimSpace(tag)
	return filter(posts, func(p *Post) bool {
		return p.HasTag(tag)
	})
}

// FilterByAuthor returns the posts written by author, ignoring case.
func FilterByAuthor(posts []Post, author string) []Post {
	author = strings.TrimSpace(author)
	return filter(posts, func(p *Post) bool {
		return strings.EqualFold(p.Author, author)
	})
}

// PublishedSince returns the posts published at or after t.
func PublishedSince(posts []Post, t time.Time) []Post {
	return filter(posts, func(p *Post) bool {
		return !p.PublishedAt.Before(t)
	})
}

func filter(posts []Post, keep func(*Post) bool) []Post {
	out := make([]Post, 0)
	for i := range posts {
		if keep(&posts[i]) {
			out = append(out, posts[i])
		}
	}
	return out
}

// MinSearchLength is the shortest query Search will run.
const MinSearchLength = 2

// SearchResult is a post matched by Search with its relevance score.
type SearchResult struct {
	Post  Post `json:"post"`
	Score int  `json:"score"`
}

// Search matches query against titles, descriptions and tags. Title matches
// score 2, other matches 1. Results keep date order within a score. A limit
// of zero or less returns every match.
func Search(posts []Post, query string, limit int) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	results := make([]SearchResult, 0)
	if len(q) < MinSearchLength {
		return results
	}

	for _, p := range posts {
		switch {
		case strings.Contains(strings.ToLower(p.Title), q):
			results = append(results, SearchResult{Post: p, Score: 2})
		case strings.Contains(strings.ToLower(p.Description), q) || tagContains(p.Tags, q):
			results = append(results, SearchResult{Post: p, Score: 1})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func tagContains(tags []string, q string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Related returns up to limit other posts in post's category, those sharing
// the most tags first.
func Related(posts []Post, post Post, limit int) []Post {
	type scored struct {
		post   Post
		shared int
	}
	var candidates []scored
	for _, p := range posts {
		if p.Slug == post.Slug || p.Category != post.Category {
			continue
		}
		shared := 0
		for _, tag := range post.Tags {
			if p.HasTag(tag) {
				shared++
			}
		}
		candidates = append(candidates, scored{post: p, shared: shared})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].shared > candidates[j].shared
	})

	if limit < 0 {
		limit = 0
	}
	out := make([]Post, 0, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, c.post)
	}
	return out
}

// Homepage groups the sorted index into the sections of the landing page.
type Homepage struct {
	Hero           *Post  `json:"hero"`
	FeaturedNews   []Post `json:"featured_news"`
	LatestReviews  []Post `json:"latest_reviews"`
	Comparisons    []Post `json:"comparisons"`
	Guides         []Post `json:"guides"`
	TrendingTopics []Post `json:"trending_topics"`
}

// BuildHomepage assembles the landing page sections from posts, which must
// already be sorted newest first.
func BuildHomepage(posts []Post) Homepage {
	home := Homepage{
		FeaturedNews:   head(FilterByCategory(posts, "technology"), 4),
		LatestReviews:  head(titleContains(posts, "review"), 3),
		Comparisons:    head(titleContains(posts, " vs"), 3),
		TrendingTopics: head(posts, 6),
	}
	if len(posts) > 0 {
		hero := posts[0]
		home.Hero = &hero
	}

	guides := filter(posts, func(p *Post) bool {
		return p.Category == "science" || p.Category == "culture" || p.Category == "psychology"
	})
	home.Guides = head(guides, 4)

	return home
}

func titleContains(posts []Post, s string) []Post {
	return filter(posts, func(p *Post) bool {
		return strings.Contains(strings.ToLower(p.Title), s)
	})
}

func head(posts []Post, n int) []Post {
	if len(posts) > n {
		return posts[:n]
	}
	return posts
}
