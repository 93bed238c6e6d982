//go:build property
// +build property

package content

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func postsFromOffsets(offsets []int) []Post {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]Post, len(offsets))
	for i, off := range offsets {
		posts[i] = Post{
			Slug:        fmt.Sprintf("post-%d", i),
			PublishedAt: base.Add(time.Duration(off) * time.Hour),
		}
	}
	return posts
}

// TestSortProperties tests ordering properties of SortByDateDesc
func TestSortProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: output is date descending
	properties.Property("sorted newest first", prop.ForAll(
		func(offsets []int) bool {
			posts := postsFromOffsets(offsets)
			SortByDateDesc(posts)
			for i := 1; i < len(posts); i++ {
				if posts[i].PublishedAt.After(posts[i-1].PublishedAt) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 48)),
	))

	// Property: sorting twice equals sorting once
	properties.Property("sort is idempotent", prop.ForAll(
		func(offsets []int) bool {
			posts := postsFromOffsets(offsets)
			SortByDateDesc(posts)
			once := slugsOf(posts)
			SortByDateDesc(posts)
			twice := slugsOf(posts)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10)),
	))

	// Property: filters never return posts outside the input
	properties.Property("category filter is a subset", prop.ForAll(
		func(offsets []int, category string) bool {
			posts := postsFromOffsets(offsets)
			for i := range posts {
				if i%2 == 0 {
					posts[i].Category = NormalizeCategory(category)
				}
			}
			got := FilterByCategory(posts, category)
			return len(got) == (len(posts)+1)/2
		},
		gen.SliceOf(gen.IntRange(0, 10)),
		gen.OneConstOf("science", "Science", "SPACE", "mystery", "AI"),
	))

	properties.TestingRun(t)
}
