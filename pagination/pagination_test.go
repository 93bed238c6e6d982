package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i + 1
	}
	return items
}

// TestPaginate_TwentyFivePosts verifies the first, middle and last page of a
// 25 item listing
func TestPaginate_TwentyFivePosts(t *testing.T) {
	items := numbered(25)

	page1, err := Paginate(items, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, numbered(12), page1.Items)
	assert.Equal(t, Info{
		CurrentPage: 1, TotalPages: 3, TotalItems: 25, PageSize: 12,
		HasNext: true, HasPrev: false,
	}, page1.Info)

	page2, err := Paginate(items, 2, 12)
	require.NoError(t, err)
	assert.Equal(t, 13, page2.Items[0])
	assert.Len(t, page2.Items, 12)
	assert.True(t, page2.Info.HasNext)
	assert.True(t, page2.Info.HasPrev)

	page3, err := Paginate(items, 3, 12)
	require.NoError(t, err)
	assert.Equal(t, []int{25}, page3.Items)
	assert.False(t, page3.Info.HasNext)
	assert.True(t, page3.Info.HasPrev)
	assert.True(t, page3.Info.InRange())
}

// TestPaginate_Empty verifies an empty listing still has one page
func TestPaginate_Empty(t *testing.T) {
	result, err := Paginate([]string{}, 1, 12)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
	assert.Equal(t, 1, result.Info.TotalPages)
	assert.Equal(t, 0, result.Info.TotalItems)
	assert.True(t, result.Info.InRange())
	assert.False(t, result.Info.HasNext)
	assert.False(t, result.Info.HasPrev)

	nilResult, err := Paginate[string](nil, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, nilResult.Info.TotalPages)
}

// TestPaginate_OutOfRange verifies pages outside the listing are flagged
func TestPaginate_OutOfRange(t *testing.T) {
	items := numbered(25)

	tests := []struct {
		name string
		page int
	}{
		{"past the end", 4},
		{"far past the end", 100},
		{"zero", 0},
		{"negative", -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Paginate(items, tt.page, 12)
			require.NoError(t, err)
			assert.False(t, result.Info.InRange())
			assert.Empty(t, result.Items)
			assert.Equal(t, tt.page, result.Info.CurrentPage, "page is not clamped")
			assert.False(t, result.Info.HasNext)
			assert.False(t, result.Info.HasPrev)
		})
	}
}

// TestPaginate_InvalidPageSize verifies non-positive sizes fail fast
func TestPaginate_InvalidPageSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Paginate(numbered(5), 1, size)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPageSize)
	}
}

// TestPaginate_CopiesItems verifies the page does not alias the input
func TestPaginate_CopiesItems(t *testing.T) {
	items := numbered(5)
	result, err := Paginate(items, 1, 2)
	require.NoError(t, err)
	result.Items[0] = 99
	assert.Equal(t, 1, items[0])
}

// TestTotalPages verifies the ceiling with a floor of one
func TestTotalPages(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{0, 12, 1},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{24, 12, 2},
		{25, 12, 3},
		{7, 1, 7},
		{5, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.n, tt.size), "n=%d size=%d", tt.n, tt.size)
	}
}

// TestParsePage verifies lenient page parameter parsing
func TestParsePage(t *testing.T) {
	tests := map[string]int{
		"":    1,
		"1":   1,
		"3":   3,
		" 4 ": 4,
		"0":   1,
		"-2":  1,
		"abc": 1,
		"2.5": 1,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePage(in), "input %q", in)
	}
}

// TestLinks verifies canonical, next and prev URLs
func TestLinks(t *testing.T) {
	info := Info{CurrentPage: 2, TotalPages: 3, HasNext: true, HasPrev: true}
	assert.Equal(t, Links{
		Canonical: "/technology/page/2",
		Next:      "/technology/page/3",
		Prev:      "/technology",
	}, info.Links("/technology"))

	first := Info{CurrentPage: 1, TotalPages: 3, HasNext: true}
	assert.Equal(t, Links{Canonical: "/", Next: "/page/2"}, first.Links(""))

	last := Info{CurrentPage: 3, TotalPages: 3, HasPrev: true}
	assert.Equal(t, Links{Canonical: "/tag/ai/page/3", Prev: "/tag/ai/page/2"}, last.Links("/tag/ai/"))
}

// TestPageNumbers verifies pager layouts
func TestPageNumbers(t *testing.T) {
	tests := []struct {
		name           string
		current, total int
		want           []int
	}{
		{"single", 1, 1, []int{1}},
		{"seven", 4, 7, []int{1, 2, 3, 4, 5, 6, 7}},
		{"near start", 3, 20, []int{1, 2, 3, 4, 5, Ellipsis, 20}},
		{"boundary start", 4, 20, []int{1, 2, 3, 4, 5, Ellipsis, 20}},
		{"middle", 10, 20, []int{1, Ellipsis, 9, 10, 11, Ellipsis, 20}},
		{"boundary end", 17, 20, []int{1, Ellipsis, 16, 17, 18, 19, 20}},
		{"end", 20, 20, []int{1, Ellipsis, 16, 17, 18, 19, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageNumbers(tt.current, tt.total))
		})
	}
}

// TestPageURLs verifies every page URL is listed
func TestPageURLs(t *testing.T) {
	assert.Equal(t, []string{"/science", "/science/page/2", "/science/page/3"}, PageURLs("/science", 3))
	assert.Equal(t, []string{"/"}, PageURLs("", 1))
}

// TestSitemapEntries verifies priority decay and floor
func TestSitemapEntries(t *testing.T) {
	entries := SitemapEntries("/technology", 6, 0.7, "daily")
	require.Len(t, entries, 6)

	priorities := make([]float64, 0, len(entries))
	for _, e := range entries {
		priorities = append(priorities, e.Priority)
		assert.Equal(t, "daily", e.ChangeFreq)
	}
	assert.Equal(t, []float64{0.7, 0.6, 0.5, 0.4, 0.3, 0.3}, priorities)
	assert.Equal(t, "/technology", entries[0].URL)
	assert.Equal(t, "/technology/page/6", entries[5].URL)
}
