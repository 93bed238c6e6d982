package pagination

import (
	"math"
	"strconv"
	"strings"
)

// Ellipsis marks a gap in the list returned by PageNumbers.
const Ellipsis = 0

// maxPageLinks is the most page numbers shown without gaps.
const maxPageLinks = 7

// Links are the navigation URLs for a page.
type Links struct {
	Canonical string `json:"canonical"`
	Next      string `json:"next,omitempty"`
	Prev      string `json:"prev,omitempty"`
}

// PageURL returns the URL of page n under baseURL. Page 1 is baseURL itself
// (or "/" for the site root); later pages live at baseURL/page/n.
func PageURL(baseURL string, n int) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if n <= 1 {
		if baseURL == "" {
			return "/"
		}
		return baseURL
	}
	return baseURL + "/page/" + strconv.Itoa(n)
}

// Links builds the canonical, next and prev URLs for the page described by i.
func (i Info) Links(baseURL string) Links {
	links := Links{Canonical: PageURL(baseURL, i.CurrentPage)}
	if i.HasNext {
		links.Next = PageURL(baseURL, i.CurrentPage+1)
	}
	if i.HasPrev {
		links.Prev = PageURL(baseURL, i.CurrentPage-1)
	}
	return links
}

// PageNumbers returns the page numbers to show in a pager. Up to seven pages
// are listed in full; beyond that the first and last page are always shown
// and Ellipsis marks skipped ranges.
func PageNumbers(current, total int) []int {
	if total <= maxPageLinks {
		pages := make([]int, 0, total)
		for n := 1; n <= total; n++ {
			pages = append(pages, n)
		}
		return pages
	}

	switch {
	case current <= 4:
		return []int{1, 2, 3, 4, 5, Ellipsis, total}
	case current >= total-3:
		return []int{1, Ellipsis, total - 4, total - 3, total - 2, total - 1, total}
	default:
		return []int{1, Ellipsis, current - 1, current, current + 1, Ellipsis, total}
	}
}

// PageURLs returns the URL of every page of a listing.
func PageURLs(baseURL string, totalPages int) []string {
	urls := make([]string, 0, totalPages)
	for n := 1; n <= totalPages; n++ {
		urls = append(urls, PageURL(baseURL, n))
	}
	return urls
}

// SitemapEntry is a sitemap URL for one page of a listing.
type SitemapEntry struct {
	URL        string
	Priority   float64
	ChangeFreq string
}

// SitemapEntries returns one entry per page. Priority drops by 0.1 for each
// page after the first, to a floor of 0.3.
func SitemapEntries(baseURL string, totalPages int, priority float64, changeFreq string) []SitemapEntry {
	entries := make([]SitemapEntry, 0, totalPages)
	for n := 1; n <= totalPages; n++ {
		p := priority
		if n > 1 {
			p = math.Max(0.3, priority-float64(n-1)*0.1)
		}
		entries = append(entries, SitemapEntry{
			URL:        PageURL(baseURL, n),
			Priority:   math.Round(p*10) / 10,
			ChangeFreq: changeFreq,
		})
	}
	return entries
}
