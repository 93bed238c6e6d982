// Package pagination slices sorted listings into fixed-size pages and
// computes the navigation metadata pages are rendered with.
package pagination

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of posts shown on a listing page.
const DefaultPageSize = 12

// ErrInvalidPageSize is returned when a page size of zero or less is given.
var ErrInvalidPageSize = errors.New("page size must be greater than zero")

// Info describes a page's position within a listing.
type Info struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalItems  int  `json:"total_items"`
	PageSize    int  `json:"page_size"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// InRange reports whether CurrentPage exists. Callers treat an out-of-range
// page as not found.
func (i Info) InRange() bool {
	return i.CurrentPage >= 1 && i.CurrentPage <= i.TotalPages
}

// Result is one page of items plus its metadata.
type Result[T any] struct {
	Items []T  `json:"items"`
	Info  Info `json:"pagination"`
}

// TotalPages returns ceil(n/pageSize), never less than one.
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := int(math.Ceil(float64(n) / float64(pageSize)))
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns page (1-based) of items. The page number is not clamped:
// a page outside 1..TotalPages yields no items and an Info whose InRange is
// false.
func Paginate[T any](items []T, page, pageSize int) (Result[T], error) {
	if pageSize <= 0 {
		return Result[T]{}, fmt.Errorf("%w: got %d", ErrInvalidPageSize, pageSize)
	}

	total := len(items)
	info := Info{
		CurrentPage: page,
		TotalPages:  TotalPages(total, pageSize),
		TotalItems:  total,
		PageSize:    pageSize,
	}
	info.HasNext = page >= 1 && page < info.TotalPages
	info.HasPrev = page > 1 && page <= info.TotalPages

	if !info.InRange() {
		return Result[T]{Items: []T{}, Info: info}, nil
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	out := make([]T, end-start)
	copy(out, items[start:end])

	return Result[T]{Items: out, Info: info}, nil
}

// ParsePage reads a page number from a URL parameter. Empty, malformed and
// non-positive values mean page 1.
func ParsePage(param string) int {
	param = strings.TrimSpace(param)
	if param == "" {
		return 1
	}
	page, err := strconv.Atoi(param)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
