// Package paging holds filter and page state for paged listings
package paging

import "maps"

// Page sizes of the upstream listings
const (
	RoverPageSize = 25
	ImagePageSize = 100
)

// MaxImagePages is the deepest page the image search serves (10,000 hits)
const MaxImagePages = 100

// Filters are the filter values of a listing, keyed by name
type Filters map[string]string

// Cursor is the current filter set and 1-based page
type Cursor struct {
	Filters Filters `json:"filters"`
	Page    int     `json:"page"`
}

// NewCursor starts at page 1 with the given filters
func NewCursor(f Filters) Cursor {
	return Cursor{Filters: maps.Clone(f), Page: 1}
}

// WithFilters applies f and resets the page to 1 when any value changed
func (c Cursor) WithFilters(f Filters) Cursor {
	if maps.Equal(c.Filters, f) {
		return c
	}
	return Cursor{Filters: maps.Clone(f), Page: 1}
}

// Next moves one page forward
func (c Cursor) Next() Cursor {
	c.Page = c.page() + 1
	return c
}

// Prev moves one page back, never below 1
func (c Cursor) Prev() Cursor {
	c.Page = max(c.page()-1, 1)
	return c
}

// HasPrev reports whether a previous page exists
func (c Cursor) HasPrev() bool {
	return c.page() > 1
}

// HasNext reports whether another page may exist. A positive total is
// authoritative; otherwise a short last page means the end was reached.
func (c Cursor) HasNext(lastCount, pageSize, total int) bool {
	if total > 0 {
		return c.page()*pageSize < total
	}
	return lastCount >= pageSize
}

// HasNextImage is HasNext for image search, which stops at MaxImagePages
// whatever total it reports
func (c Cursor) HasNextImage(lastCount, total int) bool {
	if c.page() >= MaxImagePages {
		return false
	}
	return c.HasNext(lastCount, ImagePageSize, total)
}

func (c Cursor) page() int {
	if c.Page < 1 {
		return 1
	}
	return c.Page
}
