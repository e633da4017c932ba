package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithFiltersResetsPageOnChange(t *testing.T) {
	c := NewCursor(Filters{"rover": "curiosity", "sol": "1000"}).Next().Next()
	assert.Equal(t, 3, c.Page)

	same := c.WithFilters(Filters{"sol": "1000", "rover": "curiosity"})
	assert.Equal(t, 3, same.Page, "unchanged filters keep the page")

	changed := c.WithFilters(Filters{"rover": "curiosity", "sol": "1001"})
	assert.Equal(t, 1, changed.Page)
	assert.Equal(t, "1001", changed.Filters["sol"])

	added := c.WithFilters(Filters{"rover": "curiosity", "sol": "1000", "camera": "FHAZ"})
	assert.Equal(t, 1, added.Page)
}

func TestNextPrevDoNotTouchFilters(t *testing.T) {
	f := Filters{"q": "galaxy"}
	c := NewCursor(f)

	c = c.Next()
	assert.Equal(t, 2, c.Page)
	assert.Equal(t, f, c.Filters)

	c = c.Prev().Prev().Prev()
	assert.Equal(t, 1, c.Page)
	assert.False(t, c.HasPrev())
	assert.Equal(t, f, c.Filters)
}

func TestCursorOwnsItsFilters(t *testing.T) {
	f := Filters{"q": "galaxy"}
	c := NewCursor(f)
	f["q"] = "nebula"
	assert.Equal(t, "galaxy", c.Filters["q"])
}

func TestHasNextHeuristic(t *testing.T) {
	c := NewCursor(nil)
	assert.True(t, c.HasNext(RoverPageSize, RoverPageSize, 0))
	assert.False(t, c.HasNext(RoverPageSize-1, RoverPageSize, 0))
	assert.False(t, c.HasNext(0, RoverPageSize, 0))
}

func TestHasNextUsesTotal(t *testing.T) {
	c := Cursor{Page: 2}
	assert.True(t, c.HasNext(ImagePageSize, ImagePageSize, 201))
	assert.False(t, c.HasNext(ImagePageSize, ImagePageSize, 200), "exactly full last page")
	assert.False(t, Cursor{Page: 3}.HasNext(1, ImagePageSize, 201))
}

func TestHasNextImageStopsAtPageLimit(t *testing.T) {
	const hits = 50000
	assert.True(t, Cursor{Page: MaxImagePages - 1}.HasNextImage(ImagePageSize, hits))
	assert.False(t, Cursor{Page: MaxImagePages}.HasNextImage(ImagePageSize, hits))
	assert.False(t, Cursor{Page: MaxImagePages}.HasNextImage(ImagePageSize, 0), "full page without a total")
	assert.False(t, Cursor{Page: 3}.HasNextImage(1, 201))
}

func TestZeroCursorBehavesAsFirstPage(t *testing.T) {
	var c Cursor
	assert.Equal(t, 2, c.Next().Page)
	assert.Equal(t, 1, c.Prev().Page)
	assert.False(t, c.HasPrev())
}
