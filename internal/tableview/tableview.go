// Package tableview holds the sorting and paging state shared by the
// console's tables.
package tableview

import (
	"slices"
)

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// SortConfig is the active sort of a table. An empty Key means the rows
// keep their base order.
type SortConfig struct {
	Key       string
	Direction Direction
}

// Toggle returns the config after the user picks key. Picking the active
// key flips the direction; a new key starts at defaultDir.
func (c SortConfig) Toggle(key string, defaultDir Direction) SortConfig {
	if c.Key == key {
		return SortConfig{Key: key, Direction: c.Direction.Flip()}
	}
	return SortConfig{Key: key, Direction: defaultDir}
}

// Column describes one sortable column of rows of type T.
type Column[T any] struct {
	Key              string
	Title            string
	Compare          func(a, b T) int
	DefaultDirection Direction
}

// Table pairs columns with the active sort.
type Table[T any] struct {
	columns []Column[T]
	sort    SortConfig
}

// NewTable builds a Table over columns with no active sort.
func NewTable[T any](columns ...Column[T]) *Table[T] {
	return &Table[T]{columns: columns}
}

// Columns returns the configured columns.
func (t *Table[T]) Columns() []Column[T] {
	return t.columns
}

// Config returns the active sort.
func (t *Table[T]) Config() SortConfig {
	return t.sort
}

// Column looks up a column by key.
func (t *Table[T]) Column(key string) (Column[T], bool) {
	for _, col := range t.columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column[T]{}, false
}

// Toggle applies a header click on key. Unknown keys are ignored.
func (t *Table[T]) Toggle(key string) bool {
	col, ok := t.Column(key)
	if !ok {
		return false
	}
	t.sort = t.sort.Toggle(key, col.DefaultDirection)
	return true
}

// Apply returns rows ordered by the active sort. rows is not modified.
func (t *Table[T]) Apply(rows []T) []T {
	col, ok := t.Column(t.sort.Key)
	if !ok {
		return slices.Clone(rows)
	}
	return Sorted(rows, col.Compare, t.sort.Direction)
}

// Sorted returns a stably sorted copy of rows. Descending output is the
// exact reverse of the ascending output, ties included.
func Sorted[T any](rows []T, compare func(a, b T) int, dir Direction) []T {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, compare)
	if dir == Descending {
		slices.Reverse(out)
	}
	return out
}

// DefaultPageSizes are the page sizes offered to the user.
var DefaultPageSizes = []int{10, 25, 50, 100}

// Paginator tracks a 1-based page over a list of known length.
type Paginator struct {
	size int
	page int
}

// NewPaginator returns a Paginator on page 1. Sizes below 1 become 10.
func NewPaginator(size int) Paginator {
	if size < 1 {
		size = DefaultPageSizes[0]
	}
	return Paginator{size: size, page: 1}
}

// PageSize returns the rows per page.
func (p Paginator) PageSize() int {
	return p.size
}

// Page returns the current 1-based page index.
func (p Paginator) Page() int {
	return p.page
}

// Pages returns ceil(n/size), at least 1.
func (p Paginator) Pages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + p.size - 1) / p.size
}

// SetPage moves to page clamped into [1, Pages(n)].
func (p *Paginator) SetPage(page, n int) {
	p.page = max(1, min(page, p.Pages(n)))
}

// SetPageSize changes the page size and resets to page 1.
func (p *Paginator) SetPageSize(size int) {
	if size < 1 {
		return
	}
	p.size = size
	p.page = 1
}

// Reset returns to page 1. Called whenever the underlying list changes.
func (p *Paginator) Reset() {
	p.page = 1
}

// Bounds returns the half-open index range of the current page.
func (p Paginator) Bounds(n int) (int, int) {
	page := max(1, min(p.page, p.Pages(n)))
	start := (page - 1) * p.size
	end := min(start+p.size, n)
	if start > n {
		start = n
	}
	return start, end
}

// Slice returns the rows on the current page.
func Slice[T any](rows []T, p Paginator) []T {
	start, end := p.Bounds(len(rows))
	return rows[start:end]
}
