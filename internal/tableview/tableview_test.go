package tableview

import (
	"cmp"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	id    string
	score float64
}

func byScore(a, b row) int { return cmp.Compare(a.score, b.score) }

func TestSortedDescendingIsExactReverse(t *testing.T) {
	t.Parallel()

	rows := []row{{"a", 1}, {"b", 3}, {"c", 1}, {"d", 2}, {"e", 3}, {"f", 1}}

	asc := Sorted(rows, byScore, Ascending)
	desc := Sorted(rows, byScore, Descending)

	require.Equal(t, []string{"a", "c", "f", "d", "b", "e"}, ids(asc))
	reversed := slices.Clone(asc)
	slices.Reverse(reversed)
	require.Equal(t, reversed, desc)
	require.Equal(t, "a", rows[0].id, "input must not be reordered")
}

func TestSortConfigToggle(t *testing.T) {
	t.Parallel()

	var cfg SortConfig
	cfg = cfg.Toggle("score", Ascending)
	require.Equal(t, SortConfig{Key: "score", Direction: Ascending}, cfg)
	cfg = cfg.Toggle("score", Ascending)
	require.Equal(t, Descending, cfg.Direction)
	cfg = cfg.Toggle("url", Ascending)
	require.Equal(t, SortConfig{Key: "url", Direction: Ascending}, cfg)
	cfg = cfg.Toggle("created", Descending)
	require.Equal(t, SortConfig{Key: "created", Direction: Descending}, cfg)
}

func TestTableApply(t *testing.T) {
	t.Parallel()

	table := NewTable(
		Column[row]{Key: "id", Compare: func(a, b row) int { return cmp.Compare(a.id, b.id) }},
		Column[row]{Key: "score", Compare: byScore, DefaultDirection: Descending},
	)
	rows := []row{{"b", 1}, {"a", 2}, {"c", 0}}

	require.Equal(t, []string{"b", "a", "c"}, ids(table.Apply(rows)))
	require.False(t, table.Toggle("missing"))

	require.True(t, table.Toggle("score"))
	require.Equal(t, []string{"a", "b", "c"}, ids(table.Apply(rows)))

	require.True(t, table.Toggle("score"))
	require.Equal(t, []string{"c", "b", "a"}, ids(table.Apply(rows)))

	require.True(t, table.Toggle("id"))
	require.Equal(t, SortConfig{Key: "id", Direction: Ascending}, table.Config())
	require.Equal(t, []string{"a", "b", "c"}, ids(table.Apply(rows)))
}

func TestPaginatorTwentyThreeRowsByTen(t *testing.T) {
	t.Parallel()

	rows := make([]int, 23)
	for i := range rows {
		rows[i] = i
	}
	p := NewPaginator(10)
	require.Equal(t, 3, p.Pages(len(rows)))

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, Slice(rows, p))

	p.SetPage(3, len(rows))
	require.Equal(t, []int{20, 21, 22}, Slice(rows, p))

	p.SetPage(0, len(rows))
	require.Equal(t, 1, p.Page())

	p.SetPage(99, len(rows))
	require.Equal(t, 3, p.Page())

	p.SetPageSize(25)
	require.Equal(t, 1, p.Page())
	require.Len(t, Slice(rows, p), 23)
}

func TestPaginatorEmptyList(t *testing.T) {
	t.Parallel()

	p := NewPaginator(0)
	require.Equal(t, 10, p.PageSize())
	require.Equal(t, 1, p.Pages(0))
	p.SetPage(5, 0)
	require.Equal(t, 1, p.Page())
	require.Empty(t, Slice([]int{}, p))
}

func TestPaginatorBoundsAfterListShrinks(t *testing.T) {
	t.Parallel()

	p := NewPaginator(10)
	p.SetPage(3, 23)
	start, end := p.Bounds(5)
	require.Equal(t, 0, start)
	require.Equal(t, 5, end)
}

func ids(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}
