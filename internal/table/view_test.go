package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columns() []Column[item] {
	return []Column[item]{
		{Header: "ID", Cell: func(it item) any { return it.ID }},
		{Header: "Name", Cell: func(it item) any { return it.Name }},
	}
}

func TestViewLoadingRendersSkeletonOnly(t *testing.T) {
	c := New(Config[item]{PageSize: 4})
	c.Update(Props[item]{Rows: items(4), Loading: true})

	v := c.View(columns(), nil)
	assert.True(t, v.Loading)
	assert.Len(t, v.Skeleton, 4)
	assert.Len(t, v.SkeletonCells, 2)
	assert.Empty(t, v.Rows)
	assert.False(t, v.Empty)
}

func TestViewEmptyRowSpansAllColumns(t *testing.T) {
	c := New(Config[item]{})
	c.Update(Props[item]{})

	v := c.View(columns(), nil)
	assert.True(t, v.Empty)
	assert.Equal(t, 2, v.ColSpan)
	assert.False(t, v.Pager.Show)

	v = c.View(nil, nil)
	assert.Equal(t, 1, v.ColSpan)
}

func TestViewPagerOptions(t *testing.T) {
	c := New(Config[item]{RowID: func(it item) string { return it.ID }})
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 2, PageSize: 10, Total: 30, TotalPages: 3}})

	q := DefaultListQuery().WithFilter("status", "active")
	v := c.View(columns(), q.Link("/users"))

	require.True(t, v.Pager.Show)
	require.Len(t, v.Pager.Options, 3)
	assert.Equal(t, "1 / 3", v.Pager.Options[0].Label)
	assert.True(t, v.Pager.Options[1].Current)
	assert.True(t, v.Pager.CanPrevious)
	assert.True(t, v.Pager.CanNext)
	assert.Equal(t, "/users?page=3&pageSize=10&sortBy=id&sortOrder=desc&status=active", v.Pager.NextURL())
	assert.Equal(t, "/users?page=1&pageSize=10&sortBy=id&sortOrder=desc&status=active", v.Pager.PreviousURL())

	require.Len(t, v.Rows, 10)
	assert.Equal(t, "id-00", v.Rows[0].Key)
	assert.Equal(t, []any{"id-00", "row 0"}, v.Rows[0].Cells)
}

func TestViewPagerOptionsAreWindowed(t *testing.T) {
	c := New(Config[item]{})
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 500000, PageSize: 10, Total: 10000000, TotalPages: 1000000}})

	v := c.View(columns(), nil)
	opts := v.Pager.Options
	require.Len(t, opts, MaxPageOptions+2)
	assert.Equal(t, 1, opts[0].Page)
	assert.Equal(t, 1000000, opts[len(opts)-1].Page)
	assert.Equal(t, "1000000 / 1000000", opts[len(opts)-1].Label)
	assert.Equal(t, 500000, opts[1+MaxPageOptions/2].Page)
	assert.True(t, opts[1+MaxPageOptions/2].Current)

	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 1, PageSize: 10, Total: 10000000, TotalPages: 1000000}})
	opts = c.View(columns(), nil).Pager.Options
	require.Len(t, opts, MaxPageOptions+1)
	assert.True(t, opts[0].Current)
	assert.Equal(t, MaxPageOptions, opts[MaxPageOptions-1].Page)
	assert.Equal(t, 1000000, opts[MaxPageOptions].Page)
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		current, count, limit int
		start, end            int
	}{
		{current: 0, count: 3, limit: 5, start: 0, end: 3},
		{current: 0, count: 10, limit: 4, start: 0, end: 4},
		{current: 5, count: 10, limit: 4, start: 3, end: 7},
		{current: 9, count: 10, limit: 4, start: 6, end: 10},
	}
	for _, tc := range cases {
		start, end := pageWindow(tc.current, tc.count, tc.limit)
		assert.Equal(t, tc.start, start, "%+v", tc)
		assert.Equal(t, tc.end, end, "%+v", tc)
	}
}

func TestViewMarksControlledSelection(t *testing.T) {
	state := SelectionState{"id-01": true}
	c := New(Config[item]{
		RowID:     func(it item) string { return it.ID },
		Selection: Controlled(func() SelectionState { return state }, func(next SelectionState) { state = next }),
	})
	c.Update(Props[item]{Rows: items(3)})

	v := c.View(columns(), nil)
	require.True(t, v.Selectable)
	assert.Equal(t, 3, v.ColSpan)
	assert.False(t, v.Rows[0].Selected)
	assert.True(t, v.Rows[1].Selected)
}

func TestViewLocalKeysUseAbsoluteIndex(t *testing.T) {
	c := New(Config[item]{PageSize: 5})
	c.Update(Props[item]{Rows: items(8)})
	c.NextPage()

	v := c.View(columns(), nil)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, "5", v.Rows[0].Key)
	assert.Equal(t, "?page=1", v.Pager.PreviousURL())
}
