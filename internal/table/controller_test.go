package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string
	Name string
}

func items(n int) []item {
	out := make([]item, n)
	for i := range out {
		out[i] = item{ID: fmt.Sprintf("id-%02d", i), Name: fmt.Sprintf("row %d", i)}
	}
	return out
}

type recorder struct {
	pages []int
	next  int
	prev  int
}

func (r *recorder) config() Config[item] {
	return Config[item]{
		RowID:          func(it item) string { return it.ID },
		OnPageChange:   func(page int) { r.pages = append(r.pages, page) },
		OnNextPage:     func() { r.next++ },
		OnPreviousPage: func() { r.prev++ },
	}
}

func TestServerModeTranslatesPageIndex(t *testing.T) {
	rec := &recorder{}
	c := New(rec.config())
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 3, PageSize: 10, Total: 50, TotalPages: 5}})

	require.Equal(t, ModeServer, c.Mode())
	assert.Equal(t, 2, c.PageIndex())
	assert.Equal(t, 3, c.Page())

	c.SetPage(3)
	assert.Equal(t, []int{4}, rec.pages)
	assert.Equal(t, 3, c.PageIndex())
}

func TestServerModeCanGoNextRequiresRows(t *testing.T) {
	c := New(Config[item]{})
	c.Update(Props[item]{Rows: nil, Server: &ServerPagination{Page: 5, PageSize: 10, Total: 40, TotalPages: 5}})

	assert.False(t, c.CanGoNext())
	assert.True(t, c.CanGoPrevious())

	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 2, PageSize: 10, Total: 40, TotalPages: 5}})
	assert.True(t, c.CanGoNext())

	c.Update(Props[item]{Rows: items(3), Server: &ServerPagination{Page: 2, PageSize: 10, Total: 40, TotalPages: 0}})
	assert.False(t, c.CanGoNext())
}

func TestPreviousPageStopsAtFirstPage(t *testing.T) {
	rec := &recorder{}
	c := New(rec.config())
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 1, PageSize: 10, Total: 30, TotalPages: 3}})

	c.PreviousPage()
	assert.Equal(t, 0, c.PageIndex())
	assert.Zero(t, rec.prev)

	c.SetPage(-4)
	assert.Equal(t, 0, c.PageIndex())
	assert.Equal(t, []int{1}, rec.pages)
}

func TestNextAndPreviousInvokeCallbacksInServerMode(t *testing.T) {
	rec := &recorder{}
	c := New(rec.config())
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 1, PageSize: 10, Total: 30, TotalPages: 3}})

	c.NextPage()
	assert.Equal(t, 1, c.PageIndex())
	assert.Equal(t, 1, rec.next)

	c.PreviousPage()
	assert.Equal(t, 0, c.PageIndex())
	assert.Equal(t, 1, rec.prev)
}

func TestPendingClickSurvivesUnchangedServerPage(t *testing.T) {
	c := New(Config[item]{})
	server := &ServerPagination{Page: 1, PageSize: 10, Total: 30, TotalPages: 3}
	c.Update(Props[item]{Rows: items(10), Server: server})

	c.NextPage()
	// Response for the old page arrives again while the next fetch is in flight.
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 1, PageSize: 10, Total: 30, TotalPages: 3}, Loading: true})
	assert.Equal(t, 1, c.PageIndex())

	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 2, PageSize: 10, Total: 30, TotalPages: 3}})
	assert.Equal(t, 1, c.PageIndex())

	// The server moved the page on its own.
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 3, PageSize: 10, Total: 30, TotalPages: 3}})
	assert.Equal(t, 2, c.PageIndex())
}

func TestLocalModeNeverInvokesCallbacks(t *testing.T) {
	rec := &recorder{}
	c := New(rec.config())
	c.Update(Props[item]{Rows: items(25)})

	require.Equal(t, ModeLocal, c.Mode())
	assert.Equal(t, 3, c.PageCount())

	c.NextPage()
	c.NextPage()
	c.PreviousPage()
	c.SetPage(2)

	assert.Empty(t, rec.pages)
	assert.Zero(t, rec.next)
	assert.Zero(t, rec.prev)
	assert.Equal(t, 2, c.PageIndex())
	assert.Len(t, c.VisibleRows(), 5)
	assert.False(t, c.CanGoNext())
}

func TestLocalModeClampsWhenRowsShrink(t *testing.T) {
	c := New(Config[item]{PageSize: 5})
	c.Update(Props[item]{Rows: items(20)})
	c.SetPage(3)
	require.Equal(t, 3, c.PageIndex())

	c.Update(Props[item]{Rows: items(7)})
	assert.Equal(t, 1, c.PageIndex())
	assert.Equal(t, []item{items(7)[5], items(7)[6]}, c.VisibleRows())

	c.Update(Props[item]{Rows: nil})
	assert.Equal(t, 0, c.PageIndex())
	assert.Empty(t, c.VisibleRows())
}

func TestModeSwitchResetsPointer(t *testing.T) {
	c := New(Config[item]{})
	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 4, PageSize: 10, Total: 50, TotalPages: 5}})
	require.Equal(t, 3, c.PageIndex())

	c.Update(Props[item]{Rows: items(30)})
	assert.Equal(t, ModeLocal, c.Mode())
	assert.Equal(t, 0, c.PageIndex())
	c.NextPage()

	c.Update(Props[item]{Rows: items(10), Server: &ServerPagination{Page: 4, PageSize: 10, Total: 50, TotalPages: 5}})
	assert.Equal(t, ModeServer, c.Mode())
	assert.Equal(t, 3, c.PageIndex())
}

func TestMalformedServerPaginationFallsBackToLocal(t *testing.T) {
	c := New(Config[item]{})
	c.Update(Props[item]{Rows: items(12), Server: &ServerPagination{Page: -1, TotalPages: -1}})

	assert.Equal(t, ModeLocal, c.Mode())
	assert.Equal(t, 2, c.PageCount())
}

func TestServerPageSizeFallsBackToConfig(t *testing.T) {
	c := New(Config[item]{PageSize: 25})
	c.Update(Props[item]{Rows: items(3), Server: &ServerPagination{Page: 1, Total: 3, TotalPages: 1}})
	assert.Equal(t, 25, c.PageSize())

	c = New(Config[item]{})
	c.Update(Props[item]{Rows: items(3), Server: &ServerPagination{Page: 1, Total: 3, TotalPages: 1}})
	assert.Equal(t, DefaultPageSize, c.PageSize())
}

func TestRowKeyFallsBackToIndex(t *testing.T) {
	c := New(Config[item]{})
	assert.Equal(t, "4", c.RowKey(4, item{ID: "ignored"}))
}
