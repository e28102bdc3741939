package table

import (
	"fmt"
	"strconv"
)

// Column describes one table column. Cell may return template.HTML for
// markup such as action buttons.
type Column[T any] struct {
	Header string
	Cell   func(T) any
}

// Row is a rendered body row.
type Row struct {
	Key      string
	Selected bool
	Cells    []any
}

// MaxPageOptions bounds the page picker. Pages outside the window around the
// current one are reached through the first and last entries.
const MaxPageOptions = 50

// PageOption is one entry of the page picker.
type PageOption struct {
	Page    int
	Label   string
	Current bool
}

// Pager is the render model of the pagination controls.
type Pager struct {
	Show        bool
	Page        int
	PageCount   int
	Total       int
	CanPrevious bool
	CanNext     bool
	Options     []PageOption

	link func(page int) string
}

// URL returns the link for a 1-indexed page.
func (p Pager) URL(page int) string {
	if p.link == nil {
		return "?page=" + strconv.Itoa(page)
	}
	return p.link(page)
}

// PreviousURL links to the page before the current one.
func (p Pager) PreviousURL() string {
	return p.URL(max(p.Page-1, 1))
}

// NextURL links to the page after the current one.
func (p Pager) NextURL() string {
	return p.URL(p.Page + 1)
}

// View is the render model consumed by the table partial.
type View struct {
	Headers    []string
	Rows       []Row
	Selectable bool
	Loading    bool
	// Skeleton and SkeletonCells are sized so templates can range over them.
	Skeleton      []int
	SkeletonCells []int
	Empty         bool
	ColSpan       int
	Pager         Pager
}

// View renders the current state. While loading, placeholder rows replace the
// real rows. link builds pager URLs and may be nil.
func (c *Controller[T]) View(columns []Column[T], link func(page int) string) View {
	v := View{
		Headers:    make([]string, 0, len(columns)),
		Selectable: c.cfg.Selection.Mode() == SelectionControlled,
		Loading:    c.props.Loading,
		ColSpan:    max(len(columns), 1),
	}
	for _, col := range columns {
		v.Headers = append(v.Headers, col.Header)
	}
	if v.Selectable {
		v.ColSpan++
	}

	switch {
	case c.props.Loading:
		v.Skeleton = make([]int, c.PageSize())
		v.SkeletonCells = make([]int, v.ColSpan)
	default:
		visible := c.VisibleRows()
		offset := 0
		if c.mode == ModeLocal {
			offset = c.pageIndex * c.PageSize()
		}
		for i, item := range visible {
			key := c.RowKey(offset+i, item)
			row := Row{Key: key, Selected: c.cfg.Selection.IsSelected(key)}
			for _, col := range columns {
				var cell any
				if col.Cell != nil {
					cell = col.Cell(item)
				}
				row.Cells = append(row.Cells, cell)
			}
			v.Rows = append(v.Rows, row)
		}
		v.Empty = len(v.Rows) == 0
	}

	count := c.PageCount()
	v.Pager = Pager{
		Show:        count > 1,
		Page:        c.Page(),
		PageCount:   count,
		Total:       c.Total(),
		CanPrevious: c.CanGoPrevious(),
		CanNext:     c.CanGoNext(),
		link:        link,
	}
	start, end := pageWindow(c.pageIndex, count, MaxPageOptions)
	if start > 0 {
		v.Pager.Options = append(v.Pager.Options, c.pageOption(0, count))
	}
	for i := start; i < end; i++ {
		v.Pager.Options = append(v.Pager.Options, c.pageOption(i, count))
	}
	if end < count {
		v.Pager.Options = append(v.Pager.Options, c.pageOption(count-1, count))
	}
	return v
}

func (c *Controller[T]) pageOption(index, count int) PageOption {
	return PageOption{
		Page:    index + 1,
		Label:   fmt.Sprintf("%d / %d", index+1, count),
		Current: index == c.pageIndex,
	}
}

// pageWindow returns the half-open range of at most limit page indexes
// centred on current and clamped to [0, count).
func pageWindow(current, count, limit int) (int, int) {
	if count <= limit {
		return 0, count
	}
	start := min(max(current-limit/2, 0), count-limit)
	return start, start + limit
}
