// Package table bridges list pages to a row table that is paged either by the
// remote API (server mode) or in memory (local mode), and keeps row selection
// in sync with the page that owns it.
package table

import (
	"strconv"
)

// DefaultPageSize is used whenever a page size is zero or missing.
const DefaultPageSize = 10

// ServerPagination is the pagination block of a remote list response. Page is
// 1-indexed.
type ServerPagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func (p *ServerPagination) usable() bool {
	return p != nil && p.Page >= 0 && p.PageSize >= 0 && p.Total >= 0 && p.TotalPages >= 0
}

// Mode selects the source of page truth.
type Mode int

const (
	// ModeLocal pages an in-memory slice; the controller's pointer is authoritative.
	ModeLocal Mode = iota
	// ModeServer follows the page reported by the last remote response.
	ModeServer
)

func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "local"
}

// Config is fixed for the lifetime of a Controller.
type Config[T any] struct {
	PageSize int
	// RowID extracts a stable row key. When nil the row index is used, which
	// is unstable across refetches that reorder data.
	RowID     func(T) string
	Selection *Selection

	// Callbacks fire in server mode only. Pages are 1-indexed.
	OnPageChange   func(page int)
	OnNextPage     func()
	OnPreviousPage func()
}

// Props are the inputs of a single render.
type Props[T any] struct {
	Rows    []T
	Server  *ServerPagination
	Loading bool
}

// Controller holds the 0-indexed page pointer between renders.
type Controller[T any] struct {
	cfg       Config[T]
	props     Props[T]
	mode      Mode
	pageIndex int

	observed       bool
	lastServerPage int
}

// New constructs a Controller. A nil selection becomes Uncontrolled.
func New[T any](cfg Config[T]) *Controller[T] {
	if cfg.Selection == nil {
		cfg.Selection = Uncontrolled()
	}
	return &Controller[T]{cfg: cfg}
}

// Update applies the props of a new render. The mode is re-derived each time;
// switching modes discards the pointer of the previous mode.
func (c *Controller[T]) Update(p Props[T]) {
	server := p.Server
	if !server.usable() {
		server = nil
	}
	p.Server = server

	mode := ModeLocal
	if server != nil {
		mode = ModeServer
	}
	if mode != c.mode {
		c.mode = mode
		c.pageIndex = 0
		c.observed = false
		c.lastServerPage = 0
	}
	c.props = p

	switch mode {
	case ModeServer:
		page := server.Page
		if page < 1 {
			page = 1
		}
		// Only follow the remote page when it moved since the last render, so a
		// click that is already in flight is not undone.
		if !c.observed || page != c.lastServerPage {
			c.pageIndex = page - 1
			c.lastServerPage = page
			c.observed = true
		}
	case ModeLocal:
		if last := c.PageCount() - 1; c.pageIndex > last {
			c.pageIndex = max(last, 0)
		}
	}
}

// Mode reports the mode chosen by the last Update.
func (c *Controller[T]) Mode() Mode {
	return c.mode
}

// Loading reports whether the last render was marked as loading.
func (c *Controller[T]) Loading() bool {
	return c.props.Loading
}

// PageSize returns the effective page size, never zero.
func (c *Controller[T]) PageSize() int {
	if c.mode == ModeServer && c.props.Server.PageSize > 0 {
		return c.props.Server.PageSize
	}
	if c.cfg.PageSize > 0 {
		return c.cfg.PageSize
	}
	return DefaultPageSize
}

// PageIndex returns the 0-indexed page pointer.
func (c *Controller[T]) PageIndex() int {
	return c.pageIndex
}

// Page returns the 1-indexed page for callers outside the table.
func (c *Controller[T]) Page() int {
	return c.pageIndex + 1
}

// PageCount returns the number of pages.
func (c *Controller[T]) PageCount() int {
	if c.mode == ModeServer {
		return c.props.Server.TotalPages
	}
	size := c.PageSize()
	return (len(c.props.Rows) + size - 1) / size
}

// Total returns the number of rows across all pages.
func (c *Controller[T]) Total() int {
	if c.mode == ModeServer {
		return c.props.Server.Total
	}
	return len(c.props.Rows)
}

// CanGoPrevious reports whether a previous page exists.
func (c *Controller[T]) CanGoPrevious() bool {
	return c.pageIndex > 0
}

// CanGoNext reports whether a next page exists. In server mode an empty page
// disables it even when TotalPages is stale.
func (c *Controller[T]) CanGoNext() bool {
	if c.mode == ModeServer {
		return c.pageIndex < c.PageCount()-1 && len(c.props.Rows) > 0
	}
	return c.pageIndex < c.PageCount()-1
}

// NextPage advances the pointer. It is not clamped; callers disable the
// control once CanGoNext is false.
func (c *Controller[T]) NextPage() {
	c.pageIndex++
	if c.mode == ModeServer && c.cfg.OnNextPage != nil {
		c.cfg.OnNextPage()
	}
}

// PreviousPage moves the pointer back, stopping at the first page.
func (c *Controller[T]) PreviousPage() {
	if c.pageIndex == 0 {
		return
	}
	c.pageIndex--
	if c.mode == ModeServer && c.cfg.OnPreviousPage != nil {
		c.cfg.OnPreviousPage()
	}
}

// SetPage jumps to a 0-indexed page.
func (c *Controller[T]) SetPage(index int) {
	if index < 0 {
		index = 0
	}
	c.pageIndex = index
	if c.mode == ModeServer && c.cfg.OnPageChange != nil {
		c.cfg.OnPageChange(index + 1)
	}
}

// VisibleRows returns the rows of the current page.
func (c *Controller[T]) VisibleRows() []T {
	if c.mode == ModeServer {
		return c.props.Rows
	}
	size := c.PageSize()
	start := c.pageIndex * size
	if start >= len(c.props.Rows) {
		return nil
	}
	end := min(start+size, len(c.props.Rows))
	return c.props.Rows[start:end]
}

// Selection exposes the selection model.
func (c *Controller[T]) Selection() *Selection {
	return c.cfg.Selection
}

// RowKey returns the key of the row at position i of the current props.
func (c *Controller[T]) RowKey(i int, row T) string {
	if c.cfg.RowID != nil {
		return c.cfg.RowID(row)
	}
	return strconv.Itoa(i)
}
