package view

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"
)

// Link is a table cell rendered as an anchor.
type Link struct {
	Label string
	URL   string
}

// Badge is a table cell rendered as a status pill.
type Badge struct {
	Text string
	Kind string
}

// Action is one row action. GET actions render as links, everything else as
// a small form carrying the CSRF token.
type Action struct {
	Label   string
	URL     string
	Method  string
	Confirm string
	Fields  map[string]string
	Danger  bool
}

// Actions is a table cell holding row actions.
type Actions []Action

// renderCell turns a column value into markup. Unknown values are printed
// with fmt and escaped.
func renderCell(csrfToken string, v any) template.HTML {
	esc := template.HTMLEscapeString
	switch c := v.(type) {
	case nil:
		return ""
	case template.HTML:
		return c
	case string:
		return template.HTML(esc(c))
	case Link:
		return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`, esc(c.URL), esc(c.Label)))
	case Badge:
		kind := c.Kind
		if kind == "" {
			kind = "muted"
		}
		return template.HTML(fmt.Sprintf(`<span class="badge badge-%s">%s</span>`, esc(kind), esc(c.Text)))
	case Actions:
		var b strings.Builder
		b.WriteString(`<div class="actions">`)
		for _, a := range c {
			b.WriteString(string(renderAction(csrfToken, a)))
		}
		b.WriteString(`</div>`)
		return template.HTML(b.String())
	case time.Time, *time.Time:
		return template.HTML(esc(formatDate(c)))
	case bool:
		if c {
			return "Yes"
		}
		return "No"
	default:
		return template.HTML(esc(fmt.Sprint(c)))
	}
}

func renderAction(csrfToken string, a Action) template.HTML {
	esc := template.HTMLEscapeString
	class := "btn btn-small"
	if a.Danger {
		class += " btn-danger"
	}
	if a.Method == "" || strings.EqualFold(a.Method, "GET") {
		return template.HTML(fmt.Sprintf(`<a class="%s" href="%s">%s</a>`, class, esc(a.URL), esc(a.Label)))
	}
	var b strings.Builder
	b.WriteString(`<form method="post" action="` + esc(a.URL) + `" class="inline"`)
	if a.Confirm != "" {
		b.WriteString(` data-confirm="` + esc(a.Confirm) + `"`)
	}
	b.WriteString(`>`)
	b.WriteString(`<input type="hidden" name="csrf_token" value="` + esc(csrfToken) + `">`)
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(`<input type="hidden" name="` + esc(k) + `" value="` + esc(a.Fields[k]) + `">`)
	}
	b.WriteString(`<button type="submit" class="` + class + `">` + esc(a.Label) + `</button></form>`)
	return template.HTML(b.String())
}
