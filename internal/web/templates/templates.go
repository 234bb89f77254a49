// Package templates holds the HTML components for the converter UI.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/emilyselwood/csv-to-ics/internal/core"
)

const styles = `body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem;color:#1f2933}
table{border-collapse:collapse;width:100%;margin:1rem 0}
th,td{border:1px solid #cbd2d9;padding:.35rem .5rem;text-align:left;font-size:.9rem}
th{background:#f0f4f8}
.alert{border:1px solid #e12d39;background:#ffe3e3;padding:.75rem 1rem;border-radius:4px}
.issues li{color:#8a041a}
.muted{color:#616e7c;font-size:.85rem}
form label{display:block;margin:.5rem 0}`

// html accumulates markup and remembers the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) printf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><style>`)
		h.raw(styles)
		h.raw(`</style></head><body>`)
		h.render(ctx, body)
		h.raw(`</body></html>`)
		return h.err
	})
}

// UploadPage is the landing page with the conversion and preview forms.
func UploadPage(defaultTitle string, historyEnabled bool) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>CSV to iCalendar</h1>`)
		h.raw(`<p>Upload a CSV with <code>Name</code>, <code>Start date</code> and <code>Start time</code> columns. `)
		h.raw(`<code>End date</code>, <code>End time</code>, <code>Description</code>, <code>URL</code>, `)
		h.raw(`<code>Location</code>, <code>Latitude</code> and <code>Longitude</code> are optional.</p>`)

		h.raw(`<form method="post" action="/api/convert" enctype="multipart/form-data">`)
		h.raw(`<label>CSV file <input type="file" name="file" accept=".csv,text/csv" required></label>`)
		h.raw(`<label>Calendar title <input type="text" name="title" placeholder="`)
		h.text(defaultTitle)
		h.raw(`"></label>`)
		h.raw(`<button type="submit">Download .ics</button> `)
		h.raw(`<button type="submit" formaction="/preview">Preview</button>`)
		h.raw(`</form>`)

		if historyEnabled {
			h.raw(`<p><a href="/history">Recent conversions</a></p>`)
		}
		return h.err
	})
	return Layout("CSV to iCalendar", body)
}

// Preview shows the parsed table and the events it maps to.
func Preview(sourceName string, res *core.PreviewResult) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>Preview</h1><p class="muted">`)
		h.text(sourceName)
		h.printf(` &middot; %d rows &middot; %d events &middot; %d skipped</p>`,
			len(res.Rows), len(res.Events), len(res.Issues))

		if len(res.Issues) > 0 {
			h.raw(`<h2>Skipped rows</h2><ul class="issues">`)
			for _, issue := range res.Issues {
				h.printf(`<li>Row %d: `, issue.Row)
				h.text(issue.Reason)
				h.raw(`</li>`)
			}
			h.raw(`</ul>`)
		}

		h.raw(`<h2>Events</h2><table><thead><tr><th>Summary</th><th>Start</th><th>End</th><th>Description</th></tr></thead><tbody>`)
		for _, ev := range res.Events {
			h.raw(`<tr>`)
			for _, v := range []string{ev.Summary, ev.Start, ev.End, ev.Description} {
				h.raw(`<td>`)
				h.text(v)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)

		h.raw(`<h2>Table</h2>`)
		h.render(ctx, Table(res.Headers, res.Rows, res.Width))
		h.raw(`<p><a href="/">Back</a></p>`)
		return h.err
	})
	return Layout("Preview", body)
}

// Table renders headers and rows, padding ragged lines with empty cells up
// to width columns.
func Table(headers []string, rows [][]string, width int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<table><thead><tr>`)
		cells(h, "th", headers, width)
		h.raw(`</tr></thead><tbody>`)
		for _, row := range rows {
			h.raw(`<tr>`)
			cells(h, "td", row, width)
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

func cells(h *html, tag string, values []string, width int) {
	for i := 0; i < width || i < len(values); i++ {
		h.printf(`<%s>`, tag)
		if i < len(values) {
			h.text(values[i])
		}
		h.printf(`</%s>`, tag)
	}
}

// History lists recent conversions.
func History(items []core.Conversion) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>Recent conversions</h1>`)
		if len(items) == 0 {
			h.raw(`<p class="muted">No conversions yet.</p>`)
		} else {
			h.raw(`<table><thead><tr><th>When</th><th>File</th><th>Title</th><th>Events</th><th>Skipped</th></tr></thead><tbody>`)
			for _, c := range items {
				h.raw(`<tr><td>`)
				h.text(c.CreatedAt.Format("2006-01-02 15:04"))
				h.raw(`</td><td>`)
				h.text(c.SourceName)
				h.raw(`</td><td>`)
				h.text(c.Title)
				h.printf(`</td><td>%d</td><td>%d</td></tr>`, c.EventCount, c.SkippedCount)
			}
			h.raw(`</tbody></table>`)
		}
		h.raw(`<p><a href="/">Back</a></p>`)
		return h.err
	})
	return Layout("Recent conversions", body)
}

// ErrorAlert renders a user-facing error with its reference code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action = strings.TrimSpace(action); action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<p class="muted">Code: `)
		h.text(code)
		h.raw(`</p></div>`)
		return h.err
	})
}

// ErrorPage wraps ErrorAlert in the page layout.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Error", ErrorAlert(message, action, code))
}
