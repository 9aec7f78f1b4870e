// Package markup is the small HTML writer behind the view components. Text and attribute
// values are always escaped; Raw is for literal markup owned by the views.
package markup

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Writer accumulates the first write error so components can chain calls and check once.
type Writer struct {
	w   io.Writer
	err error
}

// New wraps w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes parts verbatim.
func (m *Writer) Raw(parts ...string) *Writer {
	for _, part := range parts {
		if m.err != nil {
			return m
		}
		_, m.err = io.WriteString(m.w, part)
	}
	return m
}

// Text writes s escaped for an element body.
func (m *Writer) Text(s string) *Writer {
	return m.Raw(templ.EscapeString(s))
}

// Attr writes ` name="value"`. Empty values are skipped.
func (m *Writer) Attr(name, value string) *Writer {
	if value == "" {
		return m
	}
	return m.Raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// Flag writes a boolean attribute when on is true.
func (m *Writer) Flag(name string, on bool) *Writer {
	if !on {
		return m
	}
	return m.Raw(" ", name)
}

// Render renders c in place. A nil component is skipped.
func (m *Writer) Render(ctx context.Context, c templ.Component) *Writer {
	if m.err != nil || c == nil {
		return m
	}
	m.err = c.Render(ctx, m.w)
	return m
}

// Err returns the first error encountered.
func (m *Writer) Err() error {
	return m.err
}

// Classes joins the non-empty class lists.
func Classes(parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
