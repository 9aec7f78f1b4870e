package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"hopper/internal/theme"
	"hopper/internal/views/layout"
	"hopper/internal/views/markup"
)

// Loading is shown while a visitor's session is still being restored. The page asks for
// target again shortly, with or without htmx.
func Loading(target string, palette theme.Palette) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw(`<meta http-equiv="refresh"`).Attr("content", "1;url="+target).Raw(">")
		m.Raw(`<div class="flex min-h-screen items-center justify-center" hx-trigger="load delay:500ms" hx-target="body" hx-push-url="false"`).Attr("hx-get", target).Raw(">")
		m.Raw("<p").Attr("class", markup.Classes("text-sm", palette.MutedTextClass)).Raw(` aria-live="polite">Loading your workspace…</p></div>`)
		return m.Err()
	})
	return layout.Layout("Loading · Hopper", palette, body)
}
