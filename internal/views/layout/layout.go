// Package layout renders the document shell shared by every dashboard page.
package layout

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"hopper/internal/theme"
	"hopper/internal/views/markup"
)

// themeScript mirrors a themeChanged event onto the root element, so the dark class follows
// the stored preference without a reload.
const themeScript = `<script>
document.addEventListener("themeChanged", function (event) {
  var detail = event.detail || {};
  document.documentElement.classList.toggle("dark", detail.isDark === true);
});
</script>`

// Layout wraps body in the HTML document. The root element carries the palette's dark marker.
func Layout(title string, palette theme.Palette, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw("<!doctype html><html lang=\"en\"").Attr("class", palette.HTMLClass).Attr("data-theme", palette.Key).Raw(">")
		m.Raw("<head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		m.Raw("<title>").Text(title).Raw("</title>")
		m.Raw(`<link rel="stylesheet" href="/assets/app.css">`)
		m.Raw(`<script src="https://unpkg.com/htmx.org@2.0.4" defer></script>`)
		m.Raw(themeScript, "</head>")
		m.Raw("<body").Attr("class", palette.BodyClass).Raw(">")
		m.Raw("<div").Attr("class", palette.ShellClass).Raw(" id=\"shell\">")
		m.Render(ctx, body)
		m.Raw("</div></body></html>")
		return m.Err()
	})
}
