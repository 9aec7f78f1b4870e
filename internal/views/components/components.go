// Package components holds the reusable dashboard widgets.
package components

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"hopper/internal/auth"
	"hopper/internal/theme"
	"hopper/internal/views/markup"
)

// NavItem is a sidebar entry.
type NavItem struct {
	Icon   string
	Label  string
	Active bool
}

// Metric is a KPI card.
type Metric struct {
	Title     string
	Label     string
	Value     string
	Change    string
	Positive  bool
	Icon      string
	Highlight bool
}

// SalesPoint is one month of the sales chart. Values are percentages of the chart height.
type SalesPoint struct {
	Month   string
	Revenue int
	Orders  int
}

// Product is a top product row.
type Product struct {
	Name  string
	Sales string
	Stock string
	Icon  string
}

// Order is a recent order row.
type Order struct {
	ID      string
	Product string
	Date    string
	Price   string
	Payment string
	Status  string
	Tone    string
}

func navState(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

// Sidebar renders the brand and navigation.
func Sidebar(items []NavItem, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw("<aside").Attr("class", markup.Classes("flex w-64 flex-col gap-6 border-r px-6 py-8", palette.BorderClass)).Raw(">")
		m.Raw(`<a href="/app" class="text-lg font-semibold">Hopper</a><nav class="flex flex-col gap-1.5">`)
		for _, item := range items {
			m.Raw(`<a href="#" class="flex items-center gap-3 rounded-lg px-3 py-2"`).Attr("data-state", navState(item.Active)).Raw(">")
			m.Raw(`<span aria-hidden="true">`).Text(item.Icon).Raw("</span><span>").Text(item.Label).Raw("</span></a>")
		}
		m.Raw("</nav></aside>")
		return m.Err()
	})
}

// StatCard renders a single KPI.
func StatCard(metric Metric, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tone := "text-rose-500"
		if metric.Positive {
			tone = "text-emerald-500"
		}
		surface := palette.PanelSurfaceClass
		if metric.Highlight {
			surface = "rounded-xl bg-gradient-to-br from-indigo-600 to-emerald-500 text-white shadow"
		}
		m := markup.New(w)
		m.Raw("<article").Attr("class", markup.Classes(surface, "p-5")).Raw(">")
		m.Raw(`<header class="flex items-center justify-between"><h3 class="text-sm font-medium">`).Text(metric.Title).Raw("</h3>")
		if metric.Icon != "" {
			m.Raw(`<span aria-hidden="true">`).Text(metric.Icon).Raw("</span>")
		}
		m.Raw(`</header><p class="mt-3 text-2xl font-semibold">`).Text(metric.Value).Raw("</p>")
		m.Raw(`<footer class="mt-2 flex items-center gap-2 text-xs">`)
		if metric.Change != "" {
			m.Raw("<span").Attr("class", tone).Raw(">").Text(metric.Change).Raw("</span>")
		}
		m.Raw("<span").Attr("class", palette.MutedTextClass).Raw(">").Text(metric.Label).Raw("</span></footer></article>")
		return m.Err()
	})
}

// SalesChart renders revenue and order bars per month.
func SalesChart(points []SalesPoint, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw("<section").Attr("class", markup.Classes(palette.PanelSurfaceClass, "p-5")).Raw(` aria-label="Sales performance">`)
		m.Raw(`<h3 class="text-sm font-medium">Sales performance</h3><div class="mt-4 flex h-40 items-end gap-4">`)
		for _, point := range points {
			m.Raw(`<div class="flex flex-1 flex-col items-center gap-2"><div class="flex h-full w-full items-end gap-1">`)
			m.Raw(`<span class="w-1/2 rounded bg-indigo-500"`).Attr("style", "height:"+percent(point.Revenue)).Raw("></span>")
			m.Raw(`<span class="w-1/2 rounded bg-emerald-400"`).Attr("style", "height:"+percent(point.Orders)).Raw("></span>")
			m.Raw("</div><span").Attr("class", markup.Classes("text-xs", palette.MutedTextClass)).Raw(">").Text(point.Month).Raw("</span></div>")
		}
		m.Raw("</div></section>")
		return m.Err()
	})
}

func percent(v int) string {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return strconv.Itoa(v) + "%"
}

// TopProducts renders the best sellers list.
func TopProducts(products []Product, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw("<section").Attr("class", markup.Classes(palette.PanelSurfaceClass, "p-5")).Raw(">")
		m.Raw(`<h3 class="text-sm font-medium">Top products</h3><ul class="mt-4 space-y-3">`)
		for _, product := range products {
			m.Raw(`<li class="flex items-center gap-3"><span aria-hidden="true">`).Text(product.Icon).Raw("</span>")
			m.Raw(`<div class="flex-1"><p class="text-sm font-medium">`).Text(product.Name).Raw("</p>")
			m.Raw("<p").Attr("class", markup.Classes("text-xs", palette.MutedTextClass)).Raw(">").Text(product.Sales).Raw("</p></div>")
			m.Raw(`<span class="text-xs">`).Text(product.Stock).Raw("</span></li>")
		}
		m.Raw("</ul></section>")
		return m.Err()
	})
}

// OrdersTable renders the recent orders.
func OrdersTable(orders []Order, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw("<section").Attr("class", markup.Classes(palette.PanelSurfaceClass, "p-5")).Raw(">")
		m.Raw(`<h3 class="text-sm font-medium">Recent orders</h3><table class="mt-4 w-full text-left text-sm"><thead><tr>`)
		for _, heading := range []string{"Order", "Product", "Date", "Price", "Payment", "Status"} {
			m.Raw("<th").Attr("class", markup.Classes("pb-2 font-medium", palette.MutedTextClass)).Raw(">").Text(heading).Raw("</th>")
		}
		m.Raw("</tr></thead><tbody>")
		for _, order := range orders {
			m.Raw("<tr").Attr("class", markup.Classes("border-t", palette.BorderClass)).Raw(">")
			for _, cell := range []string{order.ID, order.Product, order.Date, order.Price, order.Payment} {
				m.Raw(`<td class="py-2">`).Text(cell).Raw("</td>")
			}
			m.Raw(`<td class="py-2"><span`).Attr("class", statusClass(order.Tone)).Raw(">").Text(order.Status).Raw("</span></td></tr>")
		}
		m.Raw("</tbody></table></section>")
		return m.Err()
	})
}

func statusClass(tone string) string {
	switch strings.ToLower(tone) {
	case "emerald":
		return "rounded-full bg-emerald-500/10 px-2 py-0.5 text-xs text-emerald-500"
	default:
		return "rounded-full bg-indigo-500/10 px-2 py-0.5 text-xs text-indigo-500"
	}
}

// PlatformTable renders the connected sales channels. message replaces the table when the
// platforms could not be loaded.
func PlatformTable(platforms []auth.Platform, message string, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw("<section").Attr("class", markup.Classes(palette.PanelSurfaceClass, "p-5")).Raw(` id="platforms">`)
		m.Raw(`<h3 class="text-sm font-medium">Connected platforms</h3>`)
		switch {
		case message != "":
			m.Raw(`<p class="mt-4 text-sm text-rose-500" role="alert">`).Text(message).Raw("</p>")
		case len(platforms) == 0:
			m.Raw("<p").Attr("class", markup.Classes("mt-4 text-sm", palette.MutedTextClass)).Raw(">No platforms connected yet.</p>")
		default:
			m.Raw(`<ul class="mt-4 space-y-2">`)
			for _, platform := range platforms {
				m.Raw(`<li class="flex justify-between text-sm"`).Attr("data-platform-id", platform.ID).Raw("><span>").Text(platform.Name).Raw("</span>")
				m.Raw("<span").Attr("class", palette.MutedTextClass).Raw(">").Text(platform.PlatformType).Raw("</span></li>")
			}
			m.Raw("</ul>")
		}
		m.Raw("</section>")
		return m.Err()
	})
}

// ProfileCard renders the signed-in user and the sign-out action.
func ProfileCard(user auth.User, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw("<div").Attr("class", markup.Classes(palette.PanelSurfaceClass, "flex items-center gap-3 px-4 py-2")).Raw(` id="profile">`)
		m.Raw(`<div class="text-right"><p class="text-sm font-semibold">`).Text(user.Username).Raw("</p>")
		if user.Email != "" {
			m.Raw("<p").Attr("class", markup.Classes("text-xs", palette.MutedTextClass)).Raw(">").Text(user.Email).Raw("</p>")
		}
		if len(user.Roles) > 0 {
			m.Raw("<p").Attr("class", markup.Classes("text-xs", palette.AccentTextClass)).Raw(">").Text(strings.Join(user.Roles, ", ")).Raw("</p>")
		}
		m.Raw(`</div><form method="post" action="/logout"><button type="submit" class="text-sm font-medium">Sign out</button></form></div>`)
		return m.Err()
	})
}

// ThemeToggle posts to the preference endpoint. With htmx the response only fires themeChanged.
func ThemeToggle(palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw(`<form method="post" action="/preferences/theme" hx-post="/preferences/theme" hx-swap="none">`)
		m.Raw(`<button type="submit" class="rounded-full border px-3 py-1 text-xs"`).Attr("aria-label", palette.ToggleLabel).Raw(">")
		m.Text(palette.ToggleLabel).Raw("</button></form>")
		return m.Err()
	})
}
