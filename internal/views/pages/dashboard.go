package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"hopper/internal/auth"
	"hopper/internal/theme"
	"hopper/internal/views/components"
	"hopper/internal/views/layout"
	"hopper/internal/views/markup"
)

// DashboardData is everything the overview page renders.
type DashboardData struct {
	User             auth.User
	Platforms        []auth.Platform
	PlatformsMessage string
	Overview         Overview
}

// Dashboard renders the full overview page.
func Dashboard(data DashboardData, palette theme.Palette) templ.Component {
	return layout.Layout("Overview · Hopper", palette, DashboardPartial(data, palette))
}

// DashboardPartial renders the page body without the document shell.
func DashboardPartial(data DashboardData, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		overview := data.Overview
		m := markup.New(w)
		m.Raw(`<div class="flex min-h-screen">`)
		m.Render(ctx, components.Sidebar(overview.Nav, palette))
		m.Raw(`<main class="flex-1 space-y-6 px-8 py-8"><header class="flex items-center justify-between"><div>`)
		m.Raw(`<h1 class="text-2xl font-semibold">Overview</h1>`)
		m.Raw("<p").Attr("class", markup.Classes("text-sm", palette.MutedTextClass)).Raw(">Welcome back, ").Text(data.User.Username).Raw("</p></div>")
		m.Raw(`<div class="flex items-center gap-4">`)
		m.Render(ctx, components.ThemeToggle(palette))
		m.Render(ctx, components.ProfileCard(data.User, palette))
		m.Raw(`</div></header><div class="grid gap-4 md:grid-cols-3">`)
		for _, metric := range overview.Metrics {
			m.Render(ctx, components.StatCard(metric, palette))
		}
		m.Raw(`</div><div class="grid gap-4 lg:grid-cols-3"><div class="lg:col-span-2">`)
		m.Render(ctx, components.SalesChart(overview.Sales, palette))
		m.Raw("</div>")
		m.Render(ctx, components.TopProducts(overview.Products, palette))
		m.Raw(`</div><div class="grid gap-4 lg:grid-cols-3"><div class="lg:col-span-2">`)
		m.Render(ctx, components.OrdersTable(overview.Orders, palette))
		m.Raw("</div>")
		m.Render(ctx, components.PlatformTable(data.Platforms, data.PlatformsMessage, palette))
		m.Raw("</div></main></div>")
		return m.Err()
	})
}
