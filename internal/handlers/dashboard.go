package handlers

import (
	"net/http"

	"github.com/a-h/templ"

	"hopper/internal/auth"
	applog "hopper/internal/log"
	"hopper/internal/views/pages"
)

// Dashboard renders the overview for the signed-in visitor.
func Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	p := providersFrom(r)
	if p == nil {
		http.Error(w, "session not available", http.StatusServiceUnavailable)
		return
	}
	snapshot := p.Session.Snapshot()
	if !snapshot.Authenticated() {
		redirectTo(w, r, routes.Login)
		return
	}

	data := pages.DashboardData{
		User:     *snapshot.User,
		Overview: pages.DefaultOverview(),
	}
	if platforms != nil {
		list, err := platforms.Platforms(r.Context(), snapshot.Token)
		if err != nil {
			applog.Warn(r.Context(), "failed to load platforms", "error", err)
			data.PlatformsMessage = auth.MessageOf(err, auth.FallbackPlatforms)
		}
		data.Platforms = list
	}
	applog.Debug(r.Context(), "rendering dashboard", "platforms", len(data.Platforms))

	palette := paletteFor(p)
	var component templ.Component
	if isHTMX(r) {
		component = pages.DashboardPartial(data, palette)
	} else {
		component = pages.Dashboard(data, palette)
	}
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render dashboard", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
