package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	applog "hopper/internal/log"
	"hopper/internal/theme"
)

type themeChangedEvent struct {
	ThemeChanged theme.Preference `json:"themeChanged"`
}

// UpdateTheme toggles the visitor's dark mode preference, or sets it when the form carries an
// isDark value. htmx callers get a themeChanged event; plain form posts are sent back.
func UpdateTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		applog.Debug(r.Context(), "theme update with unsupported method", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p := providersFrom(r)
	if p == nil {
		http.Error(w, "preferences not available", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseForm(); err != nil {
		applog.Debug(r.Context(), "failed to parse theme form", "error", err)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	if raw := strings.TrimSpace(r.PostFormValue("isDark")); raw != "" {
		value, ok := theme.Parse(strings.ToLower(raw))
		if !ok {
			applog.Debug(r.Context(), "received invalid theme value", "value", raw)
			http.Error(w, "invalid theme selection", http.StatusBadRequest)
			return
		}
		p.Theme.Set(r.Context(), value)
	} else {
		p.Theme.Toggle(r.Context())
	}
	pref := p.Theme.Preference()
	applog.Debug(r.Context(), "theme preference updated", "isDark", pref.IsDark)

	if !isHTMX(r) && !wantsJSON(r) {
		redirectTo(w, r, backTarget(r))
		return
	}

	if trigger, err := json.Marshal(themeChangedEvent{ThemeChanged: pref}); err == nil {
		w.Header().Set("HX-Trigger", string(trigger))
	}
	w.Header().Set("HX-Refresh", "true")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pref); err != nil {
		applog.Error(r.Context(), "failed to encode theme response", "error", err)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// backTarget returns the local page the form was posted from.
func backTarget(r *http.Request) string {
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || (ref.Host != "" && ref.Host != r.Host) || !strings.HasPrefix(ref.Path, "/") {
		return routes.Home
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
