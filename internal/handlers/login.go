package handlers

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"hopper/internal/auth"
	applog "hopper/internal/log"
	"hopper/internal/theme"
	"hopper/internal/views/pages"
)

// Login renders the sign-in view and processes sign-in submissions.
func Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	applog.Debug(r.Context(), "handling login request", "method", r.Method, "htmx", isHTMX(r))

	p := providersFrom(r)
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		renderLogin(w, r, paletteFor(p), pages.LoginForm{RememberMe: true})
	case http.MethodPost:
		if p == nil {
			applog.Debug(r.Context(), "authentication dependencies unavailable")
			http.Error(w, "authentication not available", http.StatusServiceUnavailable)
			return
		}
		if err := r.ParseForm(); err != nil {
			applog.Debug(r.Context(), "failed to parse login form", "error", err)
			http.Error(w, "invalid form submission", http.StatusBadRequest)
			return
		}
		form := pages.LoginForm{
			Identifier: strings.TrimSpace(r.PostFormValue("usernameOrEmail")),
			RememberMe: checked(r.PostFormValue("rememberMe")),
		}
		password := r.PostFormValue("password")
		palette := paletteFor(p)

		if form.Identifier == "" || password == "" {
			applog.Debug(r.Context(), "login form missing credentials", "identifierPresent", form.Identifier != "", "passwordPresent", password != "")
			form.Message = "Username or email and password are required."
			renderLogin(w, r, palette, form)
			return
		}

		err := p.Session.Login(r.Context(), auth.LoginPayload{
			UsernameOrEmail: form.Identifier,
			Password:        password,
			RememberMe:      form.RememberMe,
		})
		if err != nil {
			applog.Debug(r.Context(), "authentication failed", "status", auth.StatusOf(err))
			form.Message = auth.MessageOf(err, auth.FallbackLogin)
			renderLogin(w, r, palette, form)
			return
		}

		applog.Debug(r.Context(), "authentication succeeded")
		renewSession(r)
		redirectTo(w, r, routes.Home)
	default:
		applog.Debug(r.Context(), "method not allowed for login", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func renderLogin(w http.ResponseWriter, r *http.Request, palette theme.Palette, form pages.LoginForm) {
	var component templ.Component
	if isHTMX(r) {
		component = pages.LoginPartial(form, palette)
	} else {
		component = pages.Login(form, palette)
	}

	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render login component", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func checked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
