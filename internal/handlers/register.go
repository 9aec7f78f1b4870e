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

// Register renders the account creation view and processes registrations.
func Register(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	applog.Debug(r.Context(), "handling register request", "method", r.Method, "htmx", isHTMX(r))

	p := providersFrom(r)
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		renderRegister(w, r, paletteFor(p), pages.RegisterForm{RememberMe: true})
	case http.MethodPost:
		if p == nil {
			http.Error(w, "registration not available", http.StatusServiceUnavailable)
			return
		}
		if err := r.ParseForm(); err != nil {
			applog.Debug(r.Context(), "failed to parse register form", "error", err)
			http.Error(w, "invalid form submission", http.StatusBadRequest)
			return
		}
		form := pages.RegisterForm{
			Username:   strings.TrimSpace(r.PostFormValue("username")),
			Email:      strings.TrimSpace(r.PostFormValue("email")),
			RememberMe: checked(r.PostFormValue("rememberMe")),
		}
		password := r.PostFormValue("password")
		confirm := r.PostFormValue("confirm_password")
		palette := paletteFor(p)

		if form.Username == "" || form.Email == "" || password == "" {
			form.Message = "Username, email and password are required."
			renderRegister(w, r, palette, form)
			return
		}
		if password != confirm {
			applog.Debug(r.Context(), "register passwords do not match")
			form.Message = "Passwords do not match"
			renderRegister(w, r, palette, form)
			return
		}

		err := p.Session.Register(r.Context(), auth.RegisterPayload{
			Username:   form.Username,
			Email:      form.Email,
			Password:   password,
			RememberMe: form.RememberMe,
		})
		if err != nil {
			applog.Debug(r.Context(), "registration failed", "status", auth.StatusOf(err))
			form.Message = auth.MessageOf(err, auth.FallbackRegister)
			renderRegister(w, r, palette, form)
			return
		}

		applog.Info(r.Context(), "account created", "username", form.Username)
		renewSession(r)
		redirectTo(w, r, routes.Home)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func renderRegister(w http.ResponseWriter, r *http.Request, palette theme.Palette, form pages.RegisterForm) {
	var component templ.Component
	if isHTMX(r) {
		component = pages.RegisterPartial(form, palette)
	} else {
		component = pages.Register(form, palette)
	}

	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render register component", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
