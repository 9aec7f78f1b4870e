package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"hopper/internal/app"
	"hopper/internal/auth"
	"hopper/internal/guard"
	applog "hopper/internal/log"
	"hopper/internal/theme"
	"hopper/internal/views/pages"
)

const sessionVisitorKey = "visitor:id"

// PlatformLister loads the sales channels visible to a token.
type PlatformLister interface {
	Platforms(ctx context.Context, token string) ([]auth.Platform, error)
}

// Dependencies are the collaborators shared by every handler.
type Dependencies struct {
	Sessions  *scs.SessionManager
	Visitors  *app.Registry
	Platforms PlatformLister
	Routes    guard.Routes
	// Settle is how long a guarded request waits for session bootstrap before the loading
	// page is served instead.
	Settle  time.Duration
	Version string
}

var (
	sessionManager *scs.SessionManager
	visitors       *app.Registry
	platforms      PlatformLister
	routes         = guard.Routes{Login: "/login", Home: "/app"}
	guardSettle    time.Duration
	version        = "dev"
)

type providersKey struct{}

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(deps Dependencies) {
	sessionManager = deps.Sessions
	visitors = deps.Visitors
	platforms = deps.Platforms
	if deps.Routes.Login != "" && deps.Routes.Home != "" {
		routes = deps.Routes
	}
	guardSettle = deps.Settle
	if deps.Version != "" {
		version = deps.Version
	}
}

// Visitor resolves the visitor behind the cookie session, assigning a new identity on the
// first visit, and makes their Providers available to the handlers below it.
func Visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionManager == nil || visitors == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		id := sessionManager.GetString(ctx, sessionVisitorKey)
		if id == "" {
			id = uuid.NewString()
			sessionManager.Put(ctx, sessionVisitorKey, id)
			applog.Debug(ctx, "assigned visitor identity", "visitor", id)
		}
		ctx = applog.With(ctx, "visitor", id)
		ctx = context.WithValue(ctx, providersKey{}, visitors.Get(ctx, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func providersFrom(r *http.Request) *app.Providers {
	p, _ := r.Context().Value(providersKey{}).(*app.Providers)
	return p
}

func paletteFor(p *app.Providers) theme.Palette {
	if p == nil {
		return theme.Resolve(true)
	}
	return theme.Resolve(p.Theme.IsDark())
}

// RequireAuthentication lets only signed-in visitors through.
func RequireAuthentication(next http.Handler) http.Handler {
	return guarded(guard.Protected, next)
}

// RedirectAuthenticated sends signed-in visitors away from the login and registration screens.
func RedirectAuthenticated(next http.Handler) http.Handler {
	return guarded(guard.Entry, next)
}

func guarded(access guard.Access, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := providersFrom(r)
		if p == nil {
			applog.Debug(r.Context(), "visitor providers unavailable", "path", r.URL.Path)
			http.Error(w, "session not available", http.StatusServiceUnavailable)
			return
		}

		decision := decide(r.Context(), p, access)
		switch decision.Outcome {
		case guard.Wait:
			applog.Debug(r.Context(), "session still loading", "path", r.URL.Path)
			renderLoading(w, r, p)
		case guard.Redirect:
			applog.Debug(r.Context(), "guard redirect", "path", r.URL.Path, "target", decision.Target)
			redirectTo(w, r, decision.Target)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func decide(ctx context.Context, p *app.Providers, access guard.Access) guard.Decision {
	if guardSettle > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, guardSettle)
		_ = p.Session.Wait(waitCtx)
		cancel()
	}
	return routes.Decide(guard.Evaluate(p.Session.Snapshot()), access)
}

func renderLoading(w http.ResponseWriter, r *http.Request, p *app.Providers) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "1")
	if err := pages.Loading(r.URL.RequestURI(), paletteFor(p)).Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render loading page", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Logout signs the visitor out and redirects to the login screen. Sign-out always succeeds
// locally, even when the gateway cannot be reached.
func Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if p := providersFrom(r); p != nil {
		p.Session.Logout(r.Context())
	}
	renewSession(r)
	redirectTo(w, r, routes.Login)
}

// renewSession rotates the cookie token while keeping the session data, so a token issued
// before a sign-in state change stops resolving to this visitor.
func renewSession(r *http.Request) {
	if sessionManager == nil {
		return
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		applog.Error(r.Context(), "failed to renew session token", "error", err)
	}
}

func redirectTo(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
