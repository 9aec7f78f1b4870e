package server

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"hopper/internal/api"
	"hopper/internal/handlers"
	applog "hopper/internal/log"
)

const requestIDHeader = "X-Request-ID"

func newRouter(sessions *scs.SessionManager, gateway *api.API) http.Handler {
	ctx := context.Background()
	r := mux.NewRouter()
	applog.Debug(ctx, "registering http routes")

	r.HandleFunc("/healthz", handlers.Health).Methods(http.MethodGet, http.MethodHead)
	applog.Debug(ctx, "route registered", "path", "/healthz")

	if gateway != nil {
		gateway.Mount(r)
		applog.Debug(ctx, "route registered", "path", "/api/", "embedded", true)
	}

	r.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.Dir("web/static"))))
	applog.Debug(ctx, "route registered", "path", "/assets/", "static", true)

	web := r.NewRoute().Subrouter()
	if sessions != nil {
		web.Use(sessions.LoadAndSave)
	}
	web.Use(handlers.Visitor)

	web.Handle("/login", handlers.RedirectAuthenticated(http.HandlerFunc(handlers.Login)))
	web.Handle("/register", handlers.RedirectAuthenticated(http.HandlerFunc(handlers.Register)))
	web.HandleFunc("/logout", handlers.Logout).Methods(http.MethodPost)
	web.Handle("/app", handlers.RequireAuthentication(http.HandlerFunc(handlers.Dashboard)))
	web.Handle("/app/", handlers.RequireAuthentication(http.HandlerFunc(handlers.Dashboard)))
	web.HandleFunc("/preferences/theme", handlers.UpdateTheme).Methods(http.MethodPost)
	web.HandleFunc("/", handlers.Home)
	applog.Debug(ctx, "route registered", "path", "/app", "protected", true)

	return r
}

// requestID tags every request with an identifier, reusing one supplied by a proxy.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := applog.With(r.Context(), "requestID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
