package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"gorm.io/gorm"

	"hopper/internal/accounts"
	"hopper/internal/api"
	"hopper/internal/app"
	"hopper/internal/auth"
	"hopper/internal/config"
	"hopper/internal/guard"
	"hopper/internal/handlers"
	applog "hopper/internal/log"
	"hopper/internal/storage"
	"hopper/internal/tokens"
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr     string
	Version  string
	Session  SessionConfig
	Database *gorm.DB
	Tokens   config.TokenConfig
	Gateway  GatewayConfig
	Storage  StorageConfig
	UI       UIConfig
}

// SessionConfig controls session behavior for the HTTP server.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// GatewayConfig selects the auth gateway. An embedded gateway is served from Database by this
// server and reached in process; otherwise URL must point at a running gateway.
type GatewayConfig struct {
	URL      string
	Timeout  time.Duration
	Embedded bool
}

// StorageConfig selects the durable medium for visitor state and cookie sessions.
type StorageConfig struct {
	Backend  config.StorageBackend
	RedisURL string
	Prefix   string
	TTL      time.Duration
}

// UIConfig controls dashboard behaviour.
type UIConfig struct {
	DefaultDark    bool
	GuardSettle    time.Duration
	VisitorIdleTTL time.Duration
}

// Server wraps an http.Server and exposes helpers for bootstrapping a
// production-ready web service.
type Server struct {
	config     Config
	httpServer *http.Server
	visitors   *app.Registry
	redis      *redis.Client
}

// New builds a new Server using the provided configuration.
func New(cfg Config) (*Server, error) {
	ctx := context.Background()
	applog.Debug(ctx, "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Session.Lifetime.String(),
		"sessionCookie", cfg.Session.CookieName,
		"storage", string(cfg.Storage.Backend),
		"embeddedGateway", cfg.Gateway.Embedded,
	)

	sessionCfg := cfg.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(ctx, "session lifetime not provided, using default")
		sessionCfg.Lifetime = 12 * time.Hour
	}
	if strings.TrimSpace(sessionCfg.CookieName) == "" {
		applog.Debug(ctx, "session cookie name not provided, using default")
		sessionCfg.CookieName = "hopper_session"
	}

	srv := &Server{config: cfg}

	backend, err := srv.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.Cookie.Name = sessionCfg.CookieName
	sessionManager.Cookie.Domain = sessionCfg.CookieDomain
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = sessionCfg.CookieSecure
	if srv.redis != nil {
		sessionManager.Store = storage.NewRedisSessionStore(srv.redis, cfg.Storage.Prefix)
	}

	applog.Debug(ctx, "session manager configured",
		"cookieName", sessionCfg.CookieName,
		"cookieDomain", sessionCfg.CookieDomain,
		"cookieSecure", sessionCfg.CookieSecure,
	)

	var gatewayAPI *api.API
	if cfg.Gateway.Embedded {
		if cfg.Database == nil {
			srv.closeStorage()
			return nil, oops.In("server").Errorf("embedded gateway requires a database")
		}
		tm, err := tokens.NewManager(cfg.Tokens)
		if err != nil {
			srv.closeStorage()
			return nil, oops.In("server").Wrapf(err, "create token manager")
		}
		gatewayAPI = api.New(cfg.Database, accounts.NewService(cfg.Database), tm)
	}

	client, err := newGatewayClient(cfg.Gateway, gatewayAPI)
	if err != nil {
		srv.closeStorage()
		return nil, oops.In("server").Wrapf(err, "create gateway client")
	}

	srv.visitors = app.NewRegistry(app.Config{
		Backend:     backend,
		Gateway:     client,
		DefaultDark: cfg.UI.DefaultDark,
		IdleTTL:     cfg.UI.VisitorIdleTTL,
	})

	handlers.Configure(handlers.Dependencies{
		Sessions:  sessionManager,
		Visitors:  srv.visitors,
		Platforms: client,
		Routes:    guard.Routes{Login: "/login", Home: "/app"},
		Settle:    cfg.UI.GuardSettle,
		Version:   cfg.Version,
	})

	applog.Debug(ctx, "handler dependencies configured")

	handler := requestID(newRouter(sessionManager, gatewayAPI))

	applog.Debug(ctx, "http handler chain prepared")

	srv.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv, nil
}

func (s *Server) openStorage(ctx context.Context) (storage.Accessor, error) {
	switch s.config.Storage.Backend {
	case config.StorageNone:
		return storage.Nop{}, nil
	case config.StorageRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := storage.DialRedis(dialCtx, s.config.Storage.RedisURL)
		if err != nil {
			return nil, oops.In("server").Wrapf(err, "connect storage")
		}
		s.redis = client
		return storage.NewRedis(client, s.config.Storage.Prefix, s.config.Storage.TTL), nil
	default:
		return storage.NewMemory(s.config.Storage.TTL), nil
	}
}

func (s *Server) closeStorage() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	err := s.httpServer.Shutdown(ctx)
	s.visitors.Close()
	s.closeStorage()
	return err
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// newGatewayClient builds the dashboard's gateway client. An embedded gateway is called in
// process; there is no loopback round trip through the listener.
func newGatewayClient(cfg GatewayConfig, embedded *api.API) (*auth.Client, error) {
	if embedded != nil {
		return auth.NewClient(auth.Config{
			BaseURL:    "http://gateway.internal",
			HTTPClient: &http.Client{Timeout: cfg.Timeout, Transport: inProcess{handler: embedded.Router()}},
		})
	}
	return auth.NewClient(auth.Config{BaseURL: cfg.URL, Timeout: cfg.Timeout})
}
