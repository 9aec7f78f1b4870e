package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"hopper/internal/config"
	"hopper/internal/db"
	"hopper/internal/db/mock"
	applog "hopper/internal/log"
	"hopper/internal/server"
)

// Version is set by the build system.
var Version = ""

type serverLifecycle interface {
	Start() error
	Stop() error
}

var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	setLogFormatFunc    = applog.SetFormat
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	newServerFunc       = func(cfg server.Config) (serverLifecycle, error) {
		srv, err := server.New(cfg)
		if err != nil {
			return nil, err
		}
		return srv, nil
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

var errExit = errors.New("exit")

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	serve := func(cmd *cobra.Command, _ []string) error {
		if code := run(cmd.Context()); code != 0 {
			return errExit
		}
		return nil
	}

	cmd := &cobra.Command{
		Use:           "hopper",
		Short:         "Hopper back office dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the dashboard and, when embedded, the auth gateway",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the database schema and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if code := migrate(cmd.Context()); code != 0 {
					return errExit
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), buildVersion(""))
			},
		},
	)
	return cmd
}

func buildVersion(fallback string) string {
	if v := strings.TrimSpace(Version); v != "" {
		return v
	}
	if v := strings.TrimSpace(fallback); v != "" {
		return v
	}
	return "dev"
}

func setup(ctx context.Context) (config.Config, bool) {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", oops.In("main").Wrapf(err, "load config"))
		return config.Config{}, false
	}
	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "level", cfg.Logging.Level, "error", err)
		return config.Config{}, false
	}
	if err := setLogFormatFunc(cfg.Logging.Format); err != nil {
		applog.Error(ctx, "invalid log format", "format", cfg.Logging.Format, "error", err)
		return config.Config{}, false
	}
	return cfg, true
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.UseMock || strings.TrimSpace(cfg.URL) == "" {
		if !cfg.UseMock {
			applog.Warn(ctx, "no database url configured, using the in-memory demo database")
		}
		database, err := newMockDatabaseFunc(ctx)
		if err != nil {
			return nil, oops.In("main").Wrapf(err, "open mock database")
		}
		return database, nil
	}
	database, err := configureDatabase(cfg)
	if err != nil {
		return nil, oops.In("main").Wrapf(err, "configure database")
	}
	return database, nil
}

func serverConfig(cfg config.Config, database *gorm.DB) server.Config {
	gatewayURL := cfg.GatewayURL()
	return server.Config{
		Addr:    cfg.Server.Addr,
		Version: buildVersion(cfg.Server.Version),
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
		Tokens:   cfg.Auth.Tokens,
		Gateway: server.GatewayConfig{
			URL:      gatewayURL,
			Timeout:  cfg.Gateway.Timeout,
			Embedded: cfg.Gateway.Embedded,
		},
		Storage: server.StorageConfig{
			Backend:  cfg.Storage.Backend,
			RedisURL: cfg.Storage.RedisURL,
			Prefix:   cfg.Storage.Prefix,
			TTL:      cfg.Storage.TTL,
		},
		UI: server.UIConfig{
			DefaultDark:    cfg.UI.DefaultDark,
			GuardSettle:    cfg.UI.GuardSettle,
			VisitorIdleTTL: cfg.UI.VisitorIdleTTL,
		},
	}
}

func run(ctx context.Context) int {
	cfg, ok := setup(ctx)
	if !ok {
		return 1
	}

	var database *gorm.DB
	if cfg.Gateway.Embedded || cfg.Database.UseMock || strings.TrimSpace(cfg.Database.URL) != "" {
		var err error
		database, err = openDatabase(ctx, cfg.Database)
		if err != nil {
			applog.Error(ctx, "failed to open database", "error", err)
			return 1
		}
	}

	srv, err := newServerFunc(serverConfig(cfg, database))
	if err != nil {
		applog.Error(ctx, "failed to create server", "error", oops.In("main").Wrapf(err, "create server"))
		return 1
	}

	sigCh, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
		return 0
	case sig := <-sigCh:
		applog.Info(ctx, "shutting down http server", "signal", sig.String())
	case <-ctx.Done():
		applog.Info(ctx, "shutting down http server", "reason", ctx.Err())
	}

	if err := srv.Stop(); err != nil {
		applog.Error(ctx, "graceful shutdown failed", "error", err)
		return 1
	}
	return 0
}

func migrate(ctx context.Context) int {
	cfg, ok := setup(ctx)
	if !ok {
		return 1
	}
	if cfg.Database.UseMock || strings.TrimSpace(cfg.Database.URL) == "" {
		applog.Error(ctx, "migrate requires DATABASE_URL")
		return 1
	}
	if _, err := configureDatabase(cfg.Database); err != nil {
		applog.Error(ctx, "migration failed", "error", oops.In("main").Wrapf(err, "configure database"))
		return 1
	}
	applog.Info(ctx, "database schema is up to date")
	return 0
}
