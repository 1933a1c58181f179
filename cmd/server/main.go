package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/car_catalog/internal/config"
	"github.com/Skotchmaster/car_catalog/internal/db"
	"github.com/Skotchmaster/car_catalog/internal/events"
	"github.com/Skotchmaster/car_catalog/internal/hash"
	"github.com/Skotchmaster/car_catalog/internal/httpserver"
	"github.com/Skotchmaster/car_catalog/internal/logging"
	authmw "github.com/Skotchmaster/car_catalog/internal/middleware/auth"
	"github.com/Skotchmaster/car_catalog/internal/repo"
	"github.com/Skotchmaster/car_catalog/internal/search"
	"github.com/Skotchmaster/car_catalog/internal/service"
	"github.com/Skotchmaster/car_catalog/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	l := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	l.Info("config_loaded", "config", cfg.String())

	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		l.Error("db_open_failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		l.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	ts, err := tokens.NewService(tokens.Config{
		Secret:        cfg.TokenSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		l.Error("tokens_init_failed", "error", err)
		os.Exit(1)
	}

	prod := events.New(cfg.KafkaBrokers)
	r := repo.New(gdb)

	carSvc := &service.CarService{Repo: r, Events: prod}
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			l.Error("es_client_failed", "error", err)
			os.Exit(1)
		}
		idx := &search.ESIndex{ES: esClient, Index: cfg.ESIndex}
		carSvc.Index = idx
		if err := idx.Ping(ctx); err != nil {
			l.Warn("es_unreachable", "url", cfg.ESURL, "error", err)
		} else if n, err := carSvc.Reindex(logging.IntoContext(ctx, l)); err != nil {
			l.Warn("es_reindex_incomplete", "indexed", n, "error", err)
		} else {
			l.Info("es_reindexed", "indexed", n)
		}
	}

	deps := &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Repo:   r,
				Tokens: ts,
				Hasher: hash.New(cfg.BcryptCost),
				Events: prod,
			},
			Cookies:    httpserver.CookiePolicy{Secure: cfg.CookieSecure, HTTPOnly: cfg.CookieHTTPOnly},
			RefreshTTL: ts.RefreshTTL(),
		},
		CarHandler: &httpserver.CarHTTP{Svc: carSvc},
		Auth:       authmw.NewBearerAuth(ts),
		Ready: func(ctx context.Context) error {
			return db.Ping(ctx, gdb)
		},
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,
	}

	e := httpserver.New(l, deps)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		l.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		l.Warn("force_exit")
		os.Exit(1)
	}()

	l.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		l.Error("db_close_error", "error", err)
	}
	if err := prod.Close(); err != nil {
		l.Error("kafka_close_error", "error", err)
	}

	l.Info("shutdown_complete")
}
