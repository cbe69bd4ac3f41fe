package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arrest-log/internal/audit"
	"arrest-log/internal/auth"
	"arrest-log/internal/config"
	"arrest-log/internal/httpapi"
	"arrest-log/internal/imagerelay"
	"arrest-log/internal/notify"
	"arrest-log/internal/records"
	"arrest-log/internal/reporting"
	"arrest-log/internal/session"
	"arrest-log/internal/settings"
	"arrest-log/internal/users"
	"arrest-log/pkg/logger"
	"arrest-log/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type repositories struct {
	users    users.Repository
	records  records.Repository
	audit    audit.Repository
	settings settings.Repository
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, "arrest-log-api")
	slog.SetDefault(log)
	ctx := logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var (
		repos  repositories
		checks []func(context.Context) error
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("memory storage backend: data is lost on restart")
		repos = repositories{
			users:    users.NewMemoryRepo(),
			records:  records.NewMemoryRepo(),
			audit:    audit.NewMemoryRepo(),
			settings: settings.NewMemoryRepo(),
		}
	default:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		repos = repositories{
			users:    users.NewPostgresRepo(db),
			records:  records.NewPostgresRepo(db),
			audit:    audit.NewPostgresRepo(db),
			settings: settings.NewPostgresRepo(db),
		}
		checks = append(checks, func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		})
	}

	var (
		sessions session.Store = session.NewMemoryStore()
		limiter  redis.Scripter
	)
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.App.Namespace)
		limiter = rdb
		checks = append(checks, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	} else {
		log.Warn("redis not configured: sessions are process-local and the webhook cap is off")
	}

	auditSvc := audit.NewService(repos.audit)
	settingsSvc := settings.NewService(repos.settings, settings.Defaults(cfg.Webhook.DefaultURL))
	relay := imagerelay.New(cfg.ImageHost, cfg.Webhook.Timeout)
	dispatcher := notify.New(settingsSvc, relay, notify.Options{
		Location:      cfg.Location(),
		FollowUpDelay: cfg.Webhook.FollowUpDelay,
		Timeout:       cfg.Webhook.Timeout,
		Limiter:       limiter,
		MaxInFlight:   cfg.Webhook.MaxInFlight,
		Namespace:     cfg.App.Namespace,
	})
	authSvc := auth.NewService(repos.users, sessions, tokens, auth.NewHasher())

	created, err := authSvc.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword)
	if err != nil {
		log.Error("bootstrap admin failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("bootstrap admin ready", "username", cfg.Bootstrap.AdminUsername)
	}

	h := httpapi.Handlers{
		Auth:     authSvc,
		Users:    users.NewService(repos.users, auditSvc, sessions),
		Records:  records.NewService(repos.records, auditSvc, dispatcher),
		Audit:    auditSvc,
		Settings: settingsSvc,
		Images:   relay,
		Reports:  reporting.NewService(reporting.Sources{Records: repos.records, Logs: repos.audit}, cfg.Location()),
		Ready: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(log, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Let in-flight webhook deliveries finish.
	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("webhook deliveries still running at shutdown")
	}
}

func openPostgres(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, err
	}
	schema := make([]string, 0, 8)
	schema = append(schema, users.Schema...)
	schema = append(schema, records.Schema...)
	schema = append(schema, audit.Schema...)
	schema = append(schema, settings.Schema...)
	if err := utils.EnsureSchema(ctx, db, schema...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
