package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/wellness-hub/internal/api"
	"github.com/terra-clan/wellness-hub/internal/auth"
	"github.com/terra-clan/wellness-hub/internal/catalog"
	"github.com/terra-clan/wellness-hub/internal/cleanup"
	"github.com/terra-clan/wellness-hub/internal/config"
	"github.com/terra-clan/wellness-hub/internal/health"
	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/realtime"
	"github.com/terra-clan/wellness-hub/internal/services"
	"github.com/terra-clan/wellness-hub/internal/storage"
	"github.com/terra-clan/wellness-hub/internal/web"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting wellness-hub",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.Driver,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	registry := health.NewRegistry()

	repo, err := openRepository(initCtx, cfg.Database, registry)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}

	// Rate limiting and token revocation live in Redis when configured
	var (
		limiter auth.Limiter
		revoker auth.Revoker
	)
	if cfg.Redis.Address != "" {
		rdb, err := health.NewRedisClient(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()

		if limiter, err = auth.NewRedisLimiter(rdb, "wellness:login", cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow); err != nil {
			slog.Error("failed to create login limiter", "error", err)
			os.Exit(1)
		}
		revoker = auth.NewRedisRevoker(rdb)
		registry.Register("redis", health.NewRedisChecker(rdb))
		slog.Info("redis connected", "address", cfg.Redis.Address)
	} else {
		slog.Warn("redis not configured, using in-process rate limiting and revocation")
		limiter = auth.NewMemoryLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
		revoker = auth.NewMemoryRevoker()
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		slog.Error("failed to create token manager", "error", err)
		os.Exit(1)
	}

	// Load questionnaire catalog
	loader := catalog.NewLoader()
	if cfg.Catalog.Dir != "" {
		err = loader.LoadFromDir(cfg.Catalog.Dir)
	} else {
		err = loader.LoadDefaults()
	}
	if err != nil {
		slog.Error("failed to load diagnostic catalog", "dir", cfg.Catalog.Dir, "error", err)
		os.Exit(1)
	}

	hub := realtime.NewHub()
	resources := services.NewResourceService(repo, hub)
	users := services.NewUserService(repo, tokens, limiter, revoker)
	diagnostics := services.NewDiagnosticService(repo, loader)
	pages := services.NewPageService(repo, hub)

	if err := registerClients(initCtx, repo, cfg.Auth); err != nil {
		slog.Error("failed to register api clients", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.BootstrapAdmin != "" {
		if err := users.EnsureAdmin(initCtx, cfg.Auth.BootstrapAdmin); err != nil {
			slog.Warn("bootstrap admin not promoted", "email", cfg.Auth.BootstrapAdmin, "error", err)
		}
	}

	console, err := web.NewHandler(web.Config{
		DefaultLocale: cfg.Auth.DefaultLocale,
		CookieSecure:  cfg.Auth.CookieSecure,
	}, resources, users)
	if err != nil {
		slog.Error("failed to load admin console", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner := cleanup.NewCleaner(diagnostics, cfg.Cleanup.Interval, cfg.Cleanup.DiagnosticRetention)
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Dependencies{
		Repo:        repo,
		Resources:   resources,
		Users:       users,
		Diagnostics: diagnostics,
		Pages:       pages,
		Hub:         hub,
		Health:      registry,
		Admin:       console.Routes(),
	})
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: it would cut realtime websockets
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("wellness-hub stopped")
}

// openRepository connects the configured store and registers its health check.
func openRepository(ctx context.Context, cfg config.DatabaseConfig, registry *health.Registry) (storage.Repository, error) {
	if cfg.Driver == "memory" {
		slog.Warn("using in-memory storage, data is lost on restart")
		repo := storage.NewMemoryRepository()
		registry.Register("storage", health.PingFunc{Kind: "memory", Ping: repo.Ping})
		return repo, nil
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
		DSN:          cfg.DSN,
		MaxOpenConns: int32(cfg.MaxOpenConns),
		MaxIdleConns: int32(cfg.MaxIdleConns),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Run database migrations
	migrations, err := storage.MigrationsFS(cfg.MigrationsDir)
	if err != nil {
		repo.Close()
		return nil, err
	}
	slog.Info("running database migrations", "dir", cfg.MigrationsDir)
	if err := storage.RunMigrations(ctx, repo.Pool(), migrations); err != nil {
		repo.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database connected successfully")

	checker, err := health.NewPostgresChecker(cfg.DSN)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("postgres health check: %w", err)
	}
	registry.Register("postgres", checker)
	return repo, nil
}

// registerClients upserts the anon and service API keys from configuration.
func registerClients(ctx context.Context, repo storage.Repository, cfg config.AuthConfig) error {
	clients := []*models.ApiClient{{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("anon")).String(),
		Name:        "anon",
		Role:        models.RoleAnon,
		ApiKey:      cfg.AnonKey,
		IsActive:    true,
		Permissions: models.AnonPermissions,
		CreatedAt:   time.Now().UTC(),
	}}
	if cfg.ServiceKey != "" {
		clients = append(clients, &models.ApiClient{
			ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("service")).String(),
			Name:        "service",
			Role:        models.RoleService,
			ApiKey:      cfg.ServiceKey,
			IsActive:    true,
			Permissions: []string{"*"},
			CreatedAt:   time.Now().UTC(),
		})
	}
	for _, c := range clients {
		if err := repo.UpsertClient(ctx, c); err != nil {
			return fmt.Errorf("upsert %s client: %w", c.Name, err)
		}
		slog.Info("api client registered", "client", c.Name, "key_prefix", c.MaskedKey())
	}
	return nil
}
