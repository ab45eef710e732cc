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

	"github.com/redis/go-redis/v9"

	"github.com/msomdec/chit-chat/internal/config"
	"github.com/msomdec/chit-chat/internal/domain"
	"github.com/msomdec/chit-chat/internal/handler"
	"github.com/msomdec/chit-chat/internal/imagehost"
	"github.com/msomdec/chit-chat/internal/repository/mongodb"
	"github.com/msomdec/chit-chat/internal/repository/sqlite"
	"github.com/msomdec/chit-chat/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// SQLite holds blob-stored images even when users live in MongoDB.
	var blobs *sqlite.DB
	if cfg.Database.MongoURI == "" || cfg.Images.Store == config.ImageStoreBlob {
		blobs, err = sqlite.New(cfg.Database.Path)
		if err != nil {
			slog.Error("failed to open database", "path", cfg.Database.Path, "error", err)
			os.Exit(1)
		}
		defer blobs.Close()

		if err := blobs.Migrate(startCtx); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	var db domain.Database = blobs
	if cfg.Database.MongoURI != "" {
		mdb, err := mongodb.New(startCtx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
		if err != nil {
			slog.Error("failed to connect to mongodb", "error", err)
			os.Exit(1)
		}
		defer mdb.Close()

		if err := mdb.Migrate(startCtx); err != nil {
			slog.Error("failed to create mongodb indexes", "error", err)
			os.Exit(1)
		}
		db = mdb
	}
	slog.Info("credential store ready", "backend", backendName(cfg))

	uploader, err := newUploader(startCtx, cfg, blobs)
	if err != nil {
		slog.Error("failed to configure image host", "error", err)
		os.Exit(1)
	}

	limiter, closeLimiter, err := newLimiter(startCtx, cfg)
	if err != nil {
		slog.Error("failed to configure rate limiter", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, service.SessionTTL)
	authService := service.NewAuthService(db.Users(), tokens, cfg.Auth.BcryptCost)
	profileService := service.NewProfileService(db.Users(), uploader, cfg.Images.MaxBytes)

	deps := handler.Deps{
		Auth:     authService,
		Profiles: profileService,
		Cookie: handler.SessionCookie{
			Secure: !cfg.IsDevelopment(),
			TTL:    tokens.TTL(),
		},
		DB:              db,
		Limiter:         limiter,
		RateLimitWindow: cfg.RateLimit.Window,
		TrustedProxies:  cfg.Server.TrustedProxies,
		// base64 inflates by 4/3; leave room for the JSON envelope.
		MaxImageBody: int64(cfg.Images.MaxBytes)*4/3 + 4096,
	}
	if cfg.Images.Store == config.ImageStoreBlob {
		deps.Files = blobs.FileStore()
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, deps)

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: handler.SecurityHeaders(handler.Chain(mux,
			handler.RequestLogger(),
			handler.CORS(cfg.Server.ClientOrigins),
		)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func backendName(cfg *config.Config) string {
	if cfg.Database.MongoURI != "" {
		return "mongodb"
	}
	return "sqlite"
}

func newUploader(ctx context.Context, cfg *config.Config, blobs *sqlite.DB) (domain.ImageUploader, error) {
	if cfg.Images.Store == config.ImageStoreS3 {
		s3cfg := cfg.Images.S3
		return imagehost.NewS3Uploader(ctx, imagehost.S3Config{
			Endpoint:      s3cfg.Endpoint,
			Region:        s3cfg.Region,
			Bucket:        s3cfg.Bucket,
			AccessKey:     s3cfg.AccessKey,
			SecretKey:     s3cfg.SecretKey,
			PublicBaseURL: s3cfg.PublicBaseURL,
		})
	}
	return imagehost.NewBlobUploader(blobs.FileStore(), cfg.Server.PublicBaseURL), nil
}

// newLimiter returns the Redis-backed limiter when REDIS_ADDR is set so that
// several instances share one budget, and an in-process limiter otherwise.
func newLimiter(ctx context.Context, cfg *config.Config) (service.Limiter, func(), error) {
	rl := cfg.RateLimit
	if cfg.Redis.Addr == "" {
		perSecond := float64(rl.Requests) / rl.Window.Seconds()
		tb := service.NewTokenBucket(perSecond, rl.Requests)
		return tb, tb.Close, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	slog.Info("rate limiter backed by redis", "addr", cfg.Redis.Addr)
	return service.NewRedisLimiter(client, rl.Requests, rl.Window), func() { client.Close() }, nil
}
