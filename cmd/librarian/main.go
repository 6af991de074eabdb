package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"librarian/internal/app"
	"librarian/internal/config"
	"librarian/internal/ratelimit"
	"librarian/internal/server"
	"librarian/internal/token"
	"librarian/internal/util"
	"librarian/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token ttl: %v", err)
	}
	codec, err := token.NewCodec(cfg.SecretKey, tokenTTL)
	if err != nil {
		log.Fatalf("failed to init token codec: %v", err)
	}

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:    st,
		Tokens:   codec,
		PageSize: cfg.PageSize,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.AuthRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "", cfg.AuthRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{
		App:         appCore,
		Tokens:      codec,
		AuthLimiter: limiter,
		TrustProxy:  cfg.TrustProxy,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("librarian server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
