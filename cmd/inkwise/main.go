package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"inkwise/internal/app"
	"inkwise/internal/config"
	"inkwise/internal/server"
	"inkwise/internal/util"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:     cfg.DatabaseURL,
		SessionStrategy: cfg.SessionStrategy,
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		JWTSecret:       cfg.JWTSecret,
		SessionTTL:      sessionTTL,
		AIProvider:      cfg.AIProvider,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		AIBaseURL:       cfg.AIBaseURL,
		AIAPIKey:        cfg.AIAPIKey,
		GenerationModel: cfg.GenerationModel,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App:       appCore,
		CookieTTL: sessionTTL,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("inkwise server listening",
		"addr", addr,
		"generation_enabled", appCore.GenerationEnabled(),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
