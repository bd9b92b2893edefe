package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"lawchain/api/internal/advisor"
	"lawchain/api/internal/app"
	"lawchain/api/internal/config"
	"lawchain/api/internal/metrics"
	"lawchain/api/internal/notify"
	"lawchain/api/internal/ratelimit"
	"lawchain/api/internal/search"
	"lawchain/api/internal/store"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Env != "production" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)

	advisorClient := advisor.NewClient(advisor.Config{
		APIKey:  cfg.GroqAPIKey,
		BaseURL: cfg.GroqBaseURL,
		Model:   cfg.GroqModel,
	})
	if !advisorClient.IsConfigured() {
		logger.Warn().Msg("GROQ_API_KEY not set, AI endpoints will report provider failures")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		logger.Info().Str("url", cfg.MeiliURL).Msg("Meilisearch enabled for case search")
	}
	searchService := search.NewService(meiliClient, dataStore, logger)
	if meiliClient != nil {
		go func() {
			cases, err := dataStore.ListCases(context.Background())
			if err != nil {
				logger.Warn().Err(err).Msg("startup reindex skipped")
				return
			}
			searchService.ReindexAll(cases)
		}()
	}

	var limiter ratelimit.Limiter
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisLimiter, err := ratelimit.NewRedis(cfg.RedisURL, cfg.AIRateRPS, cfg.AIRateBurst, time.Minute)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		logger.Info().Msg("using Redis rate limiter for AI endpoints")
	} else {
		limiter = ratelimit.NewMemory(cfg.AIRateRPS, cfg.AIRateBurst)
	}

	notifyService := notify.NewService(notify.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !notifyService.IsConfigured() {
		logger.Info().Msg("SMTP not configured, hearing notifications disabled")
	}

	service := app.New(cfg, dataStore, advisorClient, searchService, notifyService, logger)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, limiter, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpServer.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("LawChain API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
