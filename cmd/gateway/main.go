package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rbent/api-gateway/internal/gateway/handlers"
	"github.com/rbent/api-gateway/internal/gateway/providers"
	"github.com/rbent/api-gateway/internal/gateway/proxy"
	"github.com/rbent/api-gateway/internal/gateway/ratelimit"
	"github.com/rbent/api-gateway/internal/googleauth"
	"github.com/rbent/api-gateway/internal/shared/config"
	"github.com/rbent/api-gateway/internal/shared/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DatabasePath).Msg("request log store unavailable")
		st = nil
	} else {
		defer st.Close()
	}

	var google *handlers.GoogleClients
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" && cfg.GoogleRefreshToken != "" {
		auth := googleauth.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken)
		google, err = handlers.NewGoogleClients(context.Background(), auth)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create google clients")
		}
	} else {
		log.Warn().Msg("google credentials not configured; google routes disabled")
	}

	var anthropic, openrouter providers.Provider
	if cfg.AnthropicAPIKey != "" {
		anthropic = providers.NewAnthropicProvider(cfg.AnthropicAPIKey)
	}
	if cfg.OpenRouterAPIKey != "" {
		openrouter = providers.NewOpenRouterProvider(cfg.OpenRouterAPIKey)
	}
	manager := providers.NewManager(anthropic, openrouter)

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:  cfg,
		Store:   st,
		Google:  google,
		Manager: manager,
		Limiter: ratelimit.PerMinute(cfg.AIRateLimitPerMinute),
		KB:      proxy.New(cfg.KBServiceURL, cfg.KBServiceKey, time.Duration(cfg.KBTimeoutSeconds)*time.Second),
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 60 * time.Second,
		// WriteTimeout stays zero so AI streams are never cut mid-response.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("gateway stopped")
}
