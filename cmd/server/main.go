// The local development server, standing in for the serverless platform the
// handler normally runs on.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"portfolio-chat/internal/config"
	"portfolio-chat/internal/httpapi"
	"portfolio-chat/internal/integrations/gemini"
	"portfolio-chat/internal/integrations/ntfy"
	"portfolio-chat/internal/ratelimit"
	"portfolio-chat/internal/usecase"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; chat requests will fail with a configuration error")
	}

	limiter := ratelimit.NewMemory(ratelimit.DefaultSweepInterval)
	limiter.Start()
	defer limiter.Stop()

	geminiClient := gemini.NewClient(cfg.GeminiAPIKey)
	var selector gemini.Selector = gemini.Static{Name: cfg.GeminiModel}
	if cfg.GeminiModelDiscovery {
		selector = gemini.NewDiscovery(geminiClient, cfg.GeminiModel, logger)
	}
	notifier := ntfy.NewClient(cfg.NtfyTopic, ntfy.WithLogger(logger))

	svc, err := usecase.NewChatService(geminiClient, selector, notifier, limiter, logger,
		usecase.WithRateLimit(cfg.RateLimitMaxRequests, cfg.RateLimitWindow),
	)
	if err != nil {
		logger.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	chatHandler, err := httpapi.NewHandler(svc, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	// All methods route to the handler; it answers non-POST with the JSON
	// 405 body the browser widget expects.
	r.Handle("/api/chat", chatHandler)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}
