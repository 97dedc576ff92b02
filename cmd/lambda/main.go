package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-chat/handler"
	"portfolio-chat/internal/config"
	"portfolio-chat/internal/integrations/gemini"
	"portfolio-chat/internal/integrations/ntfy"
	"portfolio-chat/internal/integrations/paramstore"
	"portfolio-chat/internal/ratelimit"
	"portfolio-chat/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()

	// ---- AWS SDK config (only when an AWS-backed component is enabled) ----
	needsAWS := cfg.RateLimitTable != "" || cfg.ParamPrefix != ""
	var ssmGetter *paramstore.Client
	var limiter ratelimit.Limiter

	if needsAWS {
		sdkCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		if cfg.ParamPrefix != "" {
			ssmGetter, err = paramstore.New(awsssm.NewFromConfig(sdkCfg))
			if err != nil {
				logger.Error("failed to create SSM client", "err", err)
				os.Exit(1)
			}
		}
		if cfg.RateLimitTable != "" {
			limiter, err = ratelimit.NewDynamo(awsdynamodb.NewFromConfig(sdkCfg), cfg.RateLimitTable)
			if err != nil {
				logger.Error("failed to create rate limiter", "err", err)
				os.Exit(1)
			}
		}
	}
	if limiter == nil {
		mem := ratelimit.NewMemory(ratelimit.DefaultSweepInterval)
		mem.Start()
		limiter = mem
	}

	// ---- Clients ----
	geminiOpts := []gemini.Option{}
	if ssmGetter != nil {
		geminiOpts = append(geminiOpts, gemini.WithParamStore(ssmGetter, cfg.ParamPrefix+"/gemini_api_key"))
	}
	geminiClient := gemini.NewClient(cfg.GeminiAPIKey, geminiOpts...)

	var selector gemini.Selector = gemini.Static{Name: cfg.GeminiModel}
	if cfg.GeminiModelDiscovery {
		selector = gemini.NewDiscovery(geminiClient, cfg.GeminiModel, logger)
	}

	notifier := ntfy.NewClient(cfg.NtfyTopic, ntfy.WithLogger(logger))

	// ---- Service & handler ----
	svcOpts := []usecase.Option{
		usecase.WithRateLimit(cfg.RateLimitMaxRequests, cfg.RateLimitWindow),
	}
	if ssmGetter != nil {
		svcOpts = append(svcOpts, usecase.WithParamStore(ssmGetter, cfg.ParamPrefix))
	}
	svc, err := usecase.NewChatService(geminiClient, selector, notifier, limiter, logger, svcOpts...)
	if err != nil {
		logger.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(svc, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
