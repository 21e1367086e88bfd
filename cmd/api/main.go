package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stackforge/internal/artifactstore"
	"stackforge/internal/contract"
	"stackforge/internal/coordinator"
	"stackforge/internal/docs"
	"stackforge/internal/events"
	"stackforge/internal/gateway/config"
	"stackforge/internal/gateway/handler"
	"stackforge/internal/gateway/server"
	"stackforge/internal/llm"
	"stackforge/internal/llmclient"
	"stackforge/internal/pipeline"
	"stackforge/internal/session"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx := context.Background()

	contractStore, err := buildContractStore(cfg)
	if err != nil {
		logger.Fatalf("contract store: %v", err)
	}
	registry := contract.NewRegistry(contractStore, logger)
	if err := registry.Restore(); err != nil {
		logger.Printf("contract restore: %v (starting empty)", err)
	}

	artifacts, err := buildArtifactStore(cfg)
	if err != nil {
		logger.Fatalf("artifact store: %v", err)
	}

	bus := events.NewChannel(logger)

	oracle, err := buildOracle(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("oracle: %v", err)
	}
	defer oracle.Close()

	sessions, err := session.NewStore()
	if err != nil {
		logger.Fatalf("session store: %v", err)
	}

	pipe := &pipeline.Pipeline{
		LLM:         oracle,
		Registry:    registry,
		Events:      bus,
		Coordinator: coordinator.New(bus, registry, cfg.QualityTarget, cfg.MaxCycles, logger),
		Artifacts:   artifacts,
		Docs:        docs.NewManager(cfg.ProjectDir, logger),
		Target:      cfg.QualityTarget,
		MaxCycles:   cfg.MaxCycles,
		TokenBudget: cfg.TokenBudget,
		Logger:      logger,
	}

	h := &handler.Handler{
		Pipeline:  pipe,
		Sessions:  sessions,
		Events:    bus,
		Artifacts: artifacts,
		Registry:  registry,
		Logger:    logger,
	}

	srv := server.New(":"+cfg.Port, h.Routes())

	go func() {
		logger.Printf("listening on :%s (env=%s, oracle=%s)", cfg.Port, cfg.AppEnv, oracle.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Println("shutting down")
	if err := server.Shutdown(srv, 5*time.Second); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func buildContractStore(cfg config.Config) (contract.Store, error) {
	if cfg.ContractDSN != "" {
		return contract.NewPostgresStore(cfg.ContractDSN)
	}
	return contract.NewFileStore(cfg.ContractDir)
}

func buildArtifactStore(cfg config.Config) (artifactstore.Store, error) {
	if cfg.S3.Endpoint != "" {
		return artifactstore.NewS3Store(artifactstore.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
	}
	return artifactstore.NewFileStore(cfg.ProjectDir)
}

func buildOracle(ctx context.Context, cfg config.Config, logger *log.Logger) (llmclient.LLMClient, error) {
	var base llmclient.LLMClient
	switch cfg.Oracle.Provider {
	case "fake":
		base = llm.NewFakeClient()
	default:
		cli, err := llmclient.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Oracle.Model, cfg.Oracle.TokenCap)
		if err != nil {
			return nil, err
		}
		base = cli
	}

	return llm.Chain(base,
		llm.WithLogging(logger),
		llm.Retry(cfg.Oracle.MaxAttempts, 500*time.Millisecond),
		llm.RateLimit(cfg.Oracle.RPS, cfg.Oracle.Burst),
	), nil
}
