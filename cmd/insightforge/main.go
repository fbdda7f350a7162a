package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kmufti7/insightforge-bi-assistant/internal/common/config"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/observability"
	"github.com/kmufti7/insightforge-bi-assistant/internal/dataset"
	"github.com/kmufti7/insightforge-bi-assistant/internal/eval"
	"github.com/kmufti7/insightforge-bi-assistant/internal/llm"
	"github.com/kmufti7/insightforge-bi-assistant/internal/pipeline"
	"github.com/kmufti7/insightforge-bi-assistant/internal/retriever"
	"github.com/kmufti7/insightforge-bi-assistant/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting insightforge",
		zap.String("environment", cfg.App.Environment),
		zap.String("dataset", cfg.Dataset.Path),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Load the dataset once, fatal on any malformed content ---
	data, err := dataset.Load(cfg.Dataset.Path, cfg.Dataset.DateFormat)
	if err != nil {
		zapLog.Fatal("dataset load failed", zap.Error(err))
	}
	stats := dataset.ComputeStats(data)
	if stats == nil {
		zapLog.Fatal("dataset is empty", zap.String("path", cfg.Dataset.Path))
	}
	zapLog.Info("dataset loaded",
		zap.Int("rows", data.Len()),
		zap.Int("products", len(data.Products())),
		zap.Int("regions", len(data.Regions())),
	)

	// --- Assemble the pipeline ---
	ret := retriever.New(retriever.Config{
		MaxRows:      cfg.Retriever.MaxRows,
		MaxChars:     cfg.Retriever.MaxChars,
		TrendMonths:  cfg.Retriever.TrendMonths,
		FallbackTopN: cfg.Retriever.FallbackTopN,
	}, data, stats, log)

	generator := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.OpenAI.BaseURL,
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     time.Duration(cfg.OpenAI.Timeout) * time.Millisecond,
		MaxRetries:  cfg.OpenAI.MaxRetries,
	}, log)

	assistant := pipeline.NewAssistant(data, stats, ret, generator, log, obs)

	cases, err := eval.LoadCases(cfg.Evaluation.CasesPath)
	if err != nil {
		zapLog.Warn("evaluation cases not loaded, using built-in set", zap.Error(err))
		cases = eval.DefaultCases(stats)
	}
	harness := eval.NewHarness(assistant, cases, log)

	// --- HTTP API ---
	api := server.New(assistant, harness, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("shutdown signal received, stopping server")
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}

	zapLog.Info("insightforge stopped")
}
