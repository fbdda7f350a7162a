// cmd/tools/evaluate/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kmufti7/insightforge-bi-assistant/internal/common/config"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/dataset"
	"github.com/kmufti7/insightforge-bi-assistant/internal/eval"
	"github.com/kmufti7/insightforge-bi-assistant/internal/llm"
	"github.com/kmufti7/insightforge-bi-assistant/internal/pipeline"
	"github.com/kmufti7/insightforge-bi-assistant/internal/retriever"
)

func main() {
	casesPath := flag.String("cases", "", "Path to evaluation cases JSON (default: config value, then built-in set)")
	threshold := flag.Float64("threshold", -1, "Minimum accuracy percent for a zero exit code (default: config value)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	data, err := dataset.Load(cfg.Dataset.Path, cfg.Dataset.DateFormat)
	if err != nil {
		zapLog.Fatal("dataset load failed", zap.Error(err))
	}
	stats := dataset.ComputeStats(data)
	if stats == nil {
		zapLog.Fatal("dataset is empty", zap.String("path", cfg.Dataset.Path))
	}

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

	assistant := pipeline.NewAssistant(data, stats, ret, generator, log, nil)

	path := *casesPath
	if path == "" {
		path = cfg.Evaluation.CasesPath
	}
	cases, err := eval.LoadCases(path)
	if err != nil {
		zapLog.Warn("evaluation cases not loaded, using built-in set", zap.Error(err))
		cases = eval.DefaultCases(stats)
	}

	report := eval.NewHarness(assistant, cases, log).Run(context.Background())

	for _, r := range report.Results {
		status := "FAIL"
		if r.Pass {
			status = "PASS"
		}
		fmt.Printf("[%s] %s\n", status, r.Question)
		fmt.Printf("       expected: %s\n", r.Expected)
		if r.Error != "" {
			fmt.Printf("       error:    %s\n", r.Error)
			continue
		}
		actual := r.Actual
		if len(actual) > 150 {
			actual = actual[:150] + "..."
		}
		fmt.Printf("       actual:   %s\n", actual)
	}
	fmt.Printf("\nAccuracy: %.0f%% (%d/%d passed) in %s\n",
		report.Accuracy, report.Passed, len(report.Results), report.Duration)

	min := *threshold
	if min < 0 {
		min = cfg.Evaluation.AccuracyThreshold
	}
	if report.Accuracy < min {
		fmt.Printf("Accuracy below threshold of %.0f%%\n", min)
		os.Exit(1)
	}
}
