package eval

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/metrics"
	"github.com/kmufti7/insightforge-bi-assistant/internal/pipeline"
)

// Pipeline is the slice of the assistant the harness drives.
type Pipeline interface {
	SubmitQuestion(ctx context.Context, query string) (*pipeline.Answer, error)
}

// CaseResult is the outcome of one evaluation case.
type CaseResult struct {
	Question string `json:"question"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Pass     bool   `json:"pass"`
	Error    string `json:"error,omitempty"`
}

// Report aggregates one evaluation run.
type Report struct {
	RunID    string       `json:"runId"`
	Results  []CaseResult `json:"results"`
	Passed   int          `json:"passed"`
	Accuracy float64      `json:"accuracy"` // percent
	Duration string       `json:"duration"`
}

// Harness runs a fixed case list through the full pipeline and scores the
// answers by case-insensitive containment.
type Harness struct {
	pipeline Pipeline
	cases    []Case
	logger   logger.Logger
}

func NewHarness(p Pipeline, cases []Case, log logger.Logger) *Harness {
	return &Harness{
		pipeline: p,
		cases:    cases,
		logger:   log.With(map[string]interface{}{"component": "eval"}),
	}
}

// Run evaluates every case independently. An errored pipeline call counts
// as a failure for that case, there is no harness-level retry.
func (h *Harness) Run(ctx context.Context) *Report {
	report := &Report{
		RunID:   uuid.NewString(),
		Results: make([]CaseResult, 0, len(h.cases)),
	}

	start := time.Now()
	for _, c := range h.cases {
		result := h.runCase(ctx, c)
		if result.Pass {
			report.Passed++
		}
		report.Results = append(report.Results, result)
	}
	report.Duration = time.Since(start).String()

	if len(report.Results) > 0 {
		report.Accuracy = float64(report.Passed) / float64(len(report.Results)) * 100
	}
	metrics.EvaluationAccuracy.Set(report.Accuracy)

	h.logger.Info("evaluation complete", map[string]interface{}{
		"runId":    report.RunID,
		"cases":    len(report.Results),
		"passed":   report.Passed,
		"accuracy": report.Accuracy,
	})

	return report
}

func (h *Harness) runCase(ctx context.Context, c Case) CaseResult {
	result := CaseResult{
		Question: c.Query,
		Expected: c.Expected,
	}

	answer, err := h.pipeline.SubmitQuestion(ctx, c.Query)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Actual = answer.Text
	result.Pass = strings.Contains(
		strings.ToLower(answer.Text),
		strings.ToLower(c.Expected),
	)
	return result
}
