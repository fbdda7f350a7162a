package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/metrics"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/observability"
	"github.com/kmufti7/insightforge-bi-assistant/internal/dataset"
	"github.com/kmufti7/insightforge-bi-assistant/internal/llm"
	"github.com/kmufti7/insightforge-bi-assistant/internal/prompt"
	"github.com/kmufti7/insightforge-bi-assistant/internal/retriever"
)

// Answer is the result of one question run through the pipeline.
type Answer struct {
	RequestID    string   `json:"requestId"`
	Question     string   `json:"question"`
	Text         string   `json:"answer"`
	MatchedRules []string `json:"matchedRules,omitempty"`
}

// Assistant wires retrieve -> assemble -> generate. Strictly linear and
// synchronous, one invocation per user action.
type Assistant struct {
	data      *dataset.Dataset
	stats     *dataset.Stats
	retriever *retriever.Retriever
	assembler *prompt.Assembler
	generator llm.Generator
	logger    logger.Logger
	obs       *observability.Observability
}

func NewAssistant(
	data *dataset.Dataset,
	stats *dataset.Stats,
	ret *retriever.Retriever,
	generator llm.Generator,
	log logger.Logger,
	obs *observability.Observability,
) *Assistant {
	return &Assistant{
		data:      data,
		stats:     stats,
		retriever: ret,
		assembler: prompt.NewAssembler(),
		generator: generator,
		logger:    log.With(map[string]interface{}{"component": "pipeline"}),
		obs:       obs,
	}
}

// Stats exposes the precomputed aggregates for the dashboard.
func (a *Assistant) Stats() *dataset.Stats {
	return a.stats
}

// Dataset exposes the loaded table, read-only.
func (a *Assistant) Dataset() *dataset.Dataset {
	return a.data
}

// SubmitQuestion runs the full pipeline for one query. Generation failures
// get one retry with backoff, everything else propagates immediately.
func (a *Assistant) SubmitQuestion(ctx context.Context, query string) (*Answer, error) {
	requestID := uuid.NewString()
	log := a.logger.With(map[string]interface{}{"requestId": requestID})

	start := time.Now()
	answer, err := a.run(ctx, requestID, query, log)
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.CodeOf(err))
	}

	metrics.QuestionsTotal.WithLabelValues(outcome).Inc()
	metrics.QuestionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if a.obs != nil {
		a.obs.RecordQuestion(ctx, outcome)
		a.obs.RecordQuestionDuration(ctx, time.Since(start), outcome)
	}

	return answer, err
}

func (a *Assistant) run(ctx context.Context, requestID, query string, log logger.Logger) (*Answer, error) {
	if a.data.Len() == 0 || a.stats == nil {
		return nil, apperrors.NewDataUnavailableError("assistant started without a dataset")
	}

	excerpt, err := a.retriever.Retrieve(query)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(excerpt.Text) == "" {
		// The retriever fallback makes this unreachable, a hit means the
		// rule table regressed.
		return nil, apperrors.NewEmptyExcerptError(query)
	}

	p := llm.Prompt{
		System: a.assembler.System(),
		User:   a.assembler.User(excerpt.Text, query),
	}

	text, err := a.generate(ctx, p, log)
	if err != nil {
		log.WithError(err).Error("question failed", map[string]interface{}{
			"question": query,
		})
		return nil, err
	}

	log.Info("question answered", map[string]interface{}{
		"rules":       excerpt.MatchedRules,
		"answerChars": len(text),
	})

	return &Answer{
		RequestID:    requestID,
		Question:     query,
		Text:         text,
		MatchedRules: excerpt.MatchedRules,
	}, nil
}

func (a *Assistant) generate(ctx context.Context, p llm.Prompt, log logger.Logger) (string, error) {
	text, err := a.generator.Generate(ctx, p)
	if err == nil {
		return text, nil
	}

	retries := apperrors.GetRetryCount(apperrors.CodeOf(err))
	for attempt := 1; attempt <= retries; attempt++ {
		if ctx.Err() != nil {
			break
		}

		backoff := time.Duration(250*(1<<(attempt-1))) * time.Millisecond
		log.WithError(err).Warn("generation failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"backoff": backoff.String(),
		})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", err
		}

		text, err = a.generator.Generate(ctx, p)
		if err == nil {
			return text, nil
		}
	}

	return "", err
}
