package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightforge_questions_total",
			Help: "Total number of questions processed by outcome",
		},
		[]string{"outcome"},
	)

	QuestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "insightforge_question_duration_seconds",
			Help: "End to end question processing duration in seconds",
		},
		[]string{"outcome"},
	)

	RetrieverRuleHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightforge_retriever_rule_hits_total",
			Help: "Retriever rule matches by rule name",
		},
		[]string{"rule"},
	)

	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightforge_generation_requests_total",
			Help: "Answer generator calls by status",
		},
		[]string{"status"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "insightforge_generation_duration_seconds",
			Help: "Answer generator call duration in seconds",
		},
	)

	EvaluationAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insightforge_evaluation_accuracy_percent",
			Help: "Accuracy of the most recent evaluation run",
		},
	)
)
