package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/dataset"
	"github.com/kmufti7/insightforge-bi-assistant/internal/eval"
	"github.com/kmufti7/insightforge-bi-assistant/internal/pipeline"
)

const histogramBins = 20

// Server exposes the chat, dashboard and evaluation surfaces as a JSON API.
type Server struct {
	assistant *pipeline.Assistant
	harness   *eval.Harness
	logger    logger.Logger
}

func New(assistant *pipeline.Assistant, harness *eval.Harness, log logger.Logger) *Server {
	return &Server{
		assistant: assistant,
		harness:   harness,
		logger:    log.With(map[string]interface{}{"component": "server"}),
	}
}

// Routes builds the HTTP mux, metrics endpoint included.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/evaluation/run", s.handleEvaluationRun)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type chatRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "BAD_REQUEST",
			Message: "request body must be JSON with a question field",
		}})
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "BAD_REQUEST",
			Message: "question must not be empty",
		}})
		return
	}

	answer, err := s.assistant.SubmitQuestion(r.Context(), req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, answer)
}

type dashboardResponse struct {
	TotalRevenue          float64                `json:"totalRevenue"`
	AverageTransaction    float64                `json:"averageTransaction"`
	MedianSales           float64                `json:"medianSales"`
	AvgCustomerAge        float64                `json:"avgCustomerAge"`
	AvgSatisfaction       float64                `json:"avgSatisfaction"`
	Transactions          int                    `json:"transactions"`
	BestSellingProduct    string                 `json:"bestSellingProduct"`
	SalesByProduct        map[string]float64     `json:"salesByProduct"`
	SalesByRegion         map[string]float64     `json:"salesByRegion"`
	MonthlyTrend          []dataset.MonthlySales `json:"monthlyTrend"`
	AgeHistogram          []dataset.HistogramBin `json:"ageHistogram"`
	SatisfactionHistogram []dataset.HistogramBin `json:"satisfactionHistogram"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.assistant.Stats()
	if stats == nil {
		s.writeError(w, apperrors.NewDataUnavailableError("dashboard requested before dataset load"))
		return
	}

	data := s.assistant.Dataset()
	s.writeJSON(w, http.StatusOK, dashboardResponse{
		TotalRevenue:          stats.TotalRevenue,
		AverageTransaction:    stats.AverageTransaction,
		MedianSales:           stats.MedianSales,
		AvgCustomerAge:        stats.AvgCustomerAge,
		AvgSatisfaction:       stats.AvgSatisfaction,
		Transactions:          stats.TransactionCount,
		BestSellingProduct:    stats.BestSellingProduct,
		SalesByProduct:        stats.SalesByProduct,
		SalesByRegion:         stats.SalesByRegion,
		MonthlyTrend:          stats.MonthlyTrend,
		AgeHistogram:          data.AgeHistogram(histogramBins),
		SatisfactionHistogram: data.SatisfactionHistogram(histogramBins),
	})
}

func (s *Server) handleEvaluationRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := s.harness.Run(r.Context())
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.assistant.Dataset().Len() == 0 {
		status = "dataset unavailable"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status": status,
		"rows":   s.assistant.Dataset().Len(),
	})
}

// writeError maps the error taxonomy onto HTTP statuses: missing data is a
// setup problem (503), failed generation is a retryable upstream error (502).
func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)

	code := http.StatusInternalServerError
	switch stdErr.Code {
	case apperrors.ErrCodeDataUnavailable, apperrors.ErrCodeDataLoadFailed:
		code = http.StatusServiceUnavailable
	case apperrors.ErrCodeGenerationFailed, apperrors.ErrCodeGenerationTimeout:
		code = http.StatusBadGateway
	}

	s.logger.WithError(err).Error("request failed", map[string]interface{}{
		"errorCode": stdErr.Code,
		"status":    code,
	})

	s.writeJSON(w, code, errorResponse{Error: errorBody{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Retryable: stdErr.Retryable,
	}})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("response encode failed", nil)
	}
}
