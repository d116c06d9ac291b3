package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/report"
	"github.com/ekaya-inc/ekaya-relate/pkg/services"
)

// maxRequestBody caps analysis request bodies. Source configs are small.
const maxRequestBody = 1 << 20

// AnalyzeRequest is the body of POST /api/analyze and POST /api/profile.
type AnalyzeRequest struct {
	SourceType    string         `json:"source_type"`
	Config        map[string]any `json:"config"`
	MinConfidence float64        `json:"min_confidence,omitempty"`
	Tier          string         `json:"tier,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	Profiles      bool           `json:"include_profiles,omitempty"`
}

func (r *AnalyzeRequest) validate() error {
	if r.SourceType == "" {
		return fmt.Errorf("source_type is required")
	}
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1")
	}
	if r.Tier != "" && !models.IsValidConfidenceTier(models.ConfidenceTier(r.Tier)) {
		return fmt.Errorf("tier must be high, medium or low")
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}

// AnalysisHandler serves the relationship inference REST API.
type AnalysisHandler struct {
	analysis services.AnalysisService
	tiers    models.TierThresholds
	logger   *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysis services.AnalysisService, tiers models.TierThresholds, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		tiers:    tiers,
		logger:   logger,
	}
}

// RegisterRoutes registers the API routes under /api.
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/sources", h.ListSources)
		r.Post("/analyze", h.Analyze)
		r.Post("/profile", h.Profile)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
	})
}

// ListSources handles GET /api/sources.
func (h *AnalysisHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, map[string]any{"source_types": h.analysis.SourceTypes()}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Analyze handles POST /api/analyze.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.analysis.Analyze(r.Context(), services.AnalysisRequest{SourceType: req.SourceType, Config: req.Config}, nil)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	doc := report.Build(result, report.Options{
		Tiers:         h.tiers,
		MinConfidence: req.MinConfidence,
		Tier:          models.ConfidenceTier(req.Tier),
		Limit:         req.Limit,
		Profiles:      req.Profiles,
	})
	if err := WriteReport(w, r, doc); err != nil {
		h.logger.Error("Failed to encode analysis report", zap.Error(err))
	}
}

// Profile handles POST /api/profile.
func (h *AnalysisHandler) Profile(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.analysis.Profile(r.Context(), services.AnalysisRequest{SourceType: req.SourceType, Config: req.Config})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if err := WriteReport(w, r, report.BuildProfile(result)); err != nil {
		h.logger.Error("Failed to encode profile report", zap.Error(err))
	}
}

// ListRuns handles GET /api/runs?limit=N.
func (h *AnalysisHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.analysis.ListRuns(r.Context(), min(queryInt(r, "limit", 20), 100))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if runs == nil {
		runs = []*models.AnalysisRun{}
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"runs": runs}); err != nil {
		h.logger.Error("Failed to encode runs", zap.Error(err))
	}
}

// GetRun handles GET /api/runs/{id}.
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := ParseRunID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.analysis.GetRun(r.Context(), runID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if err := WriteReport(w, r, report.Build(result, report.Options{Tiers: h.tiers})); err != nil {
		h.logger.Error("Failed to encode analysis report", zap.Error(err))
	}
}

func (h *AnalysisHandler) decode(w http.ResponseWriter, r *http.Request) (*AnalyzeRequest, bool) {
	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	if err := req.validate(); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return &req, true
}
