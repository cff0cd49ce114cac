// Package handlers provides HTTP handlers for scenario scoring.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/modules/scenarios"
)

// Handler handles scenario HTTP requests
type Handler struct {
	service *scenarios.Service
	log     zerolog.Logger
}

// NewHandler creates a new scenario handler
func NewHandler(service *scenarios.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "scenarios").Logger(),
	}
}

// ScoresRequest is the body of a scores-by-analog request
type ScoresRequest struct {
	AnalogID string `json:"analogId"`
	Version  int    `json:"version,omitempty"`
}

// ScoresResponse is the body of a successful scores-by-analog response
type ScoresResponse struct {
	Success       bool                 `json:"success"`
	Portfolios    []domain.ScoreResult `json:"portfolios"`
	AnalogName    string               `json:"analogName"`
	AnalogPeriod  string               `json:"analogPeriod"`
	Source        string               `json:"source"`
	ComputeTimeMs int64                `json:"computeTimeMs"`
}

// HandleScoresByAnalog returns every portfolio score for one analog
func (h *Handler) HandleScoresByAnalog(w http.ResponseWriter, r *http.Request) {
	var req ScoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.AnalogID = strings.TrimSpace(req.AnalogID)
	if req.AnalogID == "" {
		h.writeError(w, http.StatusBadRequest, "analogId is required")
		return
	}

	scores, err := h.service.GetScoresForAnalog(r.Context(), req.AnalogID, req.Version)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAnalog) {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown analog: %s", req.AnalogID))
			return
		}
		h.log.Error().Err(err).Str("analog", req.AnalogID).Msg("Failed to get scenario scores")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, ScoresResponse{
		Success:       true,
		Portfolios:    scores.Portfolios,
		AnalogName:    scores.Analog.Name,
		AnalogPeriod:  scores.Analog.DateRange.String(),
		Source:        scores.Source,
		ComputeTimeMs: scores.ComputeTime.Milliseconds(),
	})
}

// HandleCacheStatus reports cache completeness for the current version
func (h *Handler) HandleCacheStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CacheStatus(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get cache status")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"status":          status.Status,
		"currentVersion":  status.CurrentVersion,
		"totalEntries":    status.TotalEntries,
		"expectedEntries": status.ExpectedEntries,
		"analogs":         status.Analogs,
		"statistics":      status.Statistics,
		"lastRun":         status.LastRun,
	})
}

// HandleClearCache deletes every cached score
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.ClearCache(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to clear scenario cache")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Cleared %d cached scores", deleted),
	})
}

type analogView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Period      string `json:"period"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// HandleGetAnalogs lists every registered analog
func (h *Handler) HandleGetAnalogs(w http.ResponseWriter, r *http.Request) {
	all := h.service.ListAnalogs()
	views := make([]analogView, 0, len(all))
	for _, a := range all {
		views = append(views, analogView{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Period:      a.DateRange.String(),
			Start:       a.DateRange.Start.Format("2006-01-02"),
			End:         a.DateRange.End.Format("2006-01-02"),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"analogs": views,
	})
}

// HandleGetPortfolios lists the scored portfolios and the benchmark
func (h *Handler) HandleGetPortfolios(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.ListPortfolios(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"portfolios": listing.Portfolios,
		"benchmark":  listing.Benchmark,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError sends {success: false, message}. "error" carries the same text
// for older clients.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
		"error":   message,
	})
}
