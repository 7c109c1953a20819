package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
)

type EmotionStatsResponse struct {
	Success  bool                  `json:"success"`
	Emotions map[string]int        `json:"emotions"`
	Counts   []models.EmotionCount `json:"counts"`
}

type PeopleStatsResponse struct {
	Success bool                `json:"success"`
	People  []models.PersonStat `json:"people"`
}

// AnalyticsHandler serves the dashboard aggregates. Both endpoints accept
// optional from/to bounds.
type AnalyticsHandler struct {
	analytics *services.Analytics
	logger    *log.Logger
}

func NewAnalyticsHandler(analytics *services.Analytics, logger *log.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

func (h *AnalyticsHandler) Emotions(w http.ResponseWriter, r *http.Request) {
	q, err := dateRangeQuery(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	counts, err := h.analytics.EmotionStatsFor(r.Context(), middleware.UserID(r.Context()), q)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EmotionStatsResponse{
		Success:  true,
		Emotions: counts,
		Counts:   services.SortedEmotionCounts(counts),
	})
}

func (h *AnalyticsHandler) People(w http.ResponseWriter, r *http.Request) {
	q, err := dateRangeQuery(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	people, err := h.analytics.PeopleStatsFor(r.Context(), middleware.UserID(r.Context()), q)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PeopleStatsResponse{Success: true, People: people})
}
