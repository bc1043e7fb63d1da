package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/gamification"
	"github.com/sakhihub/sakhi/internal/health"
)

// HealthHandler exposes cycle tracking and the health-bot conversations.
type HealthHandler struct {
	health *health.Service
	game   *gamification.Service
	logger *zap.Logger
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(s *health.Service, g *gamification.Service, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{health: s, game: g, logger: logger.Named("api.health")}
}

func (h *HealthHandler) ListCycleDates(w http.ResponseWriter, _ *http.Request) {
	dates, err := h.health.CycleDates()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list dates: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, dates)
}

func (h *HealthHandler) AddCycleDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if err := h.health.RecordCycleDate(req.Date); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"date": req.Date})
}

func (h *HealthHandler) RemoveCycleDate(w http.ResponseWriter, r *http.Request) {
	if err := h.health.RemoveCycleDate(chi.URLParam(r, "date")); err != nil {
		respondError(w, http.StatusInternalServerError, "remove date: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// Prediction returns the next-period outlook, or null when there is not
// enough history.
func (h *HealthHandler) Prediction(w http.ResponseWriter, _ *http.Request) {
	p, err := h.health.Predict()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "predict: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *HealthHandler) BotChat(w http.ResponseWriter, r *http.Request) {
	bot := chi.URLParam(r, "bot")
	var req backend.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.UserMessage == "" {
		respondError(w, http.StatusBadRequest, "user_message is required")
		return
	}
	resp, err := h.health.Ask(r.Context(), bot, &req)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	if _, err := h.game.Award(gamification.ActionHealthQuery); err != nil {
		h.logger.Warn("health query award failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) BotHistory(w http.ResponseWriter, r *http.Request) {
	log, err := h.health.History(chi.URLParam(r, "bot"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "bot history: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, log)
}

func (h *HealthHandler) ClearBotHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.health.ClearHistory(chi.URLParam(r, "bot")); err != nil {
		respondError(w, http.StatusInternalServerError, "clear history: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
