package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/gamification"
	"github.com/sakhihub/sakhi/internal/safety"
)

// SafetyHandler exposes the safety circle and SOS alerts.
type SafetyHandler struct {
	safety *safety.Service
	game   *gamification.Service
	logger *zap.Logger
}

// NewSafetyHandler creates the safety handler.
func NewSafetyHandler(s *safety.Service, g *gamification.Service, logger *zap.Logger) *SafetyHandler {
	return &SafetyHandler{safety: s, game: g, logger: logger.Named("api.safety")}
}

func (h *SafetyHandler) ListContacts(w http.ResponseWriter, _ *http.Request) {
	contacts, err := h.safety.Contacts()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list contacts: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

// AddContact adds one contact. Establishing the circle for the first time
// awards the safety-setup action.
func (h *SafetyHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Relation string `json:"relation"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Name == "" || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "name and phone are required")
		return
	}

	existing, err := h.safety.Contacts()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list contacts: %v", err)
		return
	}
	contact, err := h.safety.AddContact(req.Name, req.Phone, req.Relation)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "add contact: %v", err)
		return
	}
	if len(existing) == 0 {
		if _, err := h.game.Award(gamification.ActionSOSSetup); err != nil {
			h.logger.Warn("sos setup award failed", zap.Error(err))
		}
	}
	respondJSON(w, http.StatusCreated, contact)
}

func (h *SafetyHandler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contact id")
		return
	}
	if err := h.safety.RemoveContact(id); err != nil {
		respondError(w, http.StatusInternalServerError, "remove contact: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (h *SafetyHandler) TriggerSOS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Latitude      *float64 `json:"latitude"`
		Longitude     *float64 `json:"longitude"`
		LocationError string   `json:"location_error"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	result, err := h.safety.SendSOS(r.Context(), req.Latitude, req.Longitude, req.LocationError)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "send sos: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *SafetyHandler) History(w http.ResponseWriter, _ *http.Request) {
	events, err := h.safety.History()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sos history: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}
