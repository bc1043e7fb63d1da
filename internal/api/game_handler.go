package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/gamification"
	"github.com/sakhihub/sakhi/internal/store"
)

// GameHandler exposes the gamification profile and point awards.
type GameHandler struct {
	game   *gamification.Service
	logger *zap.Logger
}

// NewGameHandler creates the game handler.
func NewGameHandler(g *gamification.Service, logger *zap.Logger) *GameHandler {
	return &GameHandler{game: g, logger: logger.Named("api.game")}
}

type gameProfileView struct {
	Profile *store.GameProfile   `json:"profile"`
	Badges  []gamification.Badge `json:"badges"`
	Catalog []gamification.Badge `json:"catalog"`
}

func (h *GameHandler) Profile(w http.ResponseWriter, _ *http.Request) {
	profile, badges, err := h.game.Profile()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load profile: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, gameProfileView{
		Profile: profile,
		Badges:  badges,
		Catalog: gamification.Catalog,
	})
}

// Award applies one named action. Unknown actions are counted but award zero
// points, so new client actions degrade gracefully.
func (h *GameHandler) Award(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Action == "" {
		respondError(w, http.StatusBadRequest, "action is required")
		return
	}
	result, err := h.game.Award(req.Action)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "award: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
