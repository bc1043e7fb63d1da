package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/gamification"
	"github.com/sakhihub/sakhi/internal/schemes"
)

// SchemeHandler exposes government scheme eligibility checks.
type SchemeHandler struct {
	schemes *schemes.Service
	game    *gamification.Service
	logger  *zap.Logger
}

// NewSchemeHandler creates the scheme handler.
func NewSchemeHandler(s *schemes.Service, g *gamification.Service, logger *zap.Logger) *SchemeHandler {
	return &SchemeHandler{schemes: s, game: g, logger: logger.Named("api.schemes")}
}

func (h *SchemeHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SchemeName string  `json:"scheme_name"`
		Age        int     `json:"age"`
		Income     float64 `json:"income"`
		Residence  string  `json:"residence"`
		Caste      string  `json:"caste"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.SchemeName == "" {
		respondError(w, http.StatusBadRequest, "scheme_name is required")
		return
	}

	verdict := h.schemes.Check(r.Context(), req.SchemeName, schemes.Applicant{
		Age:       req.Age,
		Income:    req.Income,
		Residence: req.Residence,
		Caste:     req.Caste,
	})
	if _, err := h.game.Award(gamification.ActionSchemeCheck); err != nil {
		h.logger.Warn("scheme check award failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, verdict)
}

func (h *SchemeHandler) ListRules(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, schemes.Rules)
}
