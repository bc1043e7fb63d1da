package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/auth"
	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/gamification"
)

// AuthHandler exposes signup, login and profile management.
type AuthHandler struct {
	auth    *auth.Manager
	backend *backend.Client
	game    *gamification.Service
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(a *auth.Manager, b *backend.Client, g *gamification.Service, eb *bus.Bus, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: a, backend: b, game: g, bus: eb, logger: logger.Named("api.auth")}
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string               `json:"token"`
	User  *backend.User        `json:"user"`
	Game  *gamification.Result `json:"game,omitempty"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	tok, err := h.backend.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	h.establishSession(w, r, tok.AccessToken)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	tok, err := h.backend.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	h.establishSession(w, r, tok.AccessToken)
}

// establishSession stores the token, resolves the profile and awards the
// daily-login action.
func (h *AuthHandler) establishSession(w http.ResponseWriter, r *http.Request, token string) {
	// Store the token first so the profile fetch below carries it.
	if err := h.auth.SetSession(token, &backend.User{}); err != nil {
		respondError(w, http.StatusInternalServerError, "persist session: %v", err)
		return
	}
	user, err := h.backend.Me(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	if err := h.auth.SetSession(token, user); err != nil {
		respondError(w, http.StatusInternalServerError, "persist session: %v", err)
		return
	}

	result, err := h.game.Award(gamification.ActionLogin)
	if err != nil {
		h.logger.Warn("login award failed", zap.Error(err))
	}

	h.bus.Publish(bus.Event{Kind: "auth.logged_in", Timestamp: time.Now(), Payload: user.ID})
	respondJSON(w, http.StatusOK, sessionResponse{Token: token, User: user, Game: result})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Server-side invalidation is best effort; the local session always goes.
	if err := h.backend.Logout(r.Context()); err != nil {
		h.logger.Warn("backend logout failed", zap.Error(err))
	}
	if err := h.auth.Clear(); err != nil {
		respondError(w, http.StatusInternalServerError, "clear session: %v", err)
		return
	}
	h.bus.Publish(bus.Event{Kind: "auth.logged_out", Timestamp: time.Now()})
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if !h.auth.LoggedIn() {
		respondError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	// Prefer a fresh profile; fall back to the stored one offline.
	if user, err := h.backend.Me(r.Context()); err == nil {
		_ = h.auth.SetSession(h.auth.Token(), user)
		respondJSON(w, http.StatusOK, user)
		return
	}
	if user := h.auth.User(); user != nil {
		respondJSON(w, http.StatusOK, user)
		return
	}
	respondError(w, http.StatusUnauthorized, "not logged in")
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	user, err := h.backend.UpdateMe(r.Context(), fields)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	_ = h.auth.SetSession(h.auth.Token(), user)
	if _, err := h.game.Award(gamification.ActionProfileUpdate); err != nil {
		h.logger.Warn("profile award failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, user)
}
