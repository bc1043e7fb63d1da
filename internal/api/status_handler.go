package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/auth"
	"github.com/sakhihub/sakhi/internal/connectivity"
	"github.com/sakhihub/sakhi/internal/realtime"
	"github.com/sakhihub/sakhi/internal/status"
	"github.com/sakhihub/sakhi/internal/store"
)

// StatusHandler reports the daemon's runtime state.
type StatusHandler struct {
	profile string
	machine *status.Machine
	monitor *connectivity.Monitor
	rt      *realtime.Client
	auth    *auth.Manager
	db      *store.DB
	logger  *zap.Logger
	started time.Time
}

// NewStatusHandler creates the status handler.
func NewStatusHandler(profileName string, m *status.Machine, mon *connectivity.Monitor, rt *realtime.Client, a *auth.Manager, db *store.DB, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		profile: profileName,
		machine: m,
		monitor: mon,
		rt:      rt,
		auth:    a,
		db:      db,
		logger:  logger.Named("api.status"),
		started: time.Now(),
	}
}

type statusView struct {
	Profile        string         `json:"profile"`
	State          status.State   `json:"state"`
	Online         bool           `json:"online"`
	Realtime       realtime.State `json:"realtime"`
	LoggedIn       bool           `json:"logged_in"`
	UserID         string         `json:"user_id,omitempty"`
	PendingActions int            `json:"pending_actions"`
	Messages       int            `json:"messages"`
	UptimeMs       int64          `json:"uptime_ms"`
}

func (h *StatusHandler) Status(w http.ResponseWriter, _ *http.Request) {
	pending, err := h.db.PendingCount()
	if err != nil {
		h.logger.Warn("pending count failed", zap.Error(err))
	}
	messages, err := h.db.MessageCount()
	if err != nil {
		h.logger.Warn("message count failed", zap.Error(err))
	}

	respondJSON(w, http.StatusOK, statusView{
		Profile:        h.profile,
		State:          h.machine.Current(),
		Online:         h.monitor.IsOnline(),
		Realtime:       h.rt.State(),
		LoggedIn:       h.auth.LoggedIn(),
		UserID:         h.auth.UserID(),
		PendingActions: pending,
		Messages:       messages,
		UptimeMs:       time.Since(h.started).Milliseconds(),
	})
}
