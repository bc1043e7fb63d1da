package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/store"
)

// KV keys for the persisted session.
const (
	keyToken = "auth.token"
	keyUser  = "auth.user"
)

// Manager persists the backend session across daemon restarts. The token is
// minted and verified by the backend; locally it is only introspected for
// expiry and the subject claim.
type Manager struct {
	db     *store.DB
	logger *zap.Logger
}

// NewManager creates an auth manager.
func NewManager(db *store.DB, logger *zap.Logger) *Manager {
	return &Manager{db: db, logger: logger.Named("auth")}
}

// SetSession stores the bearer token and user profile.
func (m *Manager) SetSession(token string, user *backend.User) error {
	if err := m.db.SetKV(keyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := m.db.SetKV(keyUser, string(data)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	m.logger.Info("session stored", zap.String("user_id", user.ID))
	return nil
}

// Token returns the stored bearer token, or "" when logged out.
func (m *Manager) Token() string {
	tok, ok, err := m.db.GetKV(keyToken)
	if err != nil || !ok {
		return ""
	}
	return tok
}

// User returns the stored profile, or nil when logged out.
func (m *Manager) User() *backend.User {
	data, ok, err := m.db.GetKV(keyUser)
	if err != nil || !ok {
		return nil
	}
	var u backend.User
	if json.Unmarshal([]byte(data), &u) != nil {
		return nil
	}
	return &u
}

// UserID returns the stored user id, falling back to the token's subject
// claim, or "" when neither is available.
func (m *Manager) UserID() string {
	if u := m.User(); u != nil && u.ID != "" {
		return u.ID
	}
	tok := m.Token()
	if tok == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// Expired reports whether the stored token has an exp claim in the past.
// Tokens without an exp claim never expire locally; the backend still
// rejects them if it disagrees.
func (m *Manager) Expired() bool {
	tok := m.Token()
	if tok == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		// An opaque token is left for the backend to judge.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// LoggedIn reports whether a usable session exists.
func (m *Manager) LoggedIn() bool {
	return m.Token() != "" && !m.Expired()
}

// Clear forgets the stored session.
func (m *Manager) Clear() error {
	if err := m.db.DeleteKV(keyToken); err != nil {
		return err
	}
	return m.db.DeleteKV(keyUser)
}
