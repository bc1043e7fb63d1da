package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/store"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewManager(db, zap.NewNop())
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestSessionRoundTrip(t *testing.T) {
	m := testManager(t)

	if m.Token() != "" || m.User() != nil {
		t.Fatal("fresh manager should have no session")
	}

	tok := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	if err := m.SetSession(tok, &backend.User{ID: "u1", Name: "Meera"}); err != nil {
		t.Fatal(err)
	}

	if m.Token() != tok {
		t.Error("token not persisted")
	}
	if u := m.User(); u == nil || u.Name != "Meera" {
		t.Errorf("user = %v", u)
	}
	if m.UserID() != "u1" {
		t.Errorf("user id = %q", m.UserID())
	}
	if !m.LoggedIn() {
		t.Error("LoggedIn = false with fresh token")
	}

	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}
	if m.LoggedIn() {
		t.Error("LoggedIn = true after Clear")
	}
}

func TestExpiry(t *testing.T) {
	m := testManager(t)

	expired := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	if err := m.SetSession(expired, &backend.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if !m.Expired() {
		t.Error("Expired = false for past exp claim")
	}
	if m.LoggedIn() {
		t.Error("LoggedIn = true with expired token")
	}

	// No exp claim: locally treated as valid.
	forever := signedToken(t, jwt.MapClaims{"sub": "u1"})
	if err := m.SetSession(forever, &backend.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if m.Expired() {
		t.Error("Expired = true for token without exp claim")
	}
}

func TestUserIDFallsBackToSubject(t *testing.T) {
	m := testManager(t)

	tok := signedToken(t, jwt.MapClaims{"sub": "u42", "exp": time.Now().Add(time.Hour).Unix()})
	// Store a token with an empty user record.
	if err := m.SetSession(tok, &backend.User{}); err != nil {
		t.Fatal(err)
	}
	if m.UserID() != "u42" {
		t.Errorf("user id = %q, want u42 from subject claim", m.UserID())
	}
}
