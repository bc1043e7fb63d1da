package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoginAndBearerToken(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "meera@example.com", body["email"])
			_ = json.NewEncoder(w).Encode(Token{AccessToken: "tok-123", TokenType: "bearer"})
		case "/api/auth/me":
			sawAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(User{ID: "u1", Name: "Meera"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	token := ""
	c := New(srv.URL, func() string { return token }, zap.NewNop())

	tok, err := c.Login(context.Background(), "meera@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok.AccessToken)

	token = tok.AccessToken
	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Meera", user.Name)
	assert.Equal(t, "Bearer tok-123", sawAuth)
}

func TestAPIErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
	}))
	defer srv.Close()

	c := New(srv.URL, func() string { return "" }, zap.NewNop())
	_, err := c.Login(context.Background(), "x@example.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Detail)
}

func TestBotChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health-bots/period-chat", r.URL.Path)
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 25, req.Age)
		_ = json.NewEncoder(w).Encode(ChatResponse{Response: "Your next period is around 2026-02-26.", Prediction: "2026-02-26"})
	}))
	defer srv.Close()

	c := New(srv.URL, func() string { return "tok" }, zap.NewNop())
	resp, err := c.BotChat(context.Background(), "period", &ChatRequest{
		Age:            25,
		LastPeriodDate: "2026-01-29",
		UserMessage:    "When is my next date?",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-26", resp.Prediction)

	_, err = c.BotChat(context.Background(), "astrology", &ChatRequest{UserMessage: "hi"})
	assert.Error(t, err)
}

func TestCheckEligibility(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/schemes/check-eligibility", r.URL.Path)
		var req EligibilityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Age > 10 {
			_ = json.NewEncoder(w).Encode(EligibilityResponse{IsEligible: false, Reason: "Age must be less than 10 years."})
			return
		}
		_ = json.NewEncoder(w).Encode(EligibilityResponse{IsEligible: true, Reason: "You meet the age criteria!"})
	}))
	defer srv.Close()

	c := New(srv.URL, func() string { return "tok" }, zap.NewNop())
	resp, err := c.CheckEligibility(context.Background(), &EligibilityRequest{
		SchemeName: "Sukanya Samriddhi Yojana", Age: 12,
	})
	require.NoError(t, err)
	assert.False(t, resp.IsEligible)
}

func TestCommunityPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/community/posts" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode([]Post{{ID: "p1", Title: "Savings tips", Likes: 3}})
		case r.URL.Path == "/api/community/posts" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(Post{ID: "p2", Title: "New post"})
		case r.URL.Path == "/api/community/posts/p1/like":
			_ = json.NewEncoder(w).Encode(Post{ID: "p1", Title: "Savings tips", Likes: 4})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, func() string { return "tok" }, zap.NewNop())

	posts, err := c.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)

	created, err := c.CreatePost(context.Background(), "New post", "body", "Finance")
	require.NoError(t, err)
	assert.Equal(t, "p2", created.ID)

	liked, err := c.LikePost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, liked.Likes)
}
