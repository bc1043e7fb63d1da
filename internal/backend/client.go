package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource func() string

// Client talks to the Sakhi Hub REST backend. Every authenticated request
// carries the bearer token from the token source at call time, so a re-login
// mid-session is picked up without rebuilding the client.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	logger  *zap.Logger
}

// New creates a backend client.
func New(baseURL string, token TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
		logger:  logger.Named("backend"),
	}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: HTTP %d: %s", e.StatusCode, e.Detail)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &detail) != nil || detail.Detail == "" {
			detail.Detail = string(data)
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: detail.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Token is the auth response from signup and login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the authenticated profile.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Village  string `json:"village,omitempty"`
	Language string `json:"language,omitempty"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*Token, error) {
	var tok Token
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": name, "email": email, "password": password,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	var tok Token
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Logout invalidates the current session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe updates profile fields.
func (c *Client) UpdateMe(ctx context.Context, fields map[string]any) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/api/auth/me", fields, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChatRequest is a health-bot conversation turn.
type ChatRequest struct {
	Age            int           `json:"age,omitempty"`
	LastPeriodDate string        `json:"last_period_date,omitempty"`
	UserMessage    string        `json:"user_message"`
	Language       string        `json:"language,omitempty"`
	History        []ChatMessage `json:"history,omitempty"`
}

// ChatMessage is one prior turn in a bot conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is a health-bot reply, with an optional cycle prediction.
type ChatResponse struct {
	Response   string `json:"response"`
	Prediction string `json:"prediction,omitempty"`
}

// Bot chat endpoints, keyed by bot name.
var botPaths = map[string]string{
	"period":    "/api/health-bots/period-chat",
	"pregnancy": "/api/health-bots/pregnancy-chat",
	"krishi":    "/api/health-bots/krishi-bot",
}

// BotChat sends one turn to a named health bot.
func (c *Client) BotChat(ctx context.Context, bot string, req *ChatRequest) (*ChatResponse, error) {
	path, ok := botPaths[bot]
	if !ok {
		return nil, fmt.Errorf("backend: unknown bot %q", bot)
	}
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Post is a community post as the backend returns it.
type Post struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Likes     int    `json:"likes"`
	CreatedAt string `json:"created_at"`
}

// ListPosts fetches community posts.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.do(ctx, http.MethodGet, "/api/community/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CreatePost publishes a community post.
func (c *Client) CreatePost(ctx context.Context, title, content, category string) (*Post, error) {
	var p Post
	err := c.do(ctx, http.MethodPost, "/api/community/posts", map[string]string{
		"title": title, "content": content, "category": category,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LikePost likes a post and returns its updated state.
func (c *Client) LikePost(ctx context.Context, postID string) (*Post, error) {
	var p Post
	if err := c.do(ctx, http.MethodPost, "/api/community/posts/"+postID+"/like", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EligibilityRequest describes the applicant for a scheme check.
type EligibilityRequest struct {
	SchemeName string  `json:"scheme_name"`
	Age        int     `json:"age"`
	Income     float64 `json:"income"`
	Residence  string  `json:"residence"`
	Caste      string  `json:"caste"`
}

// EligibilityResponse is the backend's verdict.
type EligibilityResponse struct {
	IsEligible bool   `json:"is_eligible"`
	Reason     string `json:"reason"`
}

// CheckEligibility asks the backend whether the applicant qualifies.
func (c *Client) CheckEligibility(ctx context.Context, req *EligibilityRequest) (*EligibilityResponse, error) {
	var resp EligibilityResponse
	if err := c.do(ctx, http.MethodPost, "/api/schemes/check-eligibility", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Product is a marketplace listing as the backend returns it.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Creator     string  `json:"creator,omitempty"`
}

// ListProducts fetches marketplace listings.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProfile registers a creator profile with listings.
func (c *Client) CreateProfile(ctx context.Context, profile map[string]any) error {
	return c.do(ctx, http.MethodPost, "/create-profile", profile, nil)
}
