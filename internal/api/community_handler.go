package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/gamification"
	"github.com/sakhihub/sakhi/internal/store"
)

// CommunityHandler exposes community posts, backed by the hub and cached
// locally so reading keeps working offline.
type CommunityHandler struct {
	db      *store.DB
	backend *backend.Client
	game    *gamification.Service
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewCommunityHandler creates the community handler.
func NewCommunityHandler(db *store.DB, b *backend.Client, g *gamification.Service, eb *bus.Bus, logger *zap.Logger) *CommunityHandler {
	return &CommunityHandler{db: db, backend: b, game: g, bus: eb, logger: logger.Named("api.community")}
}

func (h *CommunityHandler) cachePost(p *backend.Post) {
	created, _ := time.Parse(time.RFC3339, p.CreatedAt)
	err := h.db.UpsertPost(&store.Post{
		PostID:    p.ID,
		Author:    p.Author,
		Title:     p.Title,
		Content:   p.Content,
		Category:  p.Category,
		Likes:     p.Likes,
		CreatedAt: created.UnixMilli(),
	})
	if err != nil {
		h.logger.Warn("failed to cache post", zap.String("post_id", p.ID), zap.Error(err))
	}
}

// ListPosts prefers the hub and falls back to the local cache offline.
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	posts, err := h.backend.ListPosts(r.Context())
	if err != nil {
		h.logger.Warn("hub unreachable, serving cached posts", zap.Error(err))
		cached, cerr := h.db.ListPosts(category, 100)
		if cerr != nil {
			respondError(w, http.StatusInternalServerError, "list posts: %v", cerr)
			return
		}
		respondJSON(w, http.StatusOK, cached)
		return
	}

	out := make([]backend.Post, 0, len(posts))
	for i := range posts {
		h.cachePost(&posts[i])
		if category == "" || posts[i].Category == category {
			out = append(out, posts[i])
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// CreatePost publishes to the hub. Posting requires connectivity; there is no
// offline draft queue for community content.
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Title == "" || req.Content == "" {
		respondError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	post, err := h.backend.CreatePost(r.Context(), req.Title, req.Content, req.Category)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	h.cachePost(post)
	if _, err := h.game.Award(gamification.ActionCommunityPost); err != nil {
		h.logger.Warn("community post award failed", zap.Error(err))
	}
	h.bus.Publish(bus.Event{Kind: "post.created", Timestamp: time.Now(), Payload: post.ID})
	respondJSON(w, http.StatusCreated, post)
}

// LikePost likes on the hub when reachable and keeps the local count in
// either case. Cached likes reconcile via max-wins on the next list.
func (h *CommunityHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, err := h.backend.LikePost(r.Context(), id)
	if err == nil {
		h.cachePost(post)
		respondJSON(w, http.StatusOK, post)
		return
	}
	h.logger.Warn("hub like failed, counting locally", zap.String("post_id", id), zap.Error(err))

	likes, err := h.db.LikePost(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "like post: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "likes": likes})
}
