package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/outbox"
	"github.com/sakhihub/sakhi/internal/realtime"
	"github.com/sakhihub/sakhi/internal/store"
)

// ChatHandler exposes the local conversation history and the durable
// outbound queue.
type ChatHandler struct {
	db     *store.DB
	sender *outbox.Sender
	rt     *realtime.Client
	logger *zap.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(db *store.DB, sender *outbox.Sender, rt *realtime.Client, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{db: db, sender: sender, rt: rt, logger: logger.Named("api.chat")}
}

type conversationView struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	LastMessageAt      int64  `json:"last_message_at"`
	LastMessagePreview string `json:"last_message_preview"`
}

type messageView struct {
	MsgID          string `json:"msg_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body"`
	DeliveryState  string `json:"delivery_state"`
	FromMe         bool   `json:"from_me"`
	Timestamp      int64  `json:"timestamp"`
}

func messageViews(msgs []store.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView{
			MsgID:          m.MsgID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Body:           m.Body,
			DeliveryState:  m.DeliveryState,
			FromMe:         m.FromMe,
			Timestamp:      m.Timestamp,
		})
	}
	return out
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	convs, err := h.db.ListConversations(limit, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list conversations: %v", err)
		return
	}
	out := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationView{
			ID:                 c.ID,
			Title:              c.Title,
			LastMessageAt:      c.LastMessageAt,
			LastMessagePreview: c.LastMessagePreview,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// ListMessages returns a conversation's history oldest first. An unknown
// conversation yields an empty list, never an error.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	if before, err := strconv.ParseInt(q.Get("before"), 10, 64); err == nil {
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		msgs, err := h.db.ListMessagesBefore(id, before, limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list messages: %v", err)
			return
		}
		respondJSON(w, http.StatusOK, messageViews(msgs))
		return
	}

	msgs, err := h.db.ListMessages(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list messages: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, messageViews(msgs))
}

// SendMessage queues a message for delivery and returns the optimistic local
// copy in the sending state.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	msg, err := h.sender.QueueMessage(chi.URLParam(r, "id"), req.Text)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "queue message: %v", err)
		return
	}
	respondJSON(w, http.StatusAccepted, messageViews([]store.Message{*msg})[0])
}

// JoinRoom is fire and forget: joins issued while disconnected are replayed
// on the next connect, and the server handles duplicates.
func (h *ChatHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.rt.JoinRoom(r.Context(), id); err != nil {
		respondError(w, http.StatusBadGateway, "join room: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"room": id})
}

// ShareLocation queues a live location share for the room.
func (h *ChatHandler) ShareLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if err := h.sender.QueueLocation(chi.URLParam(r, "id"), req.Latitude, req.Longitude); err != nil {
		respondError(w, http.StatusInternalServerError, "queue location: %v", err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *ChatHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.db.ClearConversation(chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusInternalServerError, "clear conversation: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *ChatHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.db.ClearAllConversations(); err != nil {
		respondError(w, http.StatusInternalServerError, "clear conversations: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *ChatHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	results, err := h.db.SearchMessages(query, q.Get("conversation"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search: %v", err)
		return
	}
	type hit struct {
		Message messageView `json:"message"`
		Snippet string      `json:"snippet"`
	}
	out := make([]hit, 0, len(results))
	for _, res := range results {
		out = append(out, hit{Message: messageViews([]store.Message{res.Message})[0], Snippet: res.Snippet})
	}
	respondJSON(w, http.StatusOK, out)
}
