package sync

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/realtime"
	"github.com/sakhihub/sakhi/internal/store"
)

// checkpointKey records when the post cache was last backfilled from the hub.
const checkpointKey = "sync.posts_synced_at"

// PostLister fetches the hub's community posts for the connect backfill.
type PostLister interface {
	ListPosts(ctx context.Context) ([]backend.Post, error)
}

// Engine ingests inbound realtime events into the store. It subscribes to
// the "rt." namespace and persists everything idempotently, so replayed or
// duplicated frames cannot corrupt local history. On every session connect
// it also backfills the community post cache from the hub, catching up on
// whatever was missed while disconnected.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	posts  PostLister
	logger *zap.Logger
	cancel context.CancelFunc

	mu     sync.RWMutex
	userID string
}

// NewEngine creates a sync engine. userID marks which inbound messages are
// local echoes of this profile's own sends; posts may be nil to disable the
// connect backfill.
func NewEngine(db *store.DB, b *bus.Bus, posts PostLister, userID string, logger *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		bus:    b,
		posts:  posts,
		logger: logger.Named("sync"),
		userID: userID,
	}
}

// SetUserID updates the own-user id after a mid-session login.
func (e *Engine) SetUserID(userID string) {
	e.mu.Lock()
	e.userID = userID
	e.mu.Unlock()
}

func (e *Engine) ownID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userID
}

// Start subscribes to inbound realtime events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("rt.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case "rt." + realtime.KindConnectAck:
		go e.BackfillPosts(ctx)
	case "rt." + realtime.KindReceiveMessage:
		p, ok := evt.Payload.(*realtime.MessagePayload)
		if !ok {
			return
		}
		if err := e.IngestMessage(p); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", p.MsgID))
		}
	case "rt." + realtime.KindEmergencyLocation:
		p, ok := evt.Payload.(*realtime.LocationPayload)
		if !ok {
			return
		}
		if err := e.IngestLocation(p); err != nil {
			e.logger.Error("failed to ingest location", zap.Error(err), zap.String("room", p.RoomID))
		}
	case "rt." + realtime.KindNewPost:
		p, ok := evt.Payload.(*realtime.PostPayload)
		if !ok {
			return
		}
		if err := e.IngestPost(p); err != nil {
			e.logger.Error("failed to ingest post", zap.Error(err), zap.String("post_id", p.PostID))
		}
	case "rt." + realtime.KindUserJoined, "rt." + realtime.KindUserStatus:
		p, ok := evt.Payload.(*realtime.PresencePayload)
		if !ok {
			return
		}
		// Presence is ephemeral; republish for live consumers only.
		e.bus.Publish(bus.Event{
			Kind:      "presence.changed",
			Timestamp: time.Now(),
			Payload:   map[string]string{"room": p.RoomID, "user": p.UserID, "status": p.Status},
		})
	}
}

// BackfillPosts refreshes the community post cache from the hub in one
// transaction and records the checkpoint. Runs after every session connect;
// a failure leaves the previous cache and checkpoint untouched.
func (e *Engine) BackfillPosts(ctx context.Context) {
	if e.posts == nil {
		return
	}

	posts, err := e.posts.ListPosts(ctx)
	if err != nil {
		e.logger.Warn("post backfill fetch failed", zap.Error(err))
		return
	}

	rows := make([]store.Post, 0, len(posts))
	for i := range posts {
		created, _ := time.Parse(time.RFC3339, posts[i].CreatedAt)
		rows = append(rows, store.Post{
			PostID:    posts[i].ID,
			Author:    posts[i].Author,
			Title:     posts[i].Title,
			Content:   posts[i].Content,
			Category:  posts[i].Category,
			Likes:     posts[i].Likes,
			CreatedAt: created.UnixMilli(),
		})
	}
	if err := e.db.UpsertPosts(rows); err != nil {
		e.logger.Error("post backfill write failed", zap.Error(err))
		return
	}
	if err := e.db.SetKV(checkpointKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		e.logger.Warn("failed to record backfill checkpoint", zap.Error(err))
	}

	e.logger.Info("post cache backfilled", zap.Int("count", len(rows)))
	e.bus.Publish(bus.Event{
		Kind:      "post.backfilled",
		Timestamp: time.Now(),
		Payload:   len(rows),
	})
}

// IngestMessage persists one inbound chat message (idempotent). A message
// echoed back for one of this profile's own sends confirms delivery.
func (e *Engine) IngestMessage(p *realtime.MessagePayload) error {
	fromMe := p.SenderID == e.ownID()
	state := store.DeliveryDelivered

	if err := e.db.UpsertConversation(&store.Conversation{
		ID:                 p.RoomID,
		LastMessageAt:      p.Timestamp,
		LastMessagePreview: truncate(p.Body, 100),
	}); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	if err := e.db.UpsertMessage(&store.Message{
		ConversationID: p.RoomID,
		MsgID:          p.MsgID,
		SenderID:       p.SenderID,
		Body:           p.Body,
		DeliveryState:  state,
		FromMe:         fromMe,
		Timestamp:      p.Timestamp,
	}); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      "message.upserted",
		Timestamp: time.Now(),
		Payload:   map[string]string{"conversation_id": p.RoomID, "msg_id": p.MsgID},
	})
	return nil
}

// IngestLocation persists a shared live location as a message row so it shows
// up in conversation history.
func (e *Engine) IngestLocation(p *realtime.LocationPayload) error {
	body := fmt.Sprintf("location: %.5f,%.5f", p.Latitude, p.Longitude)
	if err := e.db.UpsertConversation(&store.Conversation{
		ID:                 p.RoomID,
		LastMessageAt:      p.Timestamp,
		LastMessagePreview: body,
	}); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	if err := e.db.UpsertMessage(&store.Message{
		ConversationID: p.RoomID,
		MsgID:          fmt.Sprintf("loc-%s-%d", p.SenderID, p.Timestamp),
		SenderID:       p.SenderID,
		Body:           body,
		DeliveryState:  store.DeliveryDelivered,
		FromMe:         p.SenderID == e.ownID(),
		Timestamp:      p.Timestamp,
	}); err != nil {
		return fmt.Errorf("upsert location message: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      "location.shared",
		Timestamp: time.Now(),
		Payload:   map[string]string{"conversation_id": p.RoomID, "sender_id": p.SenderID},
	})
	return nil
}

// IngestPost caches a community post announced over the realtime channel.
func (e *Engine) IngestPost(p *realtime.PostPayload) error {
	if err := e.db.UpsertPost(&store.Post{
		PostID:    p.PostID,
		Author:    p.Author,
		Title:     p.Title,
		Content:   p.Content,
		Category:  p.Category,
		CreatedAt: p.CreatedAt,
	}); err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      "post.upserted",
		Timestamp: time.Now(),
		Payload:   map[string]string{"post_id": p.PostID},
	})
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
