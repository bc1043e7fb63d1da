package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/store"
)

// Online reports whether the network currently looks reachable. It is a
// hint: the drain still runs per-action error handling either way.
type Online interface {
	IsOnline() bool
}

// Sender owns the durable action queue: it enqueues outbound actions with an
// optimistic local echo and drains them through a Dispatcher whenever
// connectivity returns or the poll ticker fires.
type Sender struct {
	db     *store.DB
	disp   Dispatcher
	online Online
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	mu     sync.RWMutex
	sender string
}

// NewSender creates a sender. senderID tags optimistic message rows.
func NewSender(db *store.DB, disp Dispatcher, online Online, b *bus.Bus, senderID string, logger *zap.Logger) *Sender {
	return &Sender{
		db:     db,
		disp:   disp,
		online: online,
		bus:    b,
		logger: logger.Named("outbox"),
		sender: senderID,
	}
}

// SetSenderID updates the id stamped on optimistic message rows after a
// mid-session login.
func (s *Sender) SetSenderID(senderID string) {
	s.mu.Lock()
	s.sender = senderID
	s.mu.Unlock()
}

func (s *Sender) senderID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sender
}

// Start recovers actions stuck from an unclean shutdown, then drains on a
// poll ticker and on every connectivity-restored or session-connected event.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if n, err := s.db.RequeueStuckActions(); err != nil {
		s.logger.Error("failed to recover stuck actions", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("recovered stuck actions", zap.Int64("count", n))
	}

	go s.loop(ctx)
}

// Stop stops the drain loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	wake, unsub := s.bus.Subscribe("net.online", 4)
	defer unsub()
	connected, unsubRT := s.bus.Subscribe("rt.connect_ack", 4)
	defer unsubRT()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			s.Drain(ctx)
		case <-connected:
			s.Drain(ctx)
		case <-ticker.C:
			if s.online == nil || s.online.IsOnline() {
				s.Drain(ctx)
			}
		}
	}
}

// QueueMessage enqueues a chat message and writes the optimistic local copy
// in the sending state. The returned message is what the UI should render
// until the delivery state settles.
func (s *Sender) QueueMessage(roomID, text string) (*store.Message, error) {
	msgID := uuid.NewString()
	payload, err := json.Marshal(MessageBody{MsgID: msgID, Text: text})
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	msg := &store.Message{
		ConversationID: roomID,
		MsgID:          msgID,
		SenderID:       s.senderID(),
		Body:           text,
		DeliveryState:  store.DeliverySending,
		FromMe:         true,
		Timestamp:      now,
	}
	if err := s.db.UpsertConversation(&store.Conversation{ID: roomID, LastMessageAt: now, LastMessagePreview: text}); err != nil {
		return nil, err
	}
	if err := s.db.UpsertMessage(msg); err != nil {
		return nil, err
	}
	if err := s.db.EnqueueAction(&store.QueuedAction{
		ActionID: msgID,
		Kind:     KindSendMessage,
		Target:   roomID,
		Payload:  string(payload),
	}); err != nil {
		return nil, err
	}

	s.bus.Publish(bus.Event{
		Kind:      "message.upserted",
		Timestamp: time.Now(),
		Payload:   map[string]string{"conversation_id": roomID, "msg_id": msgID},
	})
	return msg, nil
}

// QueueLocation enqueues a location share.
func (s *Sender) QueueLocation(roomID string, lat, long float64) error {
	payload, err := json.Marshal(LocationBody{Latitude: lat, Longitude: long})
	if err != nil {
		return err
	}
	return s.db.EnqueueAction(&store.QueuedAction{
		ActionID: uuid.NewString(),
		Kind:     KindShareLocation,
		Target:   roomID,
		Payload:  string(payload),
	})
}

// Drain attempts every queued action in FIFO order. Successes leave the
// queue; failures go straight back to queued and the drain moves on, so one
// dead action cannot block the rest. Progress is persisted per action.
func (s *Sender) Drain(ctx context.Context) {
	pending, err := s.db.PendingActions(0)
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, action := range pending {
		claimed, err := s.db.MarkActionSending(action.ActionID)
		if err != nil {
			s.logger.Error("failed to claim action", zap.Error(err), zap.String("action_id", action.ActionID))
			continue
		}
		if !claimed {
			continue
		}

		if err := s.disp.Dispatch(ctx, action); err != nil {
			s.logger.Warn("action send failed",
				zap.String("action_id", action.ActionID),
				zap.String("kind", action.Kind),
				zap.Error(err))
			if reqErr := s.db.RequeueAction(action.ActionID, err.Error()); reqErr != nil {
				s.logger.Error("failed to requeue action", zap.Error(reqErr), zap.String("action_id", action.ActionID))
			}
			s.settleMessage(action, store.DeliveryFailed)
			s.bus.Publish(bus.Event{
				Kind:      "outbox.send_failed",
				Timestamp: time.Now(),
				Payload:   map[string]string{"action_id": action.ActionID, "error": err.Error()},
			})
			continue
		}

		if err := s.db.MarkActionSent(action.ActionID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("action_id", action.ActionID))
		}
		s.settleMessage(action, store.DeliveryDelivered)
		s.logger.Info("action sent", zap.String("action_id", action.ActionID), zap.String("kind", action.Kind))
		s.bus.Publish(bus.Event{
			Kind:      "outbox.sent",
			Timestamp: time.Now(),
			Payload:   map[string]string{"action_id": action.ActionID, "kind": action.Kind},
		})
	}
}

// settleMessage reconciles the optimistic message row for send_message
// actions once the attempt's outcome is known.
func (s *Sender) settleMessage(action store.QueuedAction, state string) {
	if action.Kind != KindSendMessage {
		return
	}
	var body MessageBody
	if json.Unmarshal([]byte(action.Payload), &body) != nil {
		return
	}
	if err := s.db.MarkDelivery(action.Target, body.MsgID, state); err != nil {
		s.logger.Error("failed to update delivery state", zap.Error(err), zap.String("msg_id", body.MsgID))
		return
	}
	s.bus.Publish(bus.Event{
		Kind:      "message.delivery",
		Timestamp: time.Now(),
		Payload:   map[string]string{"conversation_id": action.Target, "msg_id": body.MsgID, "state": state},
	})
}
