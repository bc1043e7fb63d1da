package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sakhihub/sakhi/internal/realtime"
	"github.com/sakhihub/sakhi/internal/store"
)

// Action kinds understood by the dispatcher.
const (
	KindSendMessage   = "send_message"
	KindShareLocation = "share_location"
)

// MessageBody is the payload of a send_message action.
type MessageBody struct {
	MsgID string `json:"msgId"`
	Text  string `json:"text"`
}

// LocationBody is the payload of a share_location action.
type LocationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Dispatcher hands one queued action to the transport. An error means the
// action stays queued for the next drain.
type Dispatcher interface {
	Dispatch(ctx context.Context, action store.QueuedAction) error
}

// Emitter is the realtime surface the dispatcher needs.
type Emitter interface {
	SendMessage(ctx context.Context, roomID, msgID, body string) error
	ShareLocation(ctx context.Context, roomID string, lat, long float64) error
}

var _ Emitter = (*realtime.Client)(nil)

// RealtimeDispatcher maps queued actions onto realtime frames.
type RealtimeDispatcher struct {
	rt Emitter
}

// NewRealtimeDispatcher creates a dispatcher over the given emitter.
func NewRealtimeDispatcher(rt Emitter) *RealtimeDispatcher {
	return &RealtimeDispatcher{rt: rt}
}

// Dispatch sends one action. Unknown kinds and malformed payloads are
// permanent errors; the caller decides whether those retry.
func (d *RealtimeDispatcher) Dispatch(ctx context.Context, action store.QueuedAction) error {
	switch action.Kind {
	case KindSendMessage:
		var body MessageBody
		if err := json.Unmarshal([]byte(action.Payload), &body); err != nil {
			return fmt.Errorf("decode send_message payload: %w", err)
		}
		return d.rt.SendMessage(ctx, action.Target, body.MsgID, body.Text)
	case KindShareLocation:
		var body LocationBody
		if err := json.Unmarshal([]byte(action.Payload), &body); err != nil {
			return fmt.Errorf("decode share_location payload: %w", err)
		}
		return d.rt.ShareLocation(ctx, action.Target, body.Latitude, body.Longitude)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}
