package realtime

import (
	"encoding/json"
	"fmt"
)

// Server-to-client event kinds.
const (
	KindConnectAck        = "connect_ack"
	KindReceiveMessage    = "receive_message"
	KindEmergencyLocation = "emergency_location"
	KindNewPost           = "new_post"
	KindUserJoined        = "user_joined"
	KindUserStatus        = "user_status"
)

// Client-to-server command kinds.
const (
	KindJoinChat      = "join_chat"
	KindSendMessage   = "send_message"
	KindShareLocation = "share_location"
)

// Envelope is the wire format for every realtime frame in both directions.
// Payload stays raw until the kind is known.
type Envelope struct {
	Kind    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectAckPayload acknowledges a connection.
type ConnectAckPayload struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// MessagePayload carries one chat message.
type MessagePayload struct {
	RoomID    string `json:"roomId"`
	MsgID     string `json:"msgId"`
	SenderID  string `json:"senderId"`
	Body      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// LocationPayload carries a shared live location.
type LocationPayload struct {
	RoomID    string  `json:"roomId"`
	SenderID  string  `json:"senderId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// PostPayload announces a new community post.
type PostPayload struct {
	PostID    string `json:"postId"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	CreatedAt int64  `json:"createdAt"`
}

// PresencePayload carries room membership and status changes.
type PresencePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// JoinPayload is the outbound room join command.
type JoinPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// DecodeEnvelope parses and validates an inbound frame. Unknown kinds are
// returned as-is with a nil typed payload so callers can log and skip them;
// known kinds with malformed payloads are rejected here, at the boundary.
func DecodeEnvelope(data []byte) (Envelope, any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Kind == "" {
		return env, nil, fmt.Errorf("decode envelope: missing type")
	}

	var typed any
	switch env.Kind {
	case KindConnectAck:
		typed = new(ConnectAckPayload)
	case KindReceiveMessage:
		typed = new(MessagePayload)
	case KindEmergencyLocation:
		typed = new(LocationPayload)
	case KindNewPost:
		typed = new(PostPayload)
	case KindUserJoined, KindUserStatus:
		typed = new(PresencePayload)
	default:
		return env, nil, nil
	}

	if err := json.Unmarshal(env.Payload, typed); err != nil {
		return env, nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	return env, typed, nil
}

// EncodeEnvelope builds an outbound frame.
func EncodeEnvelope(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Kind: kind, Payload: raw})
}
