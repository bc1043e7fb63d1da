package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
)

// Meta event kinds dispatched to local handlers alongside wire events.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// State is the connection state of the client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Handler receives one dispatched event. For wire events payload is the typed
// payload struct from DecodeEnvelope; for meta events it is nil.
type Handler func(kind string, payload any)

// Config holds the realtime connection settings.
type Config struct {
	URL         string
	Token       string
	UserID      string
	MaxAttempts int
	RetryDelay  time.Duration
}

func (c *Config) defaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
}

// Client is the realtime chat connection. Inbound frames are validated,
// published on the bus under the "rt." namespace, and dispatched to local
// handlers. Reconnection is bounded: after MaxAttempts consecutive failures
// the client gives up until the next explicit Connect.
type Client struct {
	cfg Config
	log *zap.Logger
	bus *bus.Bus

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	closing bool
	cancel  context.CancelFunc
	joined  map[string]struct{}

	hmu      sync.Mutex
	handlers map[string]map[int]Handler
	nextID   int
}

// New creates a realtime client. Connect must be called to open the socket.
func New(cfg Config, b *bus.Bus, log *zap.Logger) *Client {
	cfg.defaults()
	return &Client{
		cfg:      cfg,
		log:      log.Named("realtime"),
		bus:      b,
		state:    StateDisconnected,
		joined:   make(map[string]struct{}),
		handlers: make(map[string]map[int]Handler),
	}
}

// SetCredentials updates the token and user id used for the next dial. The
// current connection, if any, is left alone.
func (c *Client) SetCredentials(token, userID string) {
	c.mu.Lock()
	c.cfg.Token = token
	c.cfg.UserID = userID
	c.mu.Unlock()
}

// creds snapshots the token and user id under the lock. Callers must not
// read c.cfg credential fields directly; SetCredentials can race them.
func (c *Client) creds() (token, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Token, c.cfg.UserID
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// On registers a handler for an event kind and returns its unsubscribe
// function. Registering for EventConnect while already connected fires the
// handler once immediately, so late listeners never miss the session start.
func (c *Client) On(kind string, h Handler) func() {
	c.hmu.Lock()
	id := c.nextID
	c.nextID++
	if c.handlers[kind] == nil {
		c.handlers[kind] = make(map[int]Handler)
	}
	c.handlers[kind][id] = h
	c.hmu.Unlock()

	if kind == EventConnect {
		c.mu.Lock()
		connected := c.state == StateConnected
		c.mu.Unlock()
		if connected {
			go h(EventConnect, nil)
		}
	}

	return func() {
		c.hmu.Lock()
		delete(c.handlers[kind], id)
		c.hmu.Unlock()
	}
}

// Connect opens the websocket session. Calling it while connected or
// connecting is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.closing = false
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse realtime url: %w", err)
	}
	token, userID := c.creds()
	q := u.Query()
	q.Set("token", token)
	q.Set("userId", userID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}

	// The server's first frame must be the connection ack.
	_, data, err := conn.Read(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return fmt.Errorf("read connect ack: %w", err)
	}
	env, typed, err := DecodeEnvelope(data)
	if err != nil || env.Kind != KindConnectAck {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		if err == nil {
			err = fmt.Errorf("expected %s, got %q", KindConnectAck, env.Kind)
		}
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.cancel = cancel
	rooms := make([]string, 0, len(c.joined))
	for r := range c.joined {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	c.log.Info("connected", zap.String("user_id", userID))
	c.publish(env.Kind, typed)
	c.dispatch(env.Kind, typed)
	c.dispatch(EventConnect, nil)

	// Room membership is per-session on the server, so rejoin everything.
	for _, r := range rooms {
		if err := c.emit(runCtx, KindJoinChat, JoinPayload{RoomID: r, UserID: userID}); err != nil {
			c.log.Warn("rejoin failed", zap.String("room", r), zap.Error(err))
		}
	}

	go c.readLoop(runCtx, conn)
	return nil
}

// Close shuts the connection down and suppresses reconnection. Safe to call
// repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closing = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client close")
	}
	if wasConnected {
		c.dispatch(EventDisconnect, nil)
	}
	return nil
}

// JoinRoom asks the server to add this user to a room. Fire and forget: the
// server handles duplicate joins, and a join issued while disconnected is
// replayed on the next successful connect.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	c.mu.Lock()
	c.joined[roomID] = struct{}{}
	connected := c.state == StateConnected
	userID := c.cfg.UserID
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.emit(ctx, KindJoinChat, JoinPayload{RoomID: roomID, UserID: userID})
}

// SendMessage emits a chat message frame.
func (c *Client) SendMessage(ctx context.Context, roomID, msgID, body string) error {
	_, userID := c.creds()
	return c.emit(ctx, KindSendMessage, MessagePayload{
		RoomID:    roomID,
		MsgID:     msgID,
		SenderID:  userID,
		Body:      body,
		Timestamp: time.Now().UnixMilli(),
	})
}

// ShareLocation emits a live location frame.
func (c *Client) ShareLocation(ctx context.Context, roomID string, lat, long float64) error {
	_, userID := c.creds()
	return c.emit(ctx, KindShareLocation, LocationPayload{
		RoomID:    roomID,
		SenderID:  userID,
		Latitude:  lat,
		Longitude: long,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *Client) emit(ctx context.Context, kind string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("realtime: not connected")
	}

	data, err := EncodeEnvelope(kind, payload)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			closing := c.closing
			if c.conn == conn {
				c.conn = nil
				c.state = StateDisconnected
			}
			c.mu.Unlock()

			if closing {
				return
			}
			c.log.Warn("connection lost", zap.Error(err))
			c.dispatch(EventDisconnect, nil)
			c.reconnect(ctx)
			return
		}

		env, typed, err := DecodeEnvelope(data)
		if err != nil {
			c.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if typed == nil {
			c.log.Debug("ignoring unknown frame", zap.String("type", env.Kind))
			continue
		}
		c.publish(env.Kind, typed)
		c.dispatch(env.Kind, typed)
	}
}

// reconnect retries the dial a bounded number of times with a fixed delay.
func (c *Client) reconnect(ctx context.Context) {
	c.mu.Lock()
	c.state = StateReconnecting
	c.mu.Unlock()

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RetryDelay):
		}

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.log.Info("reconnecting", zap.Int("attempt", attempt), zap.Int("max", c.cfg.MaxAttempts))
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := c.dial(dialCtx)
		cancel()
		if err == nil {
			return
		}
		c.log.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	c.log.Error("reconnect attempts exhausted", zap.Int("attempts", c.cfg.MaxAttempts))
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.bus.Publish(bus.Event{Kind: "rt.gave_up", Timestamp: time.Now()})
}

func (c *Client) publish(kind string, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Kind: "rt." + kind, Timestamp: time.Now(), Payload: payload})
}

func (c *Client) dispatch(kind string, payload any) {
	c.hmu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[kind]))
	for _, h := range c.handlers[kind] {
		handlers = append(handlers, h)
	}
	c.hmu.Unlock()
	for _, h := range handlers {
		h(kind, payload)
	}
}
