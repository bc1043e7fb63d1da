package store

// Delivery states for a message. A message starts as "sending" when queued
// locally and transitions to "delivered" or "failed" exactly once.
const (
	DeliverySending   = "sending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// Outbox action statuses.
const (
	ActionQueued  = "queued"
	ActionSending = "sending"
	ActionSent    = "sent"
	ActionFailed  = "failed"
)

// Conversation represents a locally known chat thread.
type Conversation struct {
	ID                 string
	Title              string
	LastMessageAt      int64
	LastMessagePreview string
}

// Message represents a stored chat message.
type Message struct {
	ID             int64
	ConversationID string
	MsgID          string
	SenderID       string
	Body           string
	DeliveryState  string
	FromMe         bool
	Timestamp      int64
}

// QueuedAction represents a pending outbound action in the offline queue.
type QueuedAction struct {
	ID           int64
	ActionID     string
	Kind         string
	Target       string
	Payload      string
	Status       string
	ErrorMessage string
	CreatedAt    int64
}

// SafetyContact represents one member of the user's safety circle.
type SafetyContact struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
	AddedAt  int64  `json:"added_at"`
}

// SOSEvent records one triggered emergency alert.
type SOSEvent struct {
	ID               int64    `json:"id"`
	TriggeredAt      int64    `json:"triggered_at"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	LocationError    string   `json:"location_error,omitempty"`
	ContactsNotified int      `json:"contacts_notified"`
	ContactsTotal    int      `json:"contacts_total"`
}

// Post represents a cached community post.
type Post struct {
	PostID    string `json:"id"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Likes     int    `json:"likes"`
	CreatedAt int64  `json:"created_at"`
}

// Product represents a marketplace listing. Mine marks listings created by
// this profile.
type Product struct {
	ProductID   string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Mine        bool    `json:"mine"`
	CreatedAt   int64   `json:"created_at"`
}

// Order represents a locally recorded marketplace order.
type Order struct {
	OrderID   string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
	Status    string  `json:"status"`
	CreatedAt int64   `json:"created_at"`
}

// Payment represents a simulated payment record.
type Payment struct {
	PaymentID string  `json:"id"`
	OrderID   string  `json:"order_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Status    string  `json:"status"`
	CreatedAt int64   `json:"created_at"`
}

// BotMessage is one entry in a health-bot conversation log.
type BotMessage struct {
	ID        int64  `json:"id"`
	Bot       string `json:"bot"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
