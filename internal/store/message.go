package store

import "time"

// UpsertMessage inserts or updates a message (idempotent on conversation_id + msg_id).
// Appends never rewrite the body of an existing row unless the caller supplies
// a new one; delivery state always follows the latest upsert.
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (conversation_id, msg_id, sender_id, body, delivery_state, from_me, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, msg_id) DO UPDATE SET
			sender_id = excluded.sender_id,
			body = excluded.body,
			delivery_state = excluded.delivery_state`,
		m.ConversationID, m.MsgID, m.SenderID, m.Body, m.DeliveryState, m.FromMe, m.Timestamp, now)
	return err
}

// MarkDelivery updates only the delivery state of a message.
func (db *DB) MarkDelivery(conversationID, msgID, state string) error {
	_, err := db.Exec(`UPDATE messages SET delivery_state = ? WHERE conversation_id = ? AND msg_id = ?`,
		state, conversationID, msgID)
	return err
}

// ListMessages returns the full stored sequence for a conversation, oldest
// first. An unknown conversation yields an empty slice, never an error.
func (db *DB) ListMessages(conversationID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, msg_id, sender_id, body, delivery_state, from_me, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.MsgID, &m.SenderID, &m.Body, &m.DeliveryState, &m.FromMe, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListMessagesBefore returns up to limit messages older than beforeTs, newest
// first, for keyset pagination.
func (db *DB) ListMessagesBefore(conversationID string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, conversation_id, msg_id, sender_id, body, delivery_state, from_me, timestamp
		FROM messages
		WHERE conversation_id = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`, conversationID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.MsgID, &m.SenderID, &m.Body, &m.DeliveryState, &m.FromMe, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of stored messages.
func (db *DB) MessageCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}
