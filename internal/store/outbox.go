package store

import (
	"database/sql"
	"time"
)

// EnqueueAction appends an action to the outbox. Enqueue is idempotent on
// action_id so a retried API call cannot duplicate work.
func (db *DB) EnqueueAction(a *QueuedAction) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (action_id, kind, target, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(action_id) DO NOTHING`,
		a.ActionID, a.Kind, a.Target, a.Payload, ActionQueued, now, now)
	return err
}

// PendingActions returns queued actions in FIFO order.
func (db *DB) PendingActions(limit int) ([]QueuedAction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, action_id, kind, target, payload, status, error_message, created_at
		FROM outbox
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, ActionQueued, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var actions []QueuedAction
	for rows.Next() {
		var a QueuedAction
		if err := rows.Scan(&a.ID, &a.ActionID, &a.Kind, &a.Target, &a.Payload, &a.Status, &a.ErrorMessage, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// MarkActionSending transitions a queued action to sending. Returns false if
// the action was not in the queued state, which means another drainer claimed
// it first.
func (db *DB) MarkActionSending(actionID string) (bool, error) {
	res, err := db.Exec(`
		UPDATE outbox SET status = ?, updated_at = ?
		WHERE action_id = ? AND status = ?`,
		ActionSending, time.Now().UnixMilli(), actionID, ActionQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkActionSent records a successful send.
func (db *DB) MarkActionSent(actionID string) error {
	_, err := db.Exec(`
		UPDATE outbox SET status = ?, error_message = '', updated_at = ?
		WHERE action_id = ?`,
		ActionSent, time.Now().UnixMilli(), actionID)
	return err
}

// MarkActionFailed records a failed send with the error message.
func (db *DB) MarkActionFailed(actionID, errMsg string) error {
	_, err := db.Exec(`
		UPDATE outbox SET status = ?, error_message = ?, updated_at = ?
		WHERE action_id = ?`,
		ActionFailed, errMsg, time.Now().UnixMilli(), actionID)
	return err
}

// RequeueAction puts an in-flight action back in the queue, recording why the
// attempt failed. The action stays eligible for the next drain.
func (db *DB) RequeueAction(actionID, errMsg string) error {
	_, err := db.Exec(`
		UPDATE outbox SET status = ?, error_message = ?, updated_at = ?
		WHERE action_id = ? AND status = ?`,
		ActionQueued, errMsg, time.Now().UnixMilli(), actionID, ActionSending)
	return err
}

// RequeueStuckActions resets every action left in sending state, typically
// after an unclean shutdown. Returns the number of actions recovered.
func (db *DB) RequeueStuckActions() (int64, error) {
	res, err := db.Exec(`
		UPDATE outbox SET status = ?, updated_at = ?
		WHERE status = ?`,
		ActionQueued, time.Now().UnixMilli(), ActionSending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetAction returns a single outbox entry by action id, or nil if unknown.
func (db *DB) GetAction(actionID string) (*QueuedAction, error) {
	var a QueuedAction
	err := db.QueryRow(`
		SELECT id, action_id, kind, target, payload, status, error_message, created_at
		FROM outbox WHERE action_id = ?`, actionID).
		Scan(&a.ID, &a.ActionID, &a.Kind, &a.Target, &a.Payload, &a.Status, &a.ErrorMessage, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// PendingCount returns the number of actions still waiting to be sent.
func (db *DB) PendingCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM outbox WHERE status = ?`, ActionQueued).Scan(&n)
	return n, err
}
