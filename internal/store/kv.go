package store

import (
	"database/sql"
	"time"
)

// SetKV stores a value under a key, replacing any previous value.
func (db *DB) SetKV(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// GetKV returns the value for a key. A missing key returns ok=false, not an
// error.
func (db *DB) GetKV(key string) (string, bool, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// DeleteKV removes a key. Deleting a missing key is a no-op.
func (db *DB) DeleteKV(key string) error {
	_, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}
