package store

import "time"

// AddSafetyContact adds a contact to the safety circle.
func (db *DB) AddSafetyContact(c *SafetyContact) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO safety_contacts (name, phone, relation, added_at)
		VALUES (?, ?, ?, ?)`,
		c.Name, c.Phone, c.Relation, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RemoveSafetyContact deletes a contact by id.
func (db *DB) RemoveSafetyContact(id int64) error {
	_, err := db.Exec(`DELETE FROM safety_contacts WHERE id = ?`, id)
	return err
}

// ListSafetyContacts returns the safety circle in insertion order.
func (db *DB) ListSafetyContacts() ([]SafetyContact, error) {
	rows, err := db.Query(`
		SELECT id, name, phone, relation, added_at
		FROM safety_contacts
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []SafetyContact
	for rows.Next() {
		var c SafetyContact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Relation, &c.AddedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// RecordSOSEvent appends an SOS event and trims history to the newest 50.
func (db *DB) RecordSOSEvent(e *SOSEvent) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		INSERT INTO sos_events (triggered_at, latitude, longitude, location_error, contacts_notified, contacts_total)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.TriggeredAt, e.Latitude, e.Longitude, e.LocationError, e.ContactsNotified, e.ContactsTotal)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		DELETE FROM sos_events
		WHERE id NOT IN (SELECT id FROM sos_events ORDER BY triggered_at DESC, id DESC LIMIT 50)`)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// ListSOSEvents returns SOS history, newest first.
func (db *DB) ListSOSEvents() ([]SOSEvent, error) {
	rows, err := db.Query(`
		SELECT id, triggered_at, latitude, longitude, location_error, contacts_notified, contacts_total
		FROM sos_events
		ORDER BY triggered_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []SOSEvent
	for rows.Next() {
		var e SOSEvent
		if err := rows.Scan(&e.ID, &e.TriggeredAt, &e.Latitude, &e.Longitude, &e.LocationError, &e.ContactsNotified, &e.ContactsTotal); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
