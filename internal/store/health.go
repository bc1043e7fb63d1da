package store

// AddCycleDate records one period start date (YYYY-MM-DD). Duplicate dates
// are ignored.
func (db *DB) AddCycleDate(date string) error {
	_, err := db.Exec(`
		INSERT INTO cycle_dates (date) VALUES (?)
		ON CONFLICT(date) DO NOTHING`, date)
	return err
}

// RemoveCycleDate deletes a recorded date.
func (db *DB) RemoveCycleDate(date string) error {
	_, err := db.Exec(`DELETE FROM cycle_dates WHERE date = ?`, date)
	return err
}

// CycleDates returns every recorded date in ascending order.
func (db *DB) CycleDates() ([]string, error) {
	rows, err := db.Query(`SELECT date FROM cycle_dates ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// AppendBotMessage logs one turn of a health-bot conversation and trims the
// per-bot log to the newest 100 entries.
func (db *DB) AppendBotMessage(m *BotMessage) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO bot_log (bot, role, content, timestamp)
		VALUES (?, ?, ?, ?)`,
		m.Bot, m.Role, m.Content, m.Timestamp); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM bot_log
		WHERE bot = ? AND id NOT IN (SELECT id FROM bot_log WHERE bot = ? ORDER BY id DESC LIMIT 100)`,
		m.Bot, m.Bot); err != nil {
		return err
	}
	return tx.Commit()
}

// BotLog returns the conversation log for one bot, oldest first.
func (db *DB) BotLog(bot string) ([]BotMessage, error) {
	rows, err := db.Query(`
		SELECT id, bot, role, content, timestamp
		FROM bot_log WHERE bot = ? ORDER BY id ASC`, bot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []BotMessage
	for rows.Next() {
		var m BotMessage
		if err := rows.Scan(&m.ID, &m.Bot, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ClearBotLog drops the log for one bot.
func (db *DB) ClearBotLog(bot string) error {
	_, err := db.Exec(`DELETE FROM bot_log WHERE bot = ?`, bot)
	return err
}
