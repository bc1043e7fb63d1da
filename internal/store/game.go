package store

import "time"

// GameProfile is the single gamification profile row.
type GameProfile struct {
	TotalPoints int   `json:"total_points"`
	Level       int   `json:"level"`
	LoginStreak int   `json:"login_streak"`
	LastLogin   int64 `json:"last_login"`
}

// GetGameProfile returns the profile, creating the row on first access.
func (db *DB) GetGameProfile() (*GameProfile, error) {
	_, err := db.Exec(`
		INSERT INTO game_profile (id, created_at) VALUES (1, ?)
		ON CONFLICT(id) DO NOTHING`, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	var p GameProfile
	err = db.QueryRow(`
		SELECT total_points, level, login_streak, last_login
		FROM game_profile WHERE id = 1`).
		Scan(&p.TotalPoints, &p.Level, &p.LoginStreak, &p.LastLogin)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveGameProfile writes the profile fields back.
func (db *DB) SaveGameProfile(p *GameProfile) error {
	_, err := db.Exec(`
		INSERT INTO game_profile (id, total_points, level, login_streak, last_login, created_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_points = excluded.total_points,
			level = excluded.level,
			login_streak = excluded.login_streak,
			last_login = excluded.last_login`,
		p.TotalPoints, p.Level, p.LoginStreak, p.LastLogin, time.Now().UnixMilli())
	return err
}

// IncrementActionCount bumps the per-action counter and returns the new count.
func (db *DB) IncrementActionCount(action string) (int, error) {
	_, err := db.Exec(`
		INSERT INTO game_counters (action, count) VALUES (?, 1)
		ON CONFLICT(action) DO UPDATE SET count = count + 1`, action)
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRow(`SELECT count FROM game_counters WHERE action = ?`, action).Scan(&n)
	return n, err
}

// ActionCounts returns every action counter.
func (db *DB) ActionCounts() (map[string]int, error) {
	rows, err := db.Query(`SELECT action, count FROM game_counters`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// AwardBadge records a badge. Returns true if the badge was newly earned.
func (db *DB) AwardBadge(badgeID string) (bool, error) {
	res, err := db.Exec(`
		INSERT INTO game_badges (badge_id, earned_at) VALUES (?, ?)
		ON CONFLICT(badge_id) DO NOTHING`,
		badgeID, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// EarnedBadges returns the ids of every earned badge.
func (db *DB) EarnedBadges() ([]string, error) {
	rows, err := db.Query(`SELECT badge_id FROM game_badges ORDER BY earned_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
