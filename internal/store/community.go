package store

// UpsertPost caches a community post, keeping the highest like count seen.
func (db *DB) UpsertPost(p *Post) error {
	_, err := db.Exec(`
		INSERT INTO posts (post_id, author, title, content, category, likes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			author = excluded.author,
			title = excluded.title,
			content = excluded.content,
			category = excluded.category,
			likes = MAX(posts.likes, excluded.likes)`,
		p.PostID, p.Author, p.Title, p.Content, p.Category, p.Likes, p.CreatedAt)
	return err
}

// UpsertPosts caches a batch of posts in a single transaction, so a
// backfill lands all-or-nothing. Like counts keep the highest value seen.
func (db *DB) UpsertPosts(posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO posts (post_id, author, title, content, category, likes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			author = excluded.author,
			title = excluded.title,
			content = excluded.content,
			category = excluded.category,
			likes = MAX(posts.likes, excluded.likes)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i := range posts {
		p := &posts[i]
		if _, err := stmt.Exec(p.PostID, p.Author, p.Title, p.Content, p.Category, p.Likes, p.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LikePost increments the local like count and returns the new value.
func (db *DB) LikePost(postID string) (int, error) {
	if _, err := db.Exec(`UPDATE posts SET likes = likes + 1 WHERE post_id = ?`, postID); err != nil {
		return 0, err
	}
	var likes int
	err := db.QueryRow(`SELECT likes FROM posts WHERE post_id = ?`, postID).Scan(&likes)
	return likes, err
}

// ListPosts returns cached posts, newest first, optionally filtered by category.
func (db *DB) ListPosts(category string, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT post_id, author, title, content, category, likes, created_at FROM posts`
	args := []any{}
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.PostID, &p.Author, &p.Title, &p.Content, &p.Category, &p.Likes, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
