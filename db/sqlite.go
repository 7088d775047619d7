package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-sentinel/detection"
	"go-sentinel/logging"
	"go-sentinel/types"
)

// sqliteTimeLayout is RFC3339 with a fixed-width nanosecond fraction so
// stored timestamps order lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the local/development store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite store at the given path.
// ":memory:" gets a shared-cache single-connection setup so every query in
// the process sees the same database.
func OpenSQLite(path string) (*SQLite, error) {
	connStr := path
	if path == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}

	logging.Info().Str("path", path).Msg("sqlite store initialized")
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		author_id TEXT,
		author_handle TEXT,
		text TEXT NOT NULL,
		language TEXT,
		toxicity REAL DEFAULT 0,
		stance TEXT,
		hashtags TEXT NOT NULL DEFAULT '[]',
		mentions TEXT NOT NULL DEFAULT '[]',
		meta TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		risk_score REAL NOT NULL,
		details TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at DESC);

	CREATE TABLE IF NOT EXISTS keywords (
		id TEXT PRIMARY KEY,
		term TEXT NOT NULL UNIQUE,
		category TEXT DEFAULT 'general',
		description TEXT DEFAULT '',
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) SavePost(ctx context.Context, post types.Post) error {
	hashtags, err := json.Marshal(post.Hashtags)
	if err != nil {
		return fmt.Errorf("encoding hashtags for post %s: %w", post.ID, err)
	}
	mentions, err := json.Marshal(post.Mentions)
	if err != nil {
		return fmt.Errorf("encoding mentions for post %s: %w", post.ID, err)
	}
	meta, err := json.Marshal(post.Meta)
	if err != nil {
		return fmt.Errorf("encoding meta for post %s: %w", post.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (id, platform, author_id, author_handle, text, language, toxicity, stance, hashtags, mentions, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			platform = excluded.platform,
			text = excluded.text,
			language = excluded.language,
			toxicity = excluded.toxicity,
			stance = excluded.stance,
			hashtags = excluded.hashtags,
			mentions = excluded.mentions,
			meta = excluded.meta
	`,
		post.ID,
		post.Platform,
		post.AuthorID,
		post.AuthorHandle,
		post.Text,
		post.Language,
		post.Toxicity,
		string(post.Stance),
		string(hashtags),
		string(mentions),
		string(meta),
		post.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("saving post %s: %w", post.ID, err)
	}
	return nil
}

const postColumns = `id, platform, author_id, author_handle, text, language, toxicity, stance, hashtags, mentions, meta, created_at`

func (s *SQLite) GetPost(ctx context.Context, id string) (types.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return types.Post{}, ErrPostNotFound
	}
	if err != nil {
		return types.Post{}, fmt.Errorf("getting post %s: %w", id, err)
	}
	return post, nil
}

func (s *SQLite) ListPosts(ctx context.Context, limit int) ([]types.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return collectPostRows(rows)
}

func (s *SQLite) RecentPosts(ctx context.Context, since time.Time) ([]types.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE created_at >= ? ORDER BY created_at ASC`,
		since.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying recent posts: %w", err)
	}
	return collectPostRows(rows)
}

func (s *SQLite) PostsWithHashtag(ctx context.Context, tag string, limit int) ([]types.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE EXISTS (SELECT 1 FROM json_each(posts.hashtags) WHERE json_each.value = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("querying posts with hashtag %q: %w", tag, err)
	}
	return collectPostRows(rows)
}

// scannable covers both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanPost(row scannable) (types.Post, error) {
	var post types.Post
	var stance, hashtags, mentions, meta, createdAt string
	err := row.Scan(
		&post.ID,
		&post.Platform,
		&post.AuthorID,
		&post.AuthorHandle,
		&post.Text,
		&post.Language,
		&post.Toxicity,
		&stance,
		&hashtags,
		&mentions,
		&meta,
		&createdAt,
	)
	if err != nil {
		return post, err
	}

	post.Stance = types.Stance(stance)
	if err := json.Unmarshal([]byte(hashtags), &post.Hashtags); err != nil {
		return post, fmt.Errorf("decoding hashtags for post %s: %w", post.ID, err)
	}
	if err := json.Unmarshal([]byte(mentions), &post.Mentions); err != nil {
		return post, fmt.Errorf("decoding mentions for post %s: %w", post.ID, err)
	}
	if err := json.Unmarshal([]byte(meta), &post.Meta); err != nil {
		return post, fmt.Errorf("decoding meta for post %s: %w", post.ID, err)
	}
	if post.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return post, fmt.Errorf("parsing timestamp for post %s: %w", post.ID, err)
	}
	return post, nil
}

func collectPostRows(rows *sql.Rows) ([]types.Post, error) {
	defer rows.Close()

	var posts []types.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *SQLite) SaveAlerts(ctx context.Context, alerts []types.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning alert batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alerts (id, name, risk_score, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing alert insert: %w", err)
	}
	defer stmt.Close()

	for _, alert := range alerts {
		details, err := json.Marshal(alert.Details)
		if err != nil {
			return fmt.Errorf("encoding details for alert %s: %w", alert.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			alert.ID,
			alert.Name,
			alert.RiskScore,
			string(details),
			alert.CreatedAt.UTC().Format(sqliteTimeLayout),
		); err != nil {
			return fmt.Errorf("inserting alert %s: %w", alert.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) GetAlert(ctx context.Context, id string) (types.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, risk_score, details, created_at FROM alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return types.Alert{}, detection.ErrAlertNotFound
	}
	if err != nil {
		return types.Alert{}, fmt.Errorf("getting alert %s: %w", id, err)
	}
	return alert, nil
}

func (s *SQLite) ListAlerts(ctx context.Context) ([]types.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, risk_score, details, created_at FROM alerts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanAlert(row scannable) (types.Alert, error) {
	var alert types.Alert
	var details, createdAt string
	if err := row.Scan(&alert.ID, &alert.Name, &alert.RiskScore, &details, &createdAt); err != nil {
		return alert, err
	}
	if err := json.Unmarshal([]byte(details), &alert.Details); err != nil {
		return alert, fmt.Errorf("decoding details for alert %s: %w", alert.ID, err)
	}
	var err error
	if alert.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return alert, fmt.Errorf("parsing timestamp for alert %s: %w", alert.ID, err)
	}
	return alert, nil
}

func (s *SQLite) SaveKeyword(ctx context.Context, kw types.Keyword) error {
	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM keywords WHERE term = ?`, kw.Term).Scan(&existing)
	if err == nil {
		return ErrKeywordExists
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking keyword term %q: %w", kw.Term, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO keywords (id, term, category, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, kw.ID, kw.Term, kw.Category, kw.Description, kw.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("saving keyword %q: %w", kw.Term, err)
	}
	return nil
}

func (s *SQLite) ListKeywords(ctx context.Context, query string) ([]types.Keyword, error) {
	q := `SELECT id, term, category, description, created_at FROM keywords`
	args := []interface{}{}
	if query != "" {
		q += ` WHERE term LIKE ?`
		args = append(args, "%"+query+"%")
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	defer rows.Close()

	var keywords []types.Keyword
	for rows.Next() {
		var kw types.Keyword
		var createdAt string
		if err := rows.Scan(&kw.ID, &kw.Term, &kw.Category, &kw.Description, &createdAt); err != nil {
			return nil, err
		}
		if kw.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing timestamp for keyword %s: %w", kw.ID, err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

func (s *SQLite) DeleteKeyword(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting keyword %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrKeywordNotFound
	}
	return nil
}
