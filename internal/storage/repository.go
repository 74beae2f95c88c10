// Package storage owns the durable article cache: feeds, articles, stored
// summaries, bookmark tracking and delete tombstones, backed by sqlite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Feed struct {
	ID          int64
	Title       string
	URL         string
	SiteURL     string
	Description string
	LastFetched time.Time
	CreatedAt   time.Time
}

type NewFeed struct {
	Title       string
	URL         string
	SiteURL     string
	Description string
}

type Article struct {
	ID          int64
	FeedID      int64
	GUID        string
	Title       string
	URL         string
	Author      string
	Content     string
	ContentText string
	PublishedAt time.Time
	FetchedAt   time.Time
	FeedTitle   string
}

type NewArticle struct {
	FeedID      int64
	GUID        string
	Title       string
	URL         string
	Author      string
	Content     string
	ContentText string
	PublishedAt time.Time
}

type Summary struct {
	ArticleID    int64
	Content      string
	ModelVersion string
	GeneratedAt  time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The headless refresh and the TUI may briefly overlap on the same file.
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS feeds (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  url TEXT NOT NULL UNIQUE,
  site_url TEXT,
  description TEXT,
  last_fetched TEXT,
  created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  feed_id INTEGER NOT NULL REFERENCES feeds(id),
  guid TEXT NOT NULL,
  title TEXT NOT NULL,
  url TEXT NOT NULL,
  author TEXT,
  content TEXT,
  content_text TEXT,
  published_at TEXT,
  fetched_at TEXT NOT NULL,
  UNIQUE(feed_id, guid)
);
CREATE TABLE IF NOT EXISTS summaries (
  article_id INTEGER PRIMARY KEY REFERENCES articles(id),
  content TEXT NOT NULL,
  model_version TEXT NOT NULL,
  generated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS saved_bookmarks (
  article_id INTEGER PRIMARY KEY REFERENCES articles(id),
  raindrop_id INTEGER NOT NULL,
  tags TEXT NOT NULL,
  saved_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS deleted_articles (
  feed_id INTEGER NOT NULL,
  guid TEXT NOT NULL,
  deleted_at TEXT NOT NULL,
  PRIMARY KEY(feed_id, guid)
);
`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Feed operations

func (r *Repository) InsertFeed(ctx context.Context, feed NewFeed) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO feeds (title, url, site_url, description, created_at)
VALUES (?, ?, ?, ?, ?)
`, feed.Title, feed.URL, feed.SiteURL, feed.Description, now())
	if err != nil {
		return 0, fmt.Errorf("insert feed %q: %w", feed.URL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("feed insert id: %w", err)
	}
	return id, nil
}

func (r *Repository) ListFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, url, site_url, description, last_fetched, created_at
FROM feeds
ORDER BY title
`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	feeds := make([]Feed, 0, 16)
	for rows.Next() {
		var feed Feed
		var siteURL, description, lastFetched sql.NullString
		var createdAt string
		if err := rows.Scan(&feed.ID, &feed.Title, &feed.URL, &siteURL, &description, &lastFetched, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feed.SiteURL = siteURL.String
		feed.Description = description.String
		feed.LastFetched = parseTime(lastFetched.String)
		feed.CreatedAt = parseTime(createdAt)
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return feeds, nil
}

func (r *Repository) TouchFeedFetched(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE feeds SET last_fetched = ? WHERE id = ?`, now(), id); err != nil {
		return fmt.Errorf("touch feed %d: %w", id, err)
	}
	return nil
}

// DeleteFeed removes a feed and everything hanging off it.
func (r *Repository) DeleteFeed(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{
		`DELETE FROM summaries WHERE article_id IN (SELECT id FROM articles WHERE feed_id = ?)`,
		`DELETE FROM saved_bookmarks WHERE article_id IN (SELECT id FROM articles WHERE feed_id = ?)`,
		`DELETE FROM articles WHERE feed_id = ?`,
		`DELETE FROM deleted_articles WHERE feed_id = ?`,
		`DELETE FROM feeds WHERE id = ?`,
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete feed %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Article operations

// UpsertArticles inserts or refreshes a batch, skipping guids the user has
// deleted. Returns the number of rows written.
func (r *Repository) UpsertArticles(ctx context.Context, articles []NewArticle) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO articles (feed_id, guid, title, url, author, content, content_text, published_at, fetched_at)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE NOT EXISTS (SELECT 1 FROM deleted_articles WHERE feed_id = ? AND guid = ?)
ON CONFLICT(feed_id, guid) DO UPDATE SET
  title=excluded.title,
  url=excluded.url,
  author=excluded.author,
  content=excluded.content,
  content_text=excluded.content_text,
  published_at=excluded.published_at
`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert statement: %w", err)
	}
	defer stmt.Close()

	fetchedAt := now()
	written := 0
	for _, article := range articles {
		var publishedAt any
		if !article.PublishedAt.IsZero() {
			publishedAt = article.PublishedAt.UTC().Format(time.RFC3339Nano)
		}
		res, err := stmt.ExecContext(ctx,
			article.FeedID, article.GUID, article.Title, article.URL, article.Author,
			article.Content, article.ContentText, publishedAt, fetchedAt,
			article.FeedID, article.GUID,
		)
		if err != nil {
			return written, fmt.Errorf("upsert article %q: %w", article.GUID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("commit tx: %w", err)
	}
	return written, nil
}

func (r *Repository) ListArticles(ctx context.Context, limit int) ([]Article, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT a.id, a.feed_id, a.guid, a.title, a.url, a.author, a.content, a.content_text,
       a.published_at, a.fetched_at, f.title
FROM articles a
JOIN feeds f ON a.feed_id = f.id
ORDER BY COALESCE(a.published_at, a.fetched_at) DESC, a.fetched_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]Article, 0, limit)
	for rows.Next() {
		var article Article
		var author, content, contentText, publishedAt sql.NullString
		var fetchedAt string
		if err := rows.Scan(
			&article.ID, &article.FeedID, &article.GUID, &article.Title, &article.URL,
			&author, &content, &contentText, &publishedAt, &fetchedAt, &article.FeedTitle,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		article.Author = author.String
		article.Content = content.String
		article.ContentText = contentText.String
		article.PublishedAt = parseTime(publishedAt.String)
		article.FetchedAt = parseTime(fetchedAt)
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// DeleteArticle tombstones the article's guid so a refresh cannot bring it
// back, then removes the row and its summary/bookmark records.
func (r *Repository) DeleteArticle(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO deleted_articles (feed_id, guid, deleted_at)
SELECT feed_id, guid, ? FROM articles WHERE id = ?
`, now(), id); err != nil {
		return fmt.Errorf("tombstone article %d: %w", id, err)
	}
	for _, stmt := range []string{
		`DELETE FROM summaries WHERE article_id = ?`,
		`DELETE FROM saved_bookmarks WHERE article_id = ?`,
		`DELETE FROM articles WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete article %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UndeleteArticle drops the tombstone so the next refresh re-adds the entry.
func (r *Repository) UndeleteArticle(ctx context.Context, feedID int64, guid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM deleted_articles WHERE feed_id = ? AND guid = ?`, feedID, guid); err != nil {
		return fmt.Errorf("undelete article %q: %w", guid, err)
	}
	return nil
}

// LastDeleted returns the most recently tombstoned (feed, guid) pair, for the
// single-level undo the u key offers.
func (r *Repository) LastDeleted(ctx context.Context) (int64, string, error) {
	var feedID int64
	var guid string
	err := r.db.QueryRowContext(ctx, `
SELECT feed_id, guid FROM deleted_articles ORDER BY deleted_at DESC LIMIT 1
`).Scan(&feedID, &guid)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("query last deleted: %w", err)
	}
	return feedID, guid, nil
}

// DeleteOlderThan prunes articles past the retention window, preferring
// published_at and falling back to fetched_at. Returns rows removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	if days < 1 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const oldArticles = `
SELECT id FROM articles
WHERE COALESCE(published_at, fetched_at) < ?
`
	for _, stmt := range []string{
		`DELETE FROM summaries WHERE article_id IN (` + oldArticles + `)`,
		`DELETE FROM saved_bookmarks WHERE article_id IN (` + oldArticles + `)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, cutoff); err != nil {
			return 0, fmt.Errorf("prune dependents: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE COALESCE(published_at, fetched_at) < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune articles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM deleted_articles WHERE deleted_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("prune tombstones: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	deleted, _ := res.RowsAffected()
	return int(deleted), nil
}

// Summary operations

// SaveSummary writes the whole summary for an article, replacing any previous
// one. Summaries are never partially updated.
func (r *Repository) SaveSummary(ctx context.Context, articleID int64, content, modelVersion string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO summaries (article_id, content, model_version, generated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(article_id) DO UPDATE SET
  content=excluded.content,
  model_version=excluded.model_version,
  generated_at=excluded.generated_at
`, articleID, content, modelVersion, now())
	if err != nil {
		return fmt.Errorf("save summary for article %d: %w", articleID, err)
	}
	return nil
}

func (r *Repository) GetSummary(ctx context.Context, articleID int64) (*Summary, error) {
	var summary Summary
	var generatedAt string
	err := r.db.QueryRowContext(ctx, `
SELECT article_id, content, model_version, generated_at FROM summaries WHERE article_id = ?
`, articleID).Scan(&summary.ArticleID, &summary.Content, &summary.ModelVersion, &generatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query summary for article %d: %w", articleID, err)
	}
	summary.GeneratedAt = parseTime(generatedAt)
	return &summary, nil
}

// Bookmark tracking

func (r *Repository) MarkBookmarked(ctx context.Context, articleID, raindropID int64, tags []string) error {
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode bookmark tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT OR REPLACE INTO saved_bookmarks (article_id, raindrop_id, tags, saved_at)
VALUES (?, ?, ?, ?)
`, articleID, raindropID, string(encoded), now())
	if err != nil {
		return fmt.Errorf("mark article %d bookmarked: %w", articleID, err)
	}
	return nil
}

func (r *Repository) BookmarkedArticleIDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT article_id FROM saved_bookmarks`)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// SummarizedArticleIDs reports which articles already carry a stored summary,
// used to decorate the list view.
func (r *Repository) SummarizedArticleIDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT article_id FROM summaries`)
	if err != nil {
		return nil, fmt.Errorf("query summarized ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan summarized id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if strings.TrimSpace(s) == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
