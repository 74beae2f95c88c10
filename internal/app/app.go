// Package app wires the fetcher, summarizer, bookmark client and cache into
// the operations the TUI and the headless driver invoke.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/glabrego/beatcheck/internal/feed"
	"github.com/glabrego/beatcheck/internal/raindrop"
	"github.com/glabrego/beatcheck/internal/storage"
	"github.com/glabrego/beatcheck/internal/summarize"
)

var (
	ErrNoSummarizer = errors.New("summarization is not configured: set ANTHROPIC_API_KEY")
	ErrNoBookmarker = errors.New("bookmarking is not configured: set RAINDROP_TOKEN")
)

type Store interface {
	ListFeeds(ctx context.Context) ([]storage.Feed, error)
	InsertFeed(ctx context.Context, feed storage.NewFeed) (int64, error)
	DeleteFeed(ctx context.Context, id int64) error
	TouchFeedFetched(ctx context.Context, id int64) error
	UpsertArticles(ctx context.Context, articles []storage.NewArticle) (int, error)
	ListArticles(ctx context.Context, limit int) ([]storage.Article, error)
	DeleteArticle(ctx context.Context, id int64) error
	UndeleteArticle(ctx context.Context, feedID int64, guid string) error
	LastDeleted(ctx context.Context) (int64, string, error)
	DeleteOlderThan(ctx context.Context, days int) (int, error)
	SaveSummary(ctx context.Context, articleID int64, content, modelVersion string) error
	GetSummary(ctx context.Context, articleID int64) (*storage.Summary, error)
	MarkBookmarked(ctx context.Context, articleID, raindropID int64, tags []string) error
	BookmarkedArticleIDs(ctx context.Context) (map[int64]bool, error)
	SummarizedArticleIDs(ctx context.Context) (map[int64]bool, error)
}

type Fetcher interface {
	FetchAll(ctx context.Context, feeds []storage.Feed) []feed.FeedBatch
	FetchMeta(ctx context.Context, feedURL string) (storage.NewFeed, error)
	Discover(ctx context.Context, pageURL string) ([]feed.DiscoveredFeed, error)
}

type Summarizer interface {
	Generate(ctx context.Context, title, content string) (string, error)
	ModelVersion() string
}

type Bookmarker interface {
	Create(ctx context.Context, bookmark raindrop.Bookmark) (int64, error)
}

type Service struct {
	store      Store
	fetcher    Fetcher
	summarizer Summarizer
	bookmarker Bookmarker
	retention  int
	logger     *zap.Logger
}

// NewService builds the application service. summarizer and bookmarker may be
// nil when the corresponding credential is absent; the operations that need
// them return a sentinel error instead.
func NewService(store Store, fetcher Fetcher, summarizer Summarizer, bookmarker Bookmarker, retentionDays int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		fetcher:    fetcher,
		summarizer: summarizer,
		bookmarker: bookmarker,
		retention:  retentionDays,
		logger:     logger,
	}
}

// RefreshResult is what a background refresh hands back to the UI thread.
// It carries no store mutations; ApplyRefresh performs those.
type RefreshResult struct {
	Batches    []feed.FeedBatch
	FeedsTried int
	FeedsOK    int
}

// FetchAll downloads every subscribed feed. Network only; safe to run off the
// UI goroutine.
func (s *Service) FetchAll(ctx context.Context) (RefreshResult, error) {
	feeds, err := s.store.ListFeeds(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("load feeds from cache: %w", err)
	}
	if len(feeds) == 0 {
		return RefreshResult{}, nil
	}

	batches := s.fetcher.FetchAll(ctx, feeds)
	result := RefreshResult{Batches: batches, FeedsTried: len(batches)}
	for _, batch := range batches {
		if batch.Err == nil {
			result.FeedsOK++
		} else {
			s.logger.Warn("feed fetch failed", zap.String("url", batch.FeedURL), zap.Error(batch.Err))
		}
	}
	return result, nil
}

// ApplyRefresh writes fetched batches into the cache and prunes old rows.
// Runs on the UI side so the store has a single writer.
func (s *Service) ApplyRefresh(ctx context.Context, result RefreshResult) (int, error) {
	written := 0
	for _, batch := range result.Batches {
		if batch.Err != nil {
			continue
		}
		n, err := s.store.UpsertArticles(ctx, batch.Articles)
		if err != nil {
			return written, fmt.Errorf("save articles for feed %d: %w", batch.FeedID, err)
		}
		written += n
		if err := s.store.TouchFeedFetched(ctx, batch.FeedID); err != nil {
			return written, fmt.Errorf("mark feed %d fetched: %w", batch.FeedID, err)
		}
	}

	if s.retention > 0 {
		pruned, err := s.store.DeleteOlderThan(ctx, s.retention)
		if err != nil {
			return written, fmt.Errorf("prune old articles: %w", err)
		}
		if pruned > 0 {
			s.logger.Info("pruned old articles", zap.Int("count", pruned))
		}
	}

	s.logger.Info("refresh applied",
		zap.Int("feeds_ok", result.FeedsOK),
		zap.Int("feeds_tried", result.FeedsTried),
		zap.Int("articles_written", written))
	return written, nil
}

// RefreshOnce fetches and applies in one call, for the headless driver.
func (s *Service) RefreshOnce(ctx context.Context) (int, error) {
	result, err := s.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	written, err := s.ApplyRefresh(ctx, result)
	if err != nil {
		return written, err
	}
	if result.FeedsTried > 0 && result.FeedsOK == 0 {
		return written, fmt.Errorf("all %d feeds failed to refresh", result.FeedsTried)
	}
	return written, nil
}

// Discover resolves a URL into candidate feeds. Network only.
func (s *Service) Discover(ctx context.Context, pageURL string) ([]feed.DiscoveredFeed, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, errors.New("feed url is empty")
	}
	if !strings.Contains(pageURL, "://") {
		pageURL = "https://" + pageURL
	}
	return s.fetcher.Discover(ctx, pageURL)
}

// ResolveFeed discovers a feed at the URL and fetches its metadata. Network
// only; SubscribeFeed performs the write.
func (s *Service) ResolveFeed(ctx context.Context, pageURL string) (storage.NewFeed, error) {
	discovered, err := s.Discover(ctx, pageURL)
	if err != nil {
		return storage.NewFeed{}, err
	}
	return s.fetcher.FetchMeta(ctx, discovered[0].URL)
}

// SubscribeFeed stores a resolved feed. UI-side write.
func (s *Service) SubscribeFeed(ctx context.Context, meta storage.NewFeed) (storage.Feed, error) {
	id, err := s.store.InsertFeed(ctx, meta)
	if err != nil {
		return storage.Feed{}, fmt.Errorf("subscribe to %q: %w", meta.URL, err)
	}
	s.logger.Info("feed added", zap.String("url", meta.URL), zap.String("title", meta.Title))
	return storage.Feed{ID: id, Title: meta.Title, URL: meta.URL, SiteURL: meta.SiteURL}, nil
}

// AddFeed resolves and subscribes in one call, for the headless driver.
func (s *Service) AddFeed(ctx context.Context, feedURL string) (storage.Feed, error) {
	meta, err := s.ResolveFeed(ctx, feedURL)
	if err != nil {
		return storage.Feed{}, err
	}
	return s.SubscribeFeed(ctx, meta)
}

// ImportFeeds subscribes to every feed in the list, skipping duplicates.
// Returns how many were added.
func (s *Service) ImportFeeds(ctx context.Context, feeds []storage.NewFeed) (int, error) {
	existing, err := s.store.ListFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("load feeds from cache: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		known[f.URL] = struct{}{}
	}

	added := 0
	for _, f := range feeds {
		if _, dup := known[f.URL]; dup {
			continue
		}
		if _, err := s.store.InsertFeed(ctx, f); err != nil {
			return added, fmt.Errorf("subscribe to %q: %w", f.URL, err)
		}
		known[f.URL] = struct{}{}
		added++
	}
	return added, nil
}

// SummaryResult is what a background summarization hands back to the UI.
type SummaryResult struct {
	ArticleID    int64
	Content      string
	ModelVersion string
}

// Summarize generates a summary for the article. Articles with no usable text
// get the insufficient-content sentinel without an API call. Network only;
// the caller stores the result via SaveSummary.
func (s *Service) Summarize(ctx context.Context, article storage.Article) (SummaryResult, error) {
	if s.summarizer == nil {
		return SummaryResult{}, ErrNoSummarizer
	}

	content := strings.TrimSpace(article.ContentText)
	if content == "" {
		content = feed.HTMLToText(article.Content)
	}
	if content == "" {
		return SummaryResult{
			ArticleID:    article.ID,
			Content:      summarize.SentinelInsufficient,
			ModelVersion: s.summarizer.ModelVersion(),
		}, nil
	}

	generated, err := s.summarizer.Generate(ctx, article.Title, content)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("summarize %q: %w", article.Title, err)
	}
	return SummaryResult{
		ArticleID:    article.ID,
		Content:      generated,
		ModelVersion: s.summarizer.ModelVersion(),
	}, nil
}

// SaveSummary persists a generated summary. UI-side write.
func (s *Service) SaveSummary(ctx context.Context, result SummaryResult) error {
	if err := s.store.SaveSummary(ctx, result.ArticleID, result.Content, result.ModelVersion); err != nil {
		return err
	}
	s.logger.Info("summary saved",
		zap.Int64("article_id", result.ArticleID),
		zap.String("model", result.ModelVersion))
	return nil
}

// BookmarkResult reports a saved bookmark back to the UI.
type BookmarkResult struct {
	ArticleID  int64
	RaindropID int64
	Tags       []string
}

// Bookmark forwards the article to Raindrop. The excerpt is the first clean
// sentence of the stored summary; articles without a summary go over with no
// excerpt and let Raindrop parse the page.
func (s *Service) Bookmark(ctx context.Context, article storage.Article, tags []string) (BookmarkResult, error) {
	if s.bookmarker == nil {
		return BookmarkResult{}, ErrNoBookmarker
	}

	var excerpt string
	if summary, err := s.store.GetSummary(ctx, article.ID); err != nil {
		return BookmarkResult{}, fmt.Errorf("load summary for %q: %w", article.Title, err)
	} else if summary != nil && !summarize.IsSentinel(summary.Content) {
		excerpt = summarize.Excerpt(summary.Content)
	}

	id, err := s.bookmarker.Create(ctx, raindrop.Bookmark{
		URL:     article.URL,
		Title:   article.Title,
		Excerpt: excerpt,
		Tags:    tags,
	})
	if err != nil {
		return BookmarkResult{}, fmt.Errorf("bookmark %q: %w", article.Title, err)
	}
	s.logger.Info("bookmark saved",
		zap.Int64("article_id", article.ID),
		zap.Int64("raindrop_id", id),
		zap.Strings("tags", tags))
	return BookmarkResult{ArticleID: article.ID, RaindropID: id, Tags: tags}, nil
}

// MarkBookmarked records a successful bookmark in the cache. UI-side write.
func (s *Service) MarkBookmarked(ctx context.Context, result BookmarkResult) error {
	return s.store.MarkBookmarked(ctx, result.ArticleID, result.RaindropID, result.Tags)
}

// ListArticles loads the cached article list with its decoration sets.
func (s *Service) ListArticles(ctx context.Context, limit int) ([]storage.Article, map[int64]bool, map[int64]bool, error) {
	articles, err := s.store.ListArticles(ctx, limit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load articles from cache: %w", err)
	}
	summarized, err := s.store.SummarizedArticleIDs(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load summarized ids: %w", err)
	}
	bookmarked, err := s.store.BookmarkedArticleIDs(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load bookmarked ids: %w", err)
	}
	return articles, summarized, bookmarked, nil
}

func (s *Service) ListFeeds(ctx context.Context) ([]storage.Feed, error) {
	return s.store.ListFeeds(ctx)
}

func (s *Service) GetSummary(ctx context.Context, articleID int64) (*storage.Summary, error) {
	return s.store.GetSummary(ctx, articleID)
}

func (s *Service) DeleteArticle(ctx context.Context, id int64) error {
	return s.store.DeleteArticle(ctx, id)
}

func (s *Service) DeleteFeed(ctx context.Context, id int64) error {
	return s.store.DeleteFeed(ctx, id)
}

// UndeleteLast clears the most recent tombstone. Returns false when there is
// nothing to undo.
func (s *Service) UndeleteLast(ctx context.Context) (bool, error) {
	feedID, guid, err := s.store.LastDeleted(ctx)
	if err != nil {
		return false, err
	}
	if guid == "" {
		return false, nil
	}
	if err := s.store.UndeleteArticle(ctx, feedID, guid); err != nil {
		return false, err
	}
	return true, nil
}
