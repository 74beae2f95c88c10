package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "beatcheck.db")
	repo, err := NewRepository(dbPath)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	return repo
}

func addFeed(t *testing.T, repo *Repository, url string) int64 {
	t.Helper()
	id, err := repo.InsertFeed(context.Background(), NewFeed{Title: "Feed " + url, URL: url})
	if err != nil {
		t.Fatalf("InsertFeed returned error: %v", err)
	}
	return id
}

func TestRepository_UpsertAndListArticles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	feedID := addFeed(t, repo, "https://example.com/feed.xml")

	articles := []NewArticle{
		{
			FeedID:      feedID,
			GUID:        "guid-old",
			Title:       "Older",
			URL:         "https://example.com/old",
			PublishedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			FeedID:      feedID,
			GUID:        "guid-new",
			Title:       "Newer",
			URL:         "https://example.com/new",
			PublishedAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
		},
	}
	written, err := repo.UpsertArticles(ctx, articles)
	if err != nil {
		t.Fatalf("UpsertArticles returned error: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 rows written, got %d", written)
	}

	listed, err := repo.ListArticles(ctx, 10)
	if err != nil {
		t.Fatalf("ListArticles returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(listed))
	}
	if listed[0].GUID != "guid-new" {
		t.Fatalf("expected newest first, got guid=%q", listed[0].GUID)
	}
	if listed[0].FeedTitle == "" {
		t.Fatalf("expected feed title to be joined in")
	}
}

func TestRepository_UpsertArticles_UpdatesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	feedID := addFeed(t, repo, "https://example.com/feed.xml")

	first := []NewArticle{{FeedID: feedID, GUID: "g1", Title: "Draft", URL: "https://example.com/a"}}
	if _, err := repo.UpsertArticles(ctx, first); err != nil {
		t.Fatalf("first upsert returned error: %v", err)
	}
	second := []NewArticle{{FeedID: feedID, GUID: "g1", Title: "Final", URL: "https://example.com/a"}}
	if _, err := repo.UpsertArticles(ctx, second); err != nil {
		t.Fatalf("second upsert returned error: %v", err)
	}

	listed, err := repo.ListArticles(ctx, 10)
	if err != nil {
		t.Fatalf("ListArticles returned error: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 article after re-upsert, got %d", len(listed))
	}
	if listed[0].Title != "Final" {
		t.Fatalf("expected updated title, got %q", listed[0].Title)
	}
}

func TestRepository_DeleteArticle_TombstoneBlocksRefresh(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	feedID := addFeed(t, repo, "https://example.com/feed.xml")

	if _, err := repo.UpsertArticles(ctx, []NewArticle{{FeedID: feedID, GUID: "g1", Title: "A", URL: "u"}}); err != nil {
		t.Fatalf("UpsertArticles returned error: %v", err)
	}
	listed, _ := repo.ListArticles(ctx, 10)
	if err := repo.DeleteArticle(ctx, listed[0].ID); err != nil {
		t.Fatalf("DeleteArticle returned error: %v", err)
	}

	// A refresh delivering the same guid must not resurrect it.
	if _, err := repo.UpsertArticles(ctx, []NewArticle{{FeedID: feedID, GUID: "g1", Title: "A", URL: "u"}}); err != nil {
		t.Fatalf("re-upsert returned error: %v", err)
	}
	listed, _ = repo.ListArticles(ctx, 10)
	if len(listed) != 0 {
		t.Fatalf("expected tombstoned article to stay gone, got %d articles", len(listed))
	}

	// Undelete clears the tombstone and the next refresh brings it back.
	gotFeed, gotGUID, err := repo.LastDeleted(ctx)
	if err != nil {
		t.Fatalf("LastDeleted returned error: %v", err)
	}
	if gotFeed != feedID || gotGUID != "g1" {
		t.Fatalf("LastDeleted = (%d, %q), want (%d, %q)", gotFeed, gotGUID, feedID, "g1")
	}
	if err := repo.UndeleteArticle(ctx, feedID, "g1"); err != nil {
		t.Fatalf("UndeleteArticle returned error: %v", err)
	}
	if _, err := repo.UpsertArticles(ctx, []NewArticle{{FeedID: feedID, GUID: "g1", Title: "A", URL: "u"}}); err != nil {
		t.Fatalf("post-undelete upsert returned error: %v", err)
	}
	listed, _ = repo.ListArticles(ctx, 10)
	if len(listed) != 1 {
		t.Fatalf("expected undeleted article back after refresh, got %d", len(listed))
	}
}

func TestRepository_DeleteFeed_RemovesDependents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	feedID := addFeed(t, repo, "https://example.com/feed.xml")

	if _, err := repo.UpsertArticles(ctx, []NewArticle{{FeedID: feedID, GUID: "g1", Title: "A", URL: "u"}}); err != nil {
		t.Fatalf("UpsertArticles returned error: %v", err)
	}
	listed, _ := repo.ListArticles(ctx, 10)
	if err := repo.SaveSummary(ctx, listed[0].ID, "summary text", "model-x"); err != nil {
		t.Fatalf("SaveSummary returned error: %v", err)
	}

	if err := repo.DeleteFeed(ctx, feedID); err != nil {
		t.Fatalf("DeleteFeed returned error: %v", err)
	}
	feeds, err := repo.ListFeeds(ctx)
	if err != nil {
		t.Fatalf("ListFeeds returned error: %v", err)
	}
	if len(feeds) != 0 {
		t.Fatalf("expected no feeds, got %d", len(feeds))
	}
	articles, _ := repo.ListArticles(ctx, 10)
	if len(articles) != 0 {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
}

func TestRepository_SummaryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	feedID := addFeed(t, repo, "https://example.com/feed.xml")
	if _, err := repo.UpsertArticles(ctx, []NewArticle{{FeedID: feedID, GUID: "g1", Title: "A", URL: "u"}}); err != nil {
		t.Fatalf("UpsertArticles returned error: %v", err)
	}
	listed, _ := repo.ListArticles(ctx, 10)
	articleID := listed[0].ID

	got, err := repo.GetSummary(ctx, articleID)
	if err != nil {
		t.Fatalf("GetSummary returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil summary before save, got %+v", got)
	}

	if err := repo.SaveSummary(ctx, articleID, "first version", "model-1"); err != nil {
		t.Fatalf("SaveSummary returned error: %v", err)
	}
	if err := repo.SaveSummary(ctx, articleID, "second version", "model-2"); err != nil {
		t.Fatalf("SaveSummary replace returned error: %v", err)
	}

	got, err = repo.GetSummary(ctx, articleID)
	if err != nil {
		t.Fatalf("GetSummary returned error: %v", err)
	}
	if got == nil || got.Content != "second version" || got.ModelVersion != "model-2" {
		t.Fatalf("unexpected summary after replace: %+v", got)
	}

	ids, err := repo.SummarizedArticleIDs(ctx)
	if err != nil {
		t.Fatalf("SummarizedArticleIDs returned error: %v", err)
	}
	if !ids[articleID] {
		t.Fatalf("expected article %d in summarized set", articleID)
	}
}

func TestRepository_Bookmarks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	feedID := addFeed(t, repo, "https://example.com/feed.xml")
	if _, err := repo.UpsertArticles(ctx, []NewArticle{{FeedID: feedID, GUID: "g1", Title: "A", URL: "u"}}); err != nil {
		t.Fatalf("UpsertArticles returned error: %v", err)
	}
	listed, _ := repo.ListArticles(ctx, 10)

	if err := repo.MarkBookmarked(ctx, listed[0].ID, 4242, []string{"twit"}); err != nil {
		t.Fatalf("MarkBookmarked returned error: %v", err)
	}
	ids, err := repo.BookmarkedArticleIDs(ctx)
	if err != nil {
		t.Fatalf("BookmarkedArticleIDs returned error: %v", err)
	}
	if !ids[listed[0].ID] {
		t.Fatalf("expected article %d in bookmarked set", listed[0].ID)
	}
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	feedID := addFeed(t, repo, "https://example.com/feed.xml")

	articles := []NewArticle{
		{FeedID: feedID, GUID: "fresh", Title: "Fresh", URL: "u1", PublishedAt: time.Now().UTC()},
		{FeedID: feedID, GUID: "stale", Title: "Stale", URL: "u2", PublishedAt: time.Now().UTC().AddDate(0, 0, -90)},
	}
	if _, err := repo.UpsertArticles(ctx, articles); err != nil {
		t.Fatalf("UpsertArticles returned error: %v", err)
	}

	deleted, err := repo.DeleteOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("DeleteOlderThan returned error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned article, got %d", deleted)
	}
	listed, _ := repo.ListArticles(ctx, 10)
	if len(listed) != 1 || listed[0].GUID != "fresh" {
		t.Fatalf("expected only the fresh article to survive, got %+v", listed)
	}
}
