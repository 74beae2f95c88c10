// Package feed fetches and parses RSS/Atom feeds and discovers feed URLs on
// ordinary web pages.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/glabrego/beatcheck/internal/storage"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "beatcheck/1.0 (+https://github.com/glabrego/beatcheck)"
	// Feeds fetched in parallel during a refresh.
	maxConcurrentFetches = 5
)

type Fetcher struct {
	http *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Fetcher{http: client}
}

// FeedBatch is the parsed result for one feed. Err is set when that feed
// could not be fetched; the batch still identifies the feed so the caller can
// report per-feed failures without aborting the refresh.
type FeedBatch struct {
	FeedID   int64
	FeedURL  string
	Articles []storage.NewArticle
	Err      error
}

// Fetch downloads and parses a single feed.
func (f *Fetcher) Fetch(ctx context.Context, feedID int64, feedURL string) ([]storage.NewArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %q: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %q: unexpected status %d", feedURL, resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", feedURL, err)
	}

	articles := make([]storage.NewArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		articles = append(articles, itemToArticle(feedID, item))
	}
	return articles, nil
}

// FetchAll fetches every feed with bounded concurrency and returns one batch
// per feed, ordered by feed id. It never writes to storage.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []storage.Feed) []FeedBatch {
	batches := make([]FeedBatch, len(feeds))
	sem := make(chan struct{}, maxConcurrentFetches)
	var wg sync.WaitGroup

	for i, feed := range feeds {
		wg.Add(1)
		go func(i int, feed storage.Feed) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			articles, err := f.Fetch(ctx, feed.ID, feed.URL)
			batches[i] = FeedBatch{FeedID: feed.ID, FeedURL: feed.URL, Articles: articles, Err: err}
		}(i, feed)
	}
	wg.Wait()

	sort.Slice(batches, func(a, b int) bool { return batches[a].FeedID < batches[b].FeedID })
	return batches
}

// FetchMeta downloads a feed and returns its metadata, used when adding a
// feed so the stored title comes from the feed itself.
func (f *Fetcher) FetchMeta(ctx context.Context, feedURL string) (storage.NewFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return storage.NewFeed{}, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return storage.NewFeed{}, fmt.Errorf("fetch feed %q: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return storage.NewFeed{}, fmt.Errorf("fetch feed %q: unexpected status %d", feedURL, resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return storage.NewFeed{}, fmt.Errorf("parse feed %q: %w", feedURL, err)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = feedURL
	}
	return storage.NewFeed{
		Title:       title,
		URL:         feedURL,
		SiteURL:     strings.TrimSpace(parsed.Link),
		Description: strings.TrimSpace(parsed.Description),
	}, nil
}

func itemToArticle(feedID int64, item *gofeed.Item) storage.NewArticle {
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	content := item.Content
	if content == "" {
		content = item.Description
	}
	var author string
	if len(item.Authors) > 0 {
		author = item.Authors[0].Name
	}
	var published time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}
	return storage.NewArticle{
		FeedID:      feedID,
		GUID:        guid,
		Title:       strings.TrimSpace(item.Title),
		URL:         item.Link,
		Author:      author,
		Content:     content,
		ContentText: HTMLToText(content),
		PublishedAt: published,
	}
}
