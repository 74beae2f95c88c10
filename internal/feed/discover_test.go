package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscover_FindsAlternateLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!doctype html>
<html><head>
  <title>Example</title>
  <link rel="alternate" type="application/rss+xml" title="Posts" href="/feed.xml">
  <link rel="alternate" type="application/atom+xml" title="Atom" href="https://example.com/atom.xml">
  <link rel="alternate" type="application/rss+xml" href="/feed.xml">
  <link rel="stylesheet" href="/style.css">
</head><body></body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client())
	feeds, err := fetcher.Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("expected 2 deduplicated feeds, got %d: %+v", len(feeds), feeds)
	}
	if feeds[0].URL != server.URL+"/feed.xml" {
		t.Errorf("relative href not resolved: %q", feeds[0].URL)
	}
	if feeds[0].Title != "Posts" {
		t.Errorf("Title = %q, want %q", feeds[0].Title, "Posts")
	}
	if feeds[1].URL != "https://example.com/atom.xml" {
		t.Errorf("absolute href changed: %q", feeds[1].URL)
	}
}

func TestDiscover_DirectFeedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client())
	feeds, err := fetcher.Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(feeds) != 1 || feeds[0].URL != server.URL {
		t.Fatalf("expected the url itself back, got %+v", feeds)
	}
}

func TestDiscover_NoFeeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Nothing here</title></head><body></body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client())
	if _, err := fetcher.Discover(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error when page has no feeds")
	}
}
