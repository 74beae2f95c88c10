package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoveredFeed is one feed URL found on a page.
type DiscoveredFeed struct {
	Title string
	URL   string
}

// Discover resolves a user-supplied URL to feed URLs. A URL that already
// serves a feed document is returned as-is; an HTML page is scanned for
// alternate links advertising RSS or Atom.
func (f *Fetcher) Discover(ctx context.Context, pageURL string) ([]DiscoveredFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %q: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page %q: unexpected status %d", pageURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if isFeedContentType(contentType) {
		return []DiscoveredFeed{{URL: pageURL}}, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page %q: %w", pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}

	seen := make(map[string]struct{})
	feeds := make([]DiscoveredFeed, 0, 2)
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, sel *goquery.Selection) {
		linkType, _ := sel.Attr("type")
		if !isFeedContentType(linkType) {
			return
		}
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		title, _ := sel.Attr("title")
		feeds = append(feeds, DiscoveredFeed{Title: strings.TrimSpace(title), URL: resolved})
	})

	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds found on %q", pageURL)
	}
	return feeds, nil
}

func isFeedContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	for _, marker := range []string{
		"application/rss+xml",
		"application/atom+xml",
		"application/feed+json",
		"application/xml",
		"text/xml",
	} {
		if strings.Contains(contentType, marker) {
			return true
		}
	}
	return false
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
