package feed

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gilliek/go-opml/opml"

	"github.com/glabrego/beatcheck/internal/storage"
)

// ImportOPML reads an OPML subscription list and returns the feeds it names.
// Nested folders are flattened.
func ImportOPML(path string) ([]storage.NewFeed, error) {
	doc, err := opml.NewOPMLFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read opml %q: %w", path, err)
	}

	feeds := make([]storage.NewFeed, 0, 16)
	var walk func(outlines []opml.Outline)
	walk = func(outlines []opml.Outline) {
		for _, outline := range outlines {
			if url := strings.TrimSpace(outline.XMLURL); url != "" {
				title := strings.TrimSpace(outline.Title)
				if title == "" {
					title = strings.TrimSpace(outline.Text)
				}
				if title == "" {
					title = url
				}
				feeds = append(feeds, storage.NewFeed{
					Title:   title,
					URL:     url,
					SiteURL: strings.TrimSpace(outline.HTMLURL),
				})
			}
			walk(outline.Outlines)
		}
	}
	walk(doc.Body.Outlines)

	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds in opml %q", path)
	}
	return feeds, nil
}

type opmlExport struct {
	XMLName xml.Name    `xml:"opml"`
	Version string      `xml:"version,attr"`
	Head    opmlHead    `xml:"head"`
	Body    opmlExpBody `xml:"body"`
}

type opmlHead struct {
	Title       string `xml:"title"`
	DateCreated string `xml:"dateCreated"`
}

type opmlExpBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text    string `xml:"text,attr"`
	Title   string `xml:"title,attr"`
	Type    string `xml:"type,attr"`
	XMLURL  string `xml:"xmlUrl,attr"`
	HTMLURL string `xml:"htmlUrl,attr,omitempty"`
}

// ExportOPML writes the subscription list as a flat OPML document.
func ExportOPML(path string, feeds []storage.Feed) error {
	doc := opmlExport{
		Version: "2.0",
		Head: opmlHead{
			Title:       "beatcheck subscriptions",
			DateCreated: time.Now().UTC().Format(time.RFC1123Z),
		},
	}
	for _, feed := range feeds {
		doc.Body.Outlines = append(doc.Body.Outlines, opmlOutline{
			Text:    feed.Title,
			Title:   feed.Title,
			Type:    "rss",
			XMLURL:  feed.URL,
			HTMLURL: feed.SiteURL,
		})
	}

	encoded, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode opml: %w", err)
	}
	payload := []byte(xml.Header + string(encoded) + "\n")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write opml %q: %w", path, err)
	}
	return nil
}
