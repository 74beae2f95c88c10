package view

import (
	"strings"
	"testing"
	"time"

	"github.com/glabrego/beatcheck/internal/storage"
	"github.com/glabrego/beatcheck/internal/summarize"
	tuitheme "github.com/glabrego/beatcheck/internal/tui/theme"
)

func TestArticleLine_Markers(t *testing.T) {
	th := tuitheme.Default()
	article := storage.Article{Title: "Hello", FeedTitle: "Blog"}

	plain := ArticleLine(article, false, false, false, 120, th)
	if strings.Contains(plain, summaryMarker) || strings.Contains(plain, bookmarkMarker) {
		t.Errorf("unmarked article shows markers: %q", plain)
	}

	marked := ArticleLine(article, true, true, false, 120, th)
	if !strings.Contains(marked, summaryMarker) {
		t.Errorf("summarized article missing marker: %q", marked)
	}
	if !strings.Contains(marked, bookmarkMarker) {
		t.Errorf("bookmarked article missing marker: %q", marked)
	}
}

func TestDetailLines_IncludesSummary(t *testing.T) {
	th := tuitheme.Default()
	article := storage.Article{Title: "T", FeedTitle: "F", URL: "https://x", ContentText: "Body."}
	summary := &storage.Summary{Content: "What's happening: A thing."}

	joined := strings.Join(DetailLines(article, summary, 80, th), "\n")
	if !strings.Contains(joined, "Summary") {
		t.Errorf("detail missing summary label:\n%s", joined)
	}
	if !strings.Contains(joined, "A thing") {
		t.Errorf("detail missing summary body:\n%s", joined)
	}

	sentinel := &storage.Summary{Content: summarize.SentinelInsufficient}
	joined = strings.Join(DetailLines(article, sentinel, 80, th), "\n")
	if !strings.Contains(joined, "insufficient content") {
		t.Errorf("sentinel summary not labelled:\n%s", joined)
	}
}

func TestWrap(t *testing.T) {
	lines := wrap("one two three four five six seven eight nine ten", 20)
	for _, line := range lines {
		if len(line) > 20 {
			t.Errorf("line too long: %q", line)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six seven eight nine ten" {
		t.Errorf("words lost in wrap: %v", lines)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-48 * time.Hour), "2d"},
	}
	for _, tt := range tests {
		if got := relativeTime(tt.at, now); got != tt.want {
			t.Errorf("relativeTime(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
