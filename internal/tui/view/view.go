// Package view renders list rows, the detail pane and the surrounding chrome.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/glabrego/beatcheck/internal/storage"
	"github.com/glabrego/beatcheck/internal/summarize"
	tuitheme "github.com/glabrego/beatcheck/internal/tui/theme"
)

const (
	summaryMarker  = "◆"
	bookmarkMarker = "★"
)

func Toolbar(inDetail bool) string {
	if inDetail {
		return "j/k scroll | s summary | g regenerate | b bookmark | space+key tag | o open | esc back | ? help"
	}
	return "j/k move | enter read | r refresh | a add feed | s summary | b bookmark | d delete | ? help"
}

// ArticleLine renders one list row. Markers show at fixed positions so the
// titles stay aligned.
func ArticleLine(article storage.Article, summarized, bookmarked, active bool, width int, th tuitheme.Theme) string {
	sumMark := " "
	if summarized {
		sumMark = th.SummaryMark.Render(summaryMarker)
	}
	bookMark := " "
	if bookmarked {
		bookMark = th.BookmarkMark.Render(bookmarkMarker)
	}

	when := ""
	if !article.PublishedAt.IsZero() {
		when = relativeTime(article.PublishedAt, time.Now())
	}

	title := article.Title
	if title == "" {
		title = article.URL
	}
	meta := th.FeedName.Render(article.FeedTitle)
	if when != "" {
		meta += " " + th.Timestamp.Render(when)
	}

	line := fmt.Sprintf("%s%s %s  %s", sumMark, bookMark, th.ArticleTitle.Render(truncate(title, width-30)), meta)
	if active {
		return th.ActiveLine.Render("> ") + line
	}
	return "  " + line
}

// DetailLines builds the detail pane: header, body text, then the stored
// summary when one exists.
func DetailLines(article storage.Article, summary *storage.Summary, width int, th tuitheme.Theme) []string {
	lines := []string{
		th.Title.Render(article.Title),
		th.MetaLabel.Render("feed ") + th.MetaValue.Render(article.FeedTitle),
	}
	if article.Author != "" {
		lines = append(lines, th.MetaLabel.Render("by ")+th.MetaValue.Render(article.Author))
	}
	if !article.PublishedAt.IsZero() {
		lines = append(lines, th.MetaLabel.Render("published ")+th.MetaValue.Render(article.PublishedAt.Local().Format("2006-01-02 15:04")))
	}
	lines = append(lines, th.MetaLabel.Render("url ")+th.MetaValue.Render(article.URL), "")

	if summary != nil {
		label := "Summary"
		if summarize.IsSentinel(summary.Content) {
			label = "Summary (insufficient content)"
		}
		lines = append(lines, th.SummaryLabel.Render(label))
		for _, line := range strings.Split(summary.Content, "\n") {
			lines = append(lines, wrap(th.SummaryBody.Render(line), width)...)
		}
		lines = append(lines, "")
	}

	body := article.ContentText
	if body == "" {
		body = article.Content
	}
	for _, paragraph := range strings.Split(body, "\n") {
		lines = append(lines, wrap(paragraph, width)...)
	}
	return lines
}

func Footer(shown, feeds int, status string, warn bool, spinner string, th tuitheme.Theme) string {
	parts := []string{
		th.MetaValue.Render(fmt.Sprintf("%d articles", shown)),
		th.MetaLabel.Render("feeds") + " " + th.MetaValue.Render(fmt.Sprintf("%d", feeds)),
	}
	if spinner != "" {
		parts = append(parts, th.StateLoad.Render(spinner))
	}
	if status != "" {
		style := th.StateIdle
		if warn {
			style = th.StateWarn
		}
		parts = append(parts, style.Render(status))
	}
	return strings.Join(parts, " • ")
}

func HelpLines(quickTags map[string]string, th tuitheme.Theme) []string {
	entry := func(key, text string) string {
		return th.HelpKey.Render(fmt.Sprintf("%-9s", key)) + th.HelpText.Render(text)
	}
	lines := []string{
		th.Title.Render("Keys"),
		entry("j/k", "move / scroll"),
		entry("enter", "open article detail"),
		entry("o", "open in browser"),
		entry("r", "refresh all feeds"),
		entry("a", "add feed by url"),
		entry("s", "summarize article"),
		entry("g", "regenerate summary"),
		entry("b", "bookmark to raindrop"),
		entry("space+key", "bookmark with quick tag:"),
	}
	keys := make([]string, 0, len(quickTags))
	for key := range quickTags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, entry("  "+key, quickTags[key]))
	}
	lines = append(lines,
		entry("d", "delete article"),
		entry("D", "delete feed"),
		entry("u", "undo last delete"),
		entry("i", "import opml"),
		entry("w", "export opml"),
		entry("?", "toggle help"),
		entry("q", "quit"),
	)
	return lines
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func wrap(s string, width int) []string {
	if width < 10 {
		width = 10
	}
	s = strings.TrimRight(s, " \t")
	if s == "" {
		return []string{""}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	lines := make([]string, 0, 1+len(s)/width)
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
