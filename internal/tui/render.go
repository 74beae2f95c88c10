package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/glabrego/beatcheck/internal/tui/view"
)

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	height := m.height
	if height <= 0 {
		height = 30
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("beatcheck"))
	b.WriteString("\n\n")

	switch {
	case m.showHelp:
		for _, line := range view.HelpLines(m.quickTags, m.theme) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	case m.inDetail:
		m.renderDetail(&b, width, height)
	default:
		m.renderList(&b, width, height)
	}

	b.WriteString("\n")
	if m.inputMode != inputNone {
		b.WriteString(m.theme.InputPrompt.Render(m.inputLabel()) + " " + m.input.View())
		b.WriteString("\n")
	} else if m.pendingTag {
		b.WriteString(m.theme.InputPrompt.Render("tag? " + quickTagHint(m.quickTags)))
		b.WriteString("\n")
	}
	b.WriteString(view.Footer(len(m.articles), m.feedCount, m.status, m.warn, m.spinner(), m.theme))
	b.WriteString("\n")
	b.WriteString(m.theme.MetaLabel.Render(view.Toolbar(m.inDetail)))
	return b.String()
}

func (m Model) renderList(b *strings.Builder, width, height int) {
	if len(m.articles) == 0 {
		b.WriteString(m.theme.MetaValue.Render("No articles yet. Press a to add a feed or r to refresh."))
		b.WriteString("\n")
		return
	}

	visible := height - 7
	if visible < 3 {
		visible = 3
	}
	top := 0
	if m.cursor >= visible {
		top = m.cursor - visible + 1
	}
	end := top + visible
	if end > len(m.articles) {
		end = len(m.articles)
	}

	for i := top; i < end; i++ {
		article := m.articles[i]
		b.WriteString(view.ArticleLine(article, m.summarized[article.ID], m.bookmarked[article.ID], i == m.cursor, width, m.theme))
		b.WriteString("\n")
	}
}

func (m Model) renderDetail(b *strings.Builder, width, height int) {
	article := m.currentArticle()
	if article == nil {
		return
	}
	lines := view.DetailLines(*article, m.summary, width-2, m.theme)

	visible := height - 7
	if visible < 3 {
		visible = 3
	}
	top := m.detailTop
	if max := len(lines) - visible; top > max {
		top = max
	}
	if top < 0 {
		top = 0
	}
	end := top + visible
	if end > len(lines) {
		end = len(lines)
	}
	for _, line := range lines[top:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if end < len(lines) {
		b.WriteString(m.theme.MetaLabel.Render(fmt.Sprintf("... %d more lines", len(lines)-end)))
		b.WriteString("\n")
	}
}

func (m Model) inputLabel() string {
	switch m.inputMode {
	case inputAddFeed:
		return "add feed:"
	case inputImportPath:
		return "import opml:"
	case inputExportPath:
		return "export opml:"
	}
	return ""
}

func quickTagHint(quickTags map[string]string) string {
	parts := make([]string, 0, len(quickTags))
	for key, tag := range quickTags {
		parts = append(parts, key+"="+tag)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
