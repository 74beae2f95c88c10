// Package tui implements the interactive reader on top of bubbletea. All
// store writes happen here on the update goroutine; background slots only
// fetch and compute.
package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/beatcheck/internal/app"
	"github.com/glabrego/beatcheck/internal/feed"
	"github.com/glabrego/beatcheck/internal/storage"
	"github.com/glabrego/beatcheck/internal/task"
	tuitheme "github.com/glabrego/beatcheck/internal/tui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	listLimit    = 500
)

type Service interface {
	ListArticles(ctx context.Context, limit int) ([]storage.Article, map[int64]bool, map[int64]bool, error)
	ListFeeds(ctx context.Context) ([]storage.Feed, error)
	FetchAll(ctx context.Context) (app.RefreshResult, error)
	ApplyRefresh(ctx context.Context, result app.RefreshResult) (int, error)
	ResolveFeed(ctx context.Context, pageURL string) (storage.NewFeed, error)
	SubscribeFeed(ctx context.Context, meta storage.NewFeed) (storage.Feed, error)
	ImportFeeds(ctx context.Context, feeds []storage.NewFeed) (int, error)
	Summarize(ctx context.Context, article storage.Article) (app.SummaryResult, error)
	SaveSummary(ctx context.Context, result app.SummaryResult) error
	GetSummary(ctx context.Context, articleID int64) (*storage.Summary, error)
	Bookmark(ctx context.Context, article storage.Article, tags []string) (app.BookmarkResult, error)
	MarkBookmarked(ctx context.Context, result app.BookmarkResult) error
	DeleteArticle(ctx context.Context, id int64) error
	DeleteFeed(ctx context.Context, id int64) error
	UndeleteLast(ctx context.Context) (bool, error)
}

type tickMsg time.Time

// initRefreshMsg starts the initial refresh from inside Update so its status
// message lands on the live model rather than Init's discarded copy.
type initRefreshMsg struct{}

type bookmarkDoneMsg struct {
	result app.BookmarkResult
	err    error
}

type clearStatusMsg struct {
	id int
}

type inputMode int

const (
	inputNone inputMode = iota
	inputAddFeed
	inputImportPath
	inputExportPath
)

type Model struct {
	service Service
	theme   tuitheme.Theme

	articles   []storage.Article
	summarized map[int64]bool
	bookmarked map[int64]bool
	feedCount  int

	cursor    int
	inDetail  bool
	detailTop int
	summary   *storage.Summary
	showHelp  bool
	width     int
	height    int

	refreshSlot *task.Slot[app.RefreshResult]
	addFeedSlot *task.Slot[storage.NewFeed]
	summarySlot *task.Slot[app.SummaryResult]

	input     textinput.Model
	inputMode inputMode

	pendingTag bool
	quickTags  map[string]string

	importOPML func(path string) ([]storage.NewFeed, error)
	exportOPML func(path string, feeds []storage.Feed) error
	openURLFn  func(url string) error

	status   string
	warn     bool
	statusID int
}

func NewModel(service Service, quickTags map[string]string) Model {
	input := textinput.New()
	input.CharLimit = 512
	input.Width = 60

	m := Model{
		service:     service,
		theme:       tuitheme.Default(),
		summarized:  make(map[int64]bool),
		bookmarked:  make(map[int64]bool),
		refreshSlot: task.NewSlot[app.RefreshResult](),
		addFeedSlot: task.NewSlot[storage.NewFeed](),
		summarySlot: task.NewSlot[app.SummaryResult](),
		input:       input,
		quickTags:   quickTags,
		importOPML:  feed.ImportOPML,
		exportOPML:  feed.ExportOPML,
		openURLFn:   openURLInBrowser,
	}
	m.reloadArticles()
	return m
}

func (m *Model) reloadArticles() {
	ctx := context.Background()
	articles, summarized, bookmarked, err := m.service.ListArticles(ctx, listLimit)
	if err != nil {
		m.status = err.Error()
		m.warn = true
		return
	}
	m.articles = articles
	m.summarized = summarized
	m.bookmarked = bookmarked
	if feeds, err := m.service.ListFeeds(ctx); err == nil {
		m.feedCount = len(feeds)
	}
	if m.cursor >= len(m.articles) {
		m.cursor = len(m.articles) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(scheduleTick(), func() tea.Msg { return initRefreshMsg{} })
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m.handleTick()
	case initRefreshMsg:
		return m, m.startRefresh()
	case bookmarkDoneMsg:
		return m.handleBookmarkDone(msg)
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
			m.warn = false
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleTick drives the background slots: advance spinners while work runs,
// drain finished outcomes and apply their store writes here.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.refreshSlot.IsRunning() {
		m.refreshSlot.TickSpinner()
	}
	if m.addFeedSlot.IsRunning() {
		m.addFeedSlot.TickSpinner()
	}
	if m.summarySlot.IsRunning() {
		m.summarySlot.TickSpinner()
	}

	var cmds []tea.Cmd
	ctx := context.Background()

	if outcome, ok := m.refreshSlot.Poll(); ok {
		if outcome.Err != nil {
			cmds = append(cmds, m.setStatus(fmt.Sprintf("refresh failed: %v", outcome.Err), true))
		} else {
			written, err := m.service.ApplyRefresh(ctx, outcome.Value)
			if err != nil {
				cmds = append(cmds, m.setStatus(fmt.Sprintf("refresh failed: %v", err), true))
			} else {
				m.reloadArticles()
				cmds = append(cmds, m.setStatus(fmt.Sprintf("refreshed: %d articles from %d/%d feeds",
					written, outcome.Value.FeedsOK, outcome.Value.FeedsTried), false))
			}
		}
	}

	if outcome, ok := m.addFeedSlot.Poll(); ok {
		if outcome.Err != nil {
			cmds = append(cmds, m.setStatus(fmt.Sprintf("add feed failed: %v", outcome.Err), true))
		} else {
			added, err := m.service.SubscribeFeed(ctx, outcome.Value)
			if err != nil {
				cmds = append(cmds, m.setStatus(fmt.Sprintf("add feed failed: %v", err), true))
			} else {
				m.reloadArticles()
				cmds = append(cmds, m.setStatus(fmt.Sprintf("subscribed to %s", added.Title), false))
			}
		}
	}

	if outcome, ok := m.summarySlot.Poll(); ok {
		if outcome.Err != nil {
			cmds = append(cmds, m.setStatus(fmt.Sprintf("summary failed: %v", outcome.Err), true))
		} else {
			if err := m.service.SaveSummary(ctx, outcome.Value); err != nil {
				cmds = append(cmds, m.setStatus(fmt.Sprintf("summary failed: %v", err), true))
			} else {
				m.summarized[outcome.Value.ArticleID] = true
				if m.inDetail && m.currentArticle() != nil && m.currentArticle().ID == outcome.Value.ArticleID {
					m.summary, _ = m.service.GetSummary(ctx, outcome.Value.ArticleID)
				}
				cmds = append(cmds, m.setStatus("summary ready", false))
			}
		}
	}

	cmds = append(cmds, scheduleTick())
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}

	if m.pendingTag {
		m.pendingTag = false
		if tag, ok := m.quickTags[msg.String()]; ok {
			return m.bookmarkCurrent([]string{tag})
		}
		// Any other key cancels the prefix without comment.
		return m, nil
	}

	switch msg.String() {
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "ctrl+c", "q":
		return m, tea.Quit
	}

	if m.showHelp {
		if msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	// A key action retires whatever transient status is showing.
	m.status = ""
	m.warn = false

	if m.inDetail {
		return m.handleDetailKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.articles)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		article := m.currentArticle()
		if article == nil {
			return m, nil
		}
		m.inDetail = true
		m.detailTop = 0
		m.summary, _ = m.service.GetSummary(context.Background(), article.ID)
		if m.summary == nil {
			return m.startSummarize(*article)
		}
		return m, nil
	case "r":
		return m, m.tryStart(m.startRefresh, "refresh")
	case "a":
		m.inputMode = inputAddFeed
		m.input.Placeholder = "feed or site url"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil
	case "i":
		m.inputMode = inputImportPath
		m.input.Placeholder = "path to opml file"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil
	case "w":
		m.inputMode = inputExportPath
		m.input.Placeholder = "export path (.opml)"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil
	case "s":
		return m.summarizeCurrent(false)
	case "g":
		return m.summarizeCurrent(true)
	case "b":
		return m.bookmarkCurrent(nil)
	case " ":
		m.pendingTag = true
		return m, nil
	case "o":
		return m.openCurrent()
	case "d", "backspace":
		return m.deleteCurrentArticle()
	case "D":
		return m.deleteCurrentFeed()
	case "u":
		return m.undeleteLast()
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.inDetail = false
		m.detailTop = 0
		m.summary = nil
		return m, nil
	case "up", "k":
		if m.detailTop > 0 {
			m.detailTop--
		}
		return m, nil
	case "down", "j":
		m.detailTop++
		return m, nil
	case "s":
		return m.summarizeCurrent(false)
	case "g":
		return m.summarizeCurrent(true)
	case "b":
		return m.bookmarkCurrent(nil)
	case " ":
		m.pendingTag = true
		return m, nil
	case "o":
		return m.openCurrent()
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = inputNone
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.inputMode
		m.inputMode = inputNone
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		switch mode {
		case inputAddFeed:
			return m, m.tryStart(func() tea.Cmd { return m.startAddFeed(value) }, "add feed")
		case inputImportPath:
			return m.runImport(value)
		case inputExportPath:
			return m.runExport(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// tryStart reports the single-flight rejection as a status instead of
// queueing the request.
func (m *Model) tryStart(start func() tea.Cmd, what string) tea.Cmd {
	cmd := start()
	if cmd == nil {
		return m.setStatus(fmt.Sprintf("%s already running", what), true)
	}
	return cmd
}

// startRefresh launches a refresh in its slot. Returns nil when the slot is
// busy.
func (m *Model) startRefresh() tea.Cmd {
	err := m.refreshSlot.Start(func() (app.RefreshResult, error) {
		return m.service.FetchAll(context.Background())
	})
	if err != nil {
		return nil
	}
	return m.setStatus("refreshing...", false)
}

func (m *Model) startAddFeed(url string) tea.Cmd {
	err := m.addFeedSlot.Start(func() (storage.NewFeed, error) {
		return m.service.ResolveFeed(context.Background(), url)
	})
	if err != nil {
		return nil
	}
	return m.setStatus("resolving feed...", false)
}

func (m Model) summarizeCurrent(force bool) (tea.Model, tea.Cmd) {
	article := m.currentArticle()
	if article == nil {
		return m, nil
	}
	if !force && m.summarized[article.ID] {
		if m.inDetail {
			return m, m.setStatus("summary already stored", false)
		}
		m.inDetail = true
		m.detailTop = 0
		m.summary, _ = m.service.GetSummary(context.Background(), article.ID)
		return m, nil
	}

	return m.startSummarize(*article)
}

func (m Model) startSummarize(article storage.Article) (tea.Model, tea.Cmd) {
	err := m.summarySlot.Start(func() (app.SummaryResult, error) {
		return m.service.Summarize(context.Background(), article)
	})
	if err != nil {
		return m, m.setStatus("summarize already running", true)
	}
	return m, m.setStatus("summarizing...", false)
}

func (m Model) bookmarkCurrent(tags []string) (tea.Model, tea.Cmd) {
	article := m.currentArticle()
	if article == nil {
		return m, nil
	}
	if m.bookmarked[article.ID] {
		return m, m.setStatus("already bookmarked", false)
	}
	target := *article
	service := m.service
	return m, func() tea.Msg {
		result, err := service.Bookmark(context.Background(), target, tags)
		return bookmarkDoneMsg{result: result, err: err}
	}
}

func (m Model) handleBookmarkDone(msg bookmarkDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.setStatus(fmt.Sprintf("bookmark failed: %v", msg.err), true)
	}
	if err := m.service.MarkBookmarked(context.Background(), msg.result); err != nil {
		return m, m.setStatus(fmt.Sprintf("bookmark failed: %v", err), true)
	}
	m.bookmarked[msg.result.ArticleID] = true
	label := "bookmarked"
	if len(msg.result.Tags) > 0 {
		label = "bookmarked [" + strings.Join(msg.result.Tags, ",") + "]"
	}
	return m, m.setStatus(label, false)
}

func (m Model) deleteCurrentArticle() (tea.Model, tea.Cmd) {
	article := m.currentArticle()
	if article == nil {
		return m, nil
	}
	if err := m.service.DeleteArticle(context.Background(), article.ID); err != nil {
		return m, m.setStatus(fmt.Sprintf("delete failed: %v", err), true)
	}
	m.reloadArticles()
	return m, m.setStatus("article deleted (u to undo)", false)
}

func (m Model) deleteCurrentFeed() (tea.Model, tea.Cmd) {
	article := m.currentArticle()
	if article == nil {
		return m, nil
	}
	if err := m.service.DeleteFeed(context.Background(), article.FeedID); err != nil {
		return m, m.setStatus(fmt.Sprintf("delete feed failed: %v", err), true)
	}
	m.reloadArticles()
	return m, m.setStatus(fmt.Sprintf("unsubscribed from %s", article.FeedTitle), false)
}

func (m Model) undeleteLast() (tea.Model, tea.Cmd) {
	undone, err := m.service.UndeleteLast(context.Background())
	if err != nil {
		return m, m.setStatus(fmt.Sprintf("undo failed: %v", err), true)
	}
	if !undone {
		return m, m.setStatus("nothing to undo", false)
	}
	return m, m.setStatus("delete undone; article returns on next refresh", false)
}

func (m Model) runImport(path string) (tea.Model, tea.Cmd) {
	feeds, err := m.importOPML(path)
	if err != nil {
		return m, m.setStatus(fmt.Sprintf("import failed: %v", err), true)
	}
	added, err := m.service.ImportFeeds(context.Background(), feeds)
	if err != nil {
		return m, m.setStatus(fmt.Sprintf("import failed: %v", err), true)
	}
	m.reloadArticles()
	return m, m.setStatus(fmt.Sprintf("imported %d feeds", added), false)
}

func (m Model) runExport(path string) (tea.Model, tea.Cmd) {
	feeds, err := m.service.ListFeeds(context.Background())
	if err != nil {
		return m, m.setStatus(fmt.Sprintf("export failed: %v", err), true)
	}
	if err := m.exportOPML(path, feeds); err != nil {
		return m, m.setStatus(fmt.Sprintf("export failed: %v", err), true)
	}
	return m, m.setStatus(fmt.Sprintf("exported %d feeds to %s", len(feeds), path), false)
}

func (m Model) openCurrent() (tea.Model, tea.Cmd) {
	article := m.currentArticle()
	if article == nil || article.URL == "" {
		return m, nil
	}
	if err := m.openURLFn(article.URL); err != nil {
		return m, m.setStatus(fmt.Sprintf("open failed: %v", err), true)
	}
	return m, m.setStatus("opened in browser", false)
}

func (m *Model) currentArticle() *storage.Article {
	if m.cursor < 0 || m.cursor >= len(m.articles) {
		return nil
	}
	return &m.articles[m.cursor]
}

func (m *Model) setStatus(text string, warn bool) tea.Cmd {
	m.status = text
	m.warn = warn
	m.statusID++
	return clearStatusCmd(m.statusID, 4*time.Second)
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m Model) spinner() string {
	switch {
	case m.refreshSlot.IsRunning():
		return m.refreshSlot.Frame() + " refreshing"
	case m.addFeedSlot.IsRunning():
		return m.addFeedSlot.Frame() + " resolving feed"
	case m.summarySlot.IsRunning():
		return m.summarySlot.Frame() + " summarizing"
	}
	return ""
}

func openURLInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
