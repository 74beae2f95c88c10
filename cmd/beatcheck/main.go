package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/beatcheck/internal/app"
	"github.com/glabrego/beatcheck/internal/config"
	"github.com/glabrego/beatcheck/internal/feed"
	"github.com/glabrego/beatcheck/internal/logging"
	"github.com/glabrego/beatcheck/internal/raindrop"
	"github.com/glabrego/beatcheck/internal/storage"
	"github.com/glabrego/beatcheck/internal/summarize"
	"github.com/glabrego/beatcheck/internal/tui"
)

func main() {
	refreshOnly := flag.Bool("refresh", false, "refresh all feeds and exit")
	importPath := flag.String("import", "", "import an OPML subscription list and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closeLog, err := logging.New(cfg.LogPath)
	if err != nil {
		log.Fatalf("logging init error: %v", err)
	}
	defer closeLog()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatalf("storage dir error: %v", err)
	}
	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		log.Fatalf("storage schema error: %v", err)
	}

	var summarizer app.Summarizer
	if cfg.AnthropicAPIKey != "" {
		summarizer = summarize.NewClient(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.Model, nil)
	}
	var bookmarker app.Bookmarker
	if cfg.RaindropToken != "" {
		bookmarker = raindrop.NewClient(cfg.RaindropBaseURL, cfg.RaindropToken, nil)
	}

	service := app.NewService(repo, feed.NewFetcher(nil), summarizer, bookmarker, cfg.Retention(), logger)

	if *importPath != "" {
		feeds, err := feed.ImportOPML(*importPath)
		if err != nil {
			log.Fatalf("import error: %v", err)
		}
		added, err := service.ImportFeeds(context.Background(), feeds)
		if err != nil {
			log.Fatalf("import error: %v", err)
		}
		fmt.Printf("imported %d feeds\n", added)
		return
	}

	if *refreshOnly {
		refreshCtx, refreshCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer refreshCancel()
		written, err := service.RefreshOnce(refreshCtx)
		if err != nil {
			log.Fatalf("refresh error: %v", err)
		}
		feeds, _ := service.ListFeeds(context.Background())
		fmt.Printf("refreshed %d feeds: %d articles\n", len(feeds), written)
		return
	}

	model := tui.NewModel(service, cfg.QuickTags)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
