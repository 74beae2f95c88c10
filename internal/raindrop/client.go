// Package raindrop is a minimal client for the Raindrop.io bookmarks API.
package raindrop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.raindrop.io"

// Bookmark is what gets saved: the article link plus a short excerpt and tags.
type Bookmark struct {
	URL     string
	Title   string
	Excerpt string
	Tags    []string
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

type createRequest struct {
	Link        string   `json:"link"`
	Title       string   `json:"title,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PleaseParse struct{} `json:"pleaseParse"`
}

type createResponse struct {
	Item struct {
		ID int64 `json:"_id"`
	} `json:"item"`
}

// Create saves a bookmark and returns the raindrop id assigned to it.
func (c *Client) Create(ctx context.Context, bookmark Bookmark) (int64, error) {
	payload, err := json.Marshal(createRequest{
		Link:    bookmark.URL,
		Title:   bookmark.Title,
		Excerpt: bookmark.Excerpt,
		Tags:    bookmark.Tags,
	})
	if err != nil {
		return 0, fmt.Errorf("encode bookmark: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/raindrop", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build bookmark request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bookmark request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return 0, fmt.Errorf("raindrop authentication failed: invalid token")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("bookmark failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded createResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode bookmark response: %w", err)
	}
	return decoded.Item.ID, nil
}
