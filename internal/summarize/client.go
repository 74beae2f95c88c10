// Package summarize generates Smart Brevity article summaries through the
// Anthropic Messages API and derives clean excerpts from the raw replies.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-haiku-20241022"
	apiVersion     = "2023-06-01"

	// maxContentBytes caps the article body sent with a request; longer
	// bodies are cut at the last rune boundary at or before the cap.
	maxContentBytes = 10000
	maxTokens       = 1024
)

const promptTemplate = `You are a journalist writing in Axios Smart Brevity style. Summarize the article below using the appropriate format.

First, determine: Is this article primarily about a specific PRODUCT (hardware, software, app, device) or is it EDITORIAL (news, policy, analysis, industry event)?

RULES:
1. Use ONLY information from the article - no external knowledge
2. Each section should be 1-2 concise sentences
3. If the article has insufficient content, respond with just: "Insufficient content for summary"
4. If there are direct quotes with clear speaker attribution, include the most important one
5. Output ONLY the summary lines below - no introductions, conclusions, or commentary
6. Do NOT state the format type (e.g. "This is an EDITORIAL summary") - just start with the first line

If EDITORIAL, respond in this exact format:
What's happening: One strong sentence capturing the core news or development.
Why it matters: 1-2 sentences explaining why this is significant.
The big picture: One sentence on broader industry or societal implications. Omit this line if the article is too narrow for broader context.
"quote text" -- Speaker Name

If PRODUCT, respond in this exact format:
The product: What the product is and what it does (1-2 sentences).
Cost: Pricing details. Omit this line if pricing is not mentioned.
Availability: When and where it is available. Omit this line if not mentioned.
Platforms: What platforms or operating systems it runs on. Omit this line for hardware-only products or if not mentioned.
"quote text" -- Speaker Name

Omit the quote line if there are no quotes or no clear speaker attribution in the article.

Title: %s

Article:
%s`

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    httpClient,
	}
}

// ModelVersion reports the model identifier recorded alongside each stored
// summary.
func (c *Client) ModelVersion() string {
	return c.model
}

// Generate requests one summary for the given article. A single attempt, no
// retries: a failed call surfaces as a transient message and the user
// regenerates by hand.
func (c *Client) Generate(ctx context.Context, title, content string) (string, error) {
	payload := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []message{{
			Role:    "user",
			Content: fmt.Sprintf(promptTemplate, title, TruncateContent(content)),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("summary request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var decoded messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode summary response: %w", err)
	}

	parts := make([]string, 0, len(decoded.Content))
	for _, block := range decoded.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return stripPreamble(strings.Join(parts, "\n")), nil
}

// TruncateContent cuts content at the last valid rune boundary at or before
// maxContentBytes. Content that already fits is returned unchanged.
func TruncateContent(content string) string {
	if len(content) <= maxContentBytes {
		return content
	}
	end := maxContentBytes
	for end > 0 && !utf8.RuneStart(content[end]) {
		end--
	}
	return content[:end]
}

// stripPreamble drops format-announcement lines the model sometimes emits in
// spite of the prompt ("This is an EDITORIAL summary", ...).
func stripPreamble(summary string) string {
	lines := strings.Split(summary, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(lower, "this is an editorial") || strings.HasPrefix(lower, "this is a product") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
