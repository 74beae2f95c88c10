package feed

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
)

var reCollapseSpace = regexp.MustCompile(`[ \t]+`)

// HTMLToText reduces an HTML fragment to plain prose for summarization input.
// Block boundaries become blank lines, scripts and styles are dropped.
func HTMLToText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	doc, err := nethtml.Parse(strings.NewReader("<html><body>" + raw + "</body></html>"))
	if err != nil {
		return strings.TrimSpace(html.UnescapeString(raw))
	}
	body := findBodyNode(doc)
	if body == nil {
		return strings.TrimSpace(html.UnescapeString(raw))
	}

	var b strings.Builder
	var walk func(node *nethtml.Node)
	walk = func(node *nethtml.Node) {
		switch node.Type {
		case nethtml.TextNode:
			b.WriteString(node.Data)
		case nethtml.ElementNode:
			tag := strings.ToLower(node.Data)
			switch tag {
			case "script", "style", "noscript", "iframe", "svg":
				return
			case "br":
				b.WriteString("\n")
				return
			}
			if isBlockElement(tag) {
				b.WriteString("\n\n")
			}
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
			if isBlockElement(tag) {
				b.WriteString("\n\n")
			}
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(body)

	return normalizeText(b.String())
}

func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(reCollapseSpace.ReplaceAllString(line, " "))
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "main", "header", "footer", "aside", "nav",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "blockquote", "pre", "table", "tr",
		"figure", "figcaption", "hr":
		return true
	}
	return false
}

func findBodyNode(node *nethtml.Node) *nethtml.Node {
	if node.Type == nethtml.ElementNode && node.Data == "body" {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findBodyNode(child); found != nil {
			return found
		}
	}
	return nil
}
