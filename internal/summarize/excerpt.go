package summarize

import "strings"

// SentinelInsufficient is the literal reply the model gives when an article
// is too thin to summarize. It is a successful outcome and is stored and
// displayed verbatim, never treated as an error.
const SentinelInsufficient = "Insufficient content for summary"

// Format is a loose classification of a stored summary. It is display-only;
// nothing downstream parses summaries beyond the excerpt extractor.
type Format string

const (
	FormatEditorial Format = "editorial"
	FormatProduct   Format = "product"
	FormatSentinel  Format = "sentinel"
	FormatFreeform  Format = "freeform"
)

// labelPrefixes are matched case-insensitively against the start of the first
// non-empty line, in this order. Current Smart Brevity labels come first, then
// the lead-ins the legacy bullet format used to open with. Extending the
// format means appending here, not touching the extraction logic.
var labelPrefixes = []string{
	"what's happening:",
	"the product:",
	"why it matters:",
	"the big picture:",
	"cost:",
	"availability:",
	"platforms:",
	"summary:",
	"here's a summary of the article:",
	"here's a summary:",
	"here is a summary:",
	"here's the summary:",
	"here is the summary:",
}

var bulletMarkers = []string{"•", "-", "*"}

// IsSentinel reports whether a raw summary is the insufficient-content reply.
func IsSentinel(summary string) bool {
	return strings.TrimSpace(summary) == SentinelInsufficient
}

// DetectFormat classifies a summary by its opening label. Anything it does
// not recognize is freeform, which is a fully acceptable shape: the contract
// deliberately tolerates model drift instead of rejecting it.
func DetectFormat(summary string) Format {
	if IsSentinel(summary) {
		return FormatSentinel
	}
	line := firstNonEmptyLine(summary)
	switch {
	case hasFoldPrefix(line, "what's happening:"):
		return FormatEditorial
	case hasFoldPrefix(line, "the product:"):
		return FormatProduct
	default:
		return FormatFreeform
	}
}

// Excerpt derives the single clean sentence used as a bookmark description
// from a raw summary. It takes the first non-empty line, strips a recognized
// label prefix and any legacy bullet marker, and cuts at the first sentence
// boundary. Empty input yields an empty excerpt. The transform is idempotent
// on already-clean sentences.
func Excerpt(summary string) string {
	line := firstNonEmptyLine(summary)
	if line == "" {
		return ""
	}

	for _, prefix := range labelPrefixes {
		if hasFoldPrefix(line, prefix) {
			line = strings.TrimSpace(line[len(prefix):])
			break
		}
	}

	for _, marker := range bulletMarkers {
		if strings.HasPrefix(line, marker) {
			line = strings.TrimSpace(strings.TrimPrefix(line, marker))
			break
		}
	}

	return strings.TrimSpace(firstSentence(line))
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// hasFoldPrefix anchors the match at the start of the line; prefixes are
// ASCII, so a byte-length slice is safe to compare case-insensitively.
func hasFoldPrefix(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}

// firstSentence cuts at the first '.', '!' or '?' that is followed by
// whitespace or end of text. Without such a boundary the whole text is one
// sentence.
func firstSentence(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) {
				return text
			}
			next := text[i+1]
			if next == ' ' || next == '\t' || next == '\n' || next == '\r' {
				return text[:i+1]
			}
		}
	}
	return text
}
