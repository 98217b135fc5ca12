package extract

import (
	"regexp"
	"strings"

	"github.com/kameel77/auto-scraper/internal/normalize"
)

// DefaultCueWindow is how many bytes after a cue are searched for an amount
const DefaultCueWindow = 250

var amountPLN = regexp.MustCompile(`(\d[\d \t\x{00a0}\x{202f}]*\d|\d)\s*zł`)

// AmountAfterCue finds cue in text (case-insensitive) and parses the first
// "<digits> zł" amount within window bytes after it.
func AmountAfterCue(text, cue string, window int) *int {
	if window <= 0 {
		window = DefaultCueWindow
	}
	lower := strings.ToLower(text)
	idx := strings.Index(lower, strings.ToLower(cue))
	if idx < 0 {
		return nil
	}
	start := idx + len(cue)
	end := start + window
	if end > len(lower) {
		end = len(lower)
	}
	m := amountPLN.FindStringSubmatch(lower[start:end])
	if m == nil {
		return nil
	}
	return normalize.ParseInt(m[1])
}
