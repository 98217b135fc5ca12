// Package extract pulls raw field values out of fetched pages: visible text
// around labels, price cues, list heuristics and embedded script state.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kameel77/auto-scraper/internal/normalize"
	"golang.org/x/net/html"
)

// DefaultLabelLookahead bounds how many text nodes a label lookup walks
const DefaultLabelLookahead = 6

// TextIndex is the visible text of a document as an ordered list of
// non-empty, whitespace-normalized text nodes.
type TextIndex struct {
	texts []string
}

// NewTextIndex walks doc in document order collecting text nodes, skipping
// script, style and template content.
func NewTextIndex(doc *goquery.Document) *TextIndex {
	ti := &TextIndex{}
	for _, n := range doc.Nodes {
		ti.walk(n)
	}
	return ti
}

func (ti *TextIndex) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template", "svg":
			return
		}
	}
	if n.Type == html.TextNode {
		if t := normalize.CleanText(n.Data); t != "" {
			ti.texts = append(ti.texts, t)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		ti.walk(c)
	}
}

// Texts returns the collected text nodes
func (ti *TextIndex) Texts() []string {
	return ti.texts
}

// String joins all text nodes with newlines
func (ti *TextIndex) String() string {
	return strings.Join(ti.texts, "\n")
}

// Value finds the text node equal to label (case-insensitive) and returns
// the first following text that is not itself a label. A node such as
// "Rocznik: 2019" that carries both label and value yields "2019".
func (ti *TextIndex) Value(label string, known []string) string {
	for i, t := range ti.texts {
		if strings.EqualFold(strings.TrimSuffix(t, ":"), label) {
			for j := i + 1; j < len(ti.texts) && j <= i+DefaultLabelLookahead; j++ {
				if !isLabel(ti.texts[j], known) {
					return ti.texts[j]
				}
			}
			continue
		}
		if len(t) > len(label) && strings.EqualFold(t[:len(label)], label) {
			rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t[len(label):]), ":"))
			if rest != "" && !isLabel(rest, known) && rest != t[len(label):] {
				return rest
			}
		}
	}
	return ""
}

// Following returns up to n non-label texts after the first node equal to label
func (ti *TextIndex) Following(label string, n int, known []string) []string {
	var out []string
	for i, t := range ti.texts {
		if !strings.EqualFold(strings.TrimSuffix(t, ":"), strings.TrimSuffix(label, ":")) {
			continue
		}
		for j := i + 1; j < len(ti.texts) && len(out) < n; j++ {
			if isLabel(ti.texts[j], known) {
				break
			}
			out = append(out, ti.texts[j])
		}
		return out
	}
	return out
}

func isLabel(t string, known []string) bool {
	if strings.HasSuffix(t, ":") {
		return true
	}
	for _, k := range known {
		if strings.EqualFold(t, k) {
			return true
		}
	}
	return false
}
