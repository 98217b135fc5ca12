package normalize

import (
	"strings"
	"unicode"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that do not decompose under NFD
var foldReplacer = strings.NewReplacer("ł", "l", "Ł", "l", "đ", "d", "ß", "ss")

// Fold lowercases s and strips diacritics ("Bezpieczeństwo" -> "bezpieczenstwo")
// so keyword tables can match regardless of accents.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// CleanText collapses all whitespace runs into single spaces and trims
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HTMLToText converts an HTML fragment into readable Markdown text. Plain
// text input is only whitespace-normalized.
func HTMLToText(fragment string) (string, error) {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment), nil
	}

	cleaned, err := sanitizeHTML(fragment)
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	out, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// sanitizeHTML drops scripts, embeds and form controls and strips every
// attribute except link targets before conversion.
func sanitizeHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas, img").Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Data == "a" {
			href, ok := s.Attr("href")
			node.Attr = nil
			if ok {
				s.SetAttr("href", href)
			}
			return
		}
		node.Attr = nil
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
