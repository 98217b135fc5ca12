package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kameel77/auto-scraper/internal/normalize"
	urlutil "github.com/kameel77/auto-scraper/internal/utils/url"
)

var equipmentHints = []string{"abs", "klimatyzacja", "esp", "airbag"}

// maxEquipmentItem drops list items too long to be a feature label
const maxEquipmentItem = 120

var tagHints = []string{"bezwypad", "gwarant", "kraj pochodzenia", "pierwszego wlasciciela"}

// EquipmentList returns the items of the list most likely to be the feature
// list: the longest <ul> with at least eight items, strongly preferring
// lists mentioning common safety equipment.
func EquipmentList(doc *goquery.Document) []string {
	var best []string
	bestScore := 0

	doc.Find("ul").Each(func(_ int, ul *goquery.Selection) {
		items := listItems(ul)
		if len(items) < 8 {
			return
		}
		score := len(items)
		folded := normalize.Fold(strings.Join(items, " "))
		for _, h := range equipmentHints {
			if strings.Contains(folded, h) {
				score += 50
				break
			}
		}
		if score > bestScore {
			best, bestScore = items, score
		}
	})

	out := best[:0:0]
	for _, it := range best {
		if len([]rune(it)) <= maxEquipmentItem {
			out = append(out, it)
		}
	}
	return out
}

// TagList returns the first short list (2 to 12 items) that looks like
// marketing badges such as "Bezwypadkowy" or "Pierwszy właściciel".
func TagList(doc *goquery.Document) []string {
	var tags []string
	doc.Find("ul").EachWithBreak(func(_ int, ul *goquery.Selection) bool {
		items := listItems(ul)
		if len(items) < 2 || len(items) > 12 {
			return true
		}
		folded := normalize.Fold(strings.Join(items, " "))
		for _, h := range tagHints {
			if strings.Contains(folded, h) {
				tags = items
				return false
			}
		}
		return true
	})
	return tags
}

// ImageSources collects one URL per <img>, taken from src or else the
// common lazy-load attributes, resolved against base.
func ImageSources(doc *goquery.Document, base string) []string {
	var out []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				out = append(out, urlutil.ResolveURL(base, strings.TrimSpace(v)))
				return
			}
		}
	})
	return out
}

func listItems(ul *goquery.Selection) []string {
	var items []string
	ul.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		if t := normalize.CleanText(li.Text()); t != "" {
			items = append(items, t)
		}
	})
	return items
}
