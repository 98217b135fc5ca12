package normalize

import (
	"encoding/json"
	"strings"

	"github.com/kameel77/auto-scraper/pkg/models"
)

// CategoryRule maps a folded keyword found in a group or section label to a
// canonical equipment category.
type CategoryRule struct {
	Keyword  string
	Category models.EquipmentCategory
}

// DefaultCategoryRules is shared by all marketplaces so that categories mean
// the same thing across sources. First match wins, so the exterior rules
// precede "wnetrz", which is a substring of "zewnetrzny".
var DefaultCategoryRules = []CategoryRule{
	{Keyword: "audio", Category: models.EquipmentAudioMultimedia},
	{Keyword: "multimedi", Category: models.EquipmentAudioMultimedia},
	{Keyword: "technolog", Category: models.EquipmentAudioMultimedia},
	{Keyword: "bezpiecz", Category: models.EquipmentSafety},
	{Keyword: "nadwozi", Category: models.EquipmentOther},
	{Keyword: "wyglad", Category: models.EquipmentOther},
	{Keyword: "zewnetrz", Category: models.EquipmentOther},
	{Keyword: "oswietl", Category: models.EquipmentOther},
	{Keyword: "komfort", Category: models.EquipmentComfort},
	{Keyword: "wnetrz", Category: models.EquipmentComfort},
	{Keyword: "dodatki", Category: models.EquipmentComfort},
}

// Categorize returns the category for a group label, EquipmentOther when no
// rule matches.
func Categorize(label string, rules []CategoryRule) models.EquipmentCategory {
	folded := Fold(label)
	for _, r := range rules {
		if strings.Contains(folded, r.Keyword) {
			return r.Category
		}
	}
	return models.EquipmentOther
}

// CloseEquipment guarantees the four canonical keys. Labels filed under any
// other key are moved to EquipmentOther.
func CloseEquipment(eq models.Equipment) models.Equipment {
	out := models.NewEquipment()
	for _, c := range models.EquipmentCategories {
		for _, label := range eq[c] {
			out.Add(c, CleanText(label))
		}
	}
	for k, labels := range eq {
		if isCanonical(k) {
			continue
		}
		for _, label := range labels {
			out.Add(models.EquipmentOther, CleanText(label))
		}
	}
	return out
}

// IsTruthy reports whether an equipment flag value means "present". Only
// true, 1, "1" and "true" count.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t == 1
	case int64:
		return t == 1
	case float64:
		return t == 1
	case json.Number:
		return t.String() == "1"
	case string:
		s := strings.TrimSpace(t)
		return s == "1" || s == "true"
	default:
		return false
	}
}

// SplitList splits a comma or newline separated equipment string
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = CleanText(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isCanonical(c models.EquipmentCategory) bool {
	for _, k := range models.EquipmentCategories {
		if k == c {
			return true
		}
	}
	return false
}
