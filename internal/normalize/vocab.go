package normalize

import (
	"sort"
	"strings"

	"github.com/kameel77/auto-scraper/pkg/models"
)

// Vocabulary maps a marketplace's categorical values to canonical ones. The
// zero value translates nothing.
type Vocabulary struct {
	exact  map[string]string
	folded map[string]string
}

// NewVocabulary indexes table for exact and case-insensitive lookups. When
// several keys differ only in case, the lexically smallest one wins.
func NewVocabulary(table map[string]string) Vocabulary {
	v := Vocabulary{
		exact:  make(map[string]string, len(table)),
		folded: make(map[string]string, len(table)),
	}
	keys := make([]string, 0, len(table))
	for from, to := range table {
		v.exact[from] = to
		keys = append(keys, from)
	}
	sort.Strings(keys)
	for _, from := range keys {
		k := strings.ToLower(strings.TrimSpace(from))
		if _, dup := v.folded[k]; !dup {
			v.folded[k] = table[from]
		}
	}
	return v
}

// Translate looks value up exactly, then case-insensitively. Unmapped
// values are returned unchanged.
func (v Vocabulary) Translate(value string) string {
	if value == "" {
		return value
	}
	if out, ok := v.exact[value]; ok {
		return out
	}
	if out, ok := v.folded[strings.ToLower(strings.TrimSpace(value))]; ok {
		return out
	}
	return value
}

// Vocabularies groups the per-field tables of one marketplace
type Vocabularies struct {
	Fuel         Vocabulary
	Transmission Vocabulary
	Drive        Vocabulary
	Body         Vocabulary
}

// Apply translates the categorical fields of o in place
func (v Vocabularies) Apply(o *models.Offer) {
	o.FuelType = v.Fuel.Translate(o.FuelType)
	o.Transmission = v.Transmission.Translate(o.Transmission)
	o.DriveType = v.Drive.Translate(o.DriveType)
	o.BodyType = v.Body.Translate(o.BodyType)
}
