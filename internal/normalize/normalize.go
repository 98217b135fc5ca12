package normalize

import (
	"strings"

	"github.com/kameel77/auto-scraper/pkg/models"
)

// Options controls Finalize for one marketplace
type Options struct {
	PrimaryImage string
	Images       ImagePolicy
	Vocabulary   Vocabularies
}

// Finalize applies the cross-field rules every record must satisfy before it
// leaves an adapter: image ordering and filtering, the equipment closure, the
// derived benefit, vocabulary translation and currency defaults.
func Finalize(o *models.Offer, opts Options) {
	o.Images = Images(opts.PrimaryImage, o.Images, opts.Images)
	o.Equipment = CloseEquipment(o.Equipment)

	if o.Benefit == nil {
		o.Benefit = Benefit(o.OldPrice, o.PriceGross)
	}

	opts.Vocabulary.Apply(o)

	if o.PriceGross != nil {
		if o.Currency == "" {
			o.Currency = models.CurrencyPLN
		}
		if o.PriceTaxBasis == "" {
			o.PriceTaxBasis = models.TaxBasisGross
		}
	}

	o.Brand = CleanText(o.Brand)
	o.Model = CleanText(o.Model)
	o.Version = CleanText(o.Version)
	o.VIN = strings.ToUpper(CleanText(o.VIN))
	o.Tags = dedupe(o.Tags)
	o.RawEquipment = dedupe(o.RawEquipment)
	o.RawAdditionalEquipment = dedupe(o.RawAdditionalEquipment)
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		it = CleanText(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
