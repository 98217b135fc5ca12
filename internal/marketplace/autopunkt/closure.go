package autopunkt

import (
	"strings"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/extract"
	"github.com/kameel77/auto-scraper/internal/normalize"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

// attributeFields maps the numeric attribute ids of the catalogue to
// record fields.
var attributeFields = map[int]func(o *models.Offer, v any){
	58:   func(o *models.Offer, v any) { o.Brand = normalize.String(v) },
	59:   func(o *models.Offer, v any) { o.Model = normalize.String(v) },
	196:  func(o *models.Offer, v any) { o.Version = normalize.String(v) },
	195:  func(o *models.Offer, v any) { o.OfferNumber = normalize.String(v) },
	197:  func(o *models.Offer, v any) { o.VIN = normalize.String(v) },
	81:   func(o *models.Offer, v any) { o.ProductionYear = normalize.ParseIntAny(v) },
	1157: func(o *models.Offer, v any) { o.FirstRegistration = normalize.String(v) },
	82:   func(o *models.Offer, v any) { o.MileageKM = normalize.ParseIntAny(v) },
	63:   func(o *models.Offer, v any) { o.BodyType = normalize.String(v) },
	66:   func(o *models.Offer, v any) { o.FuelType = normalize.String(v) },
	70:   func(o *models.Offer, v any) { o.EngineCapacityCM3 = normalize.ParseIntAny(v) },
	71:   func(o *models.Offer, v any) { o.PowerHP = normalize.ParseIntAny(v) },
	247:  func(o *models.Offer, v any) { o.DriveType = normalize.String(v) },
	242:  func(o *models.Offer, v any) { o.Transmission = normalize.String(v) },
	87:   func(o *models.Offer, v any) { o.Color = normalize.String(v) },
	64:   func(o *models.Offer, v any) { o.DoorCount = normalize.ParseIntAny(v) },
	77:   func(o *models.Offer, v any) { o.PriceGross = normalize.ParseIntAny(v) },
	78:   func(o *models.Offer, v any) { o.OldPrice = normalize.ParseIntAny(v) },
	1142: func(o *models.Offer, v any) { o.Title = normalize.String(v) },
}

// historyGroup marks attribute groups describing the car's past, which are
// published as tags rather than equipment.
const historyGroup = "historia"

// fromClosure reads the serialized Nuxt state
func fromClosure(p page) (*models.Offer, error) {
	payload, ok := extract.FindNuxtPayload(p.doc, p.raw)
	if !ok {
		return nil, engine.StructureError(Name, "window.__NUXT__ state not found")
	}
	st, err := extract.ParseClosure(payload)
	if err != nil {
		return nil, err
	}

	attrs := st.Attributes()
	if len(attrs) == 0 {
		return nil, engine.StructureError(Name, "no attribute records in page state")
	}

	o := models.NewOffer(models.SourceAutopunkt)
	equipment := 0
	for _, at := range attrs {
		if set, ok := attributeFields[at.ID]; ok {
			set(o, at.Value)
			continue
		}
		if !normalize.IsTruthy(at.Value) || at.Name == "" {
			continue
		}
		if strings.Contains(normalize.Fold(at.Group), historyGroup) {
			o.Tags = append(o.Tags, at.Name)
			continue
		}
		o.Equipment.Add(normalize.Categorize(at.Group, normalize.DefaultCategoryRules), at.Name)
		equipment++
	}

	for _, u := range st.Files() {
		if strings.Contains(u, "/cars/") {
			o.Images = append(o.Images, u)
		}
	}

	loc := st.Location()
	o.DealerName = normalize.String(loc["name"])
	o.DealerAddressLine1 = normalize.String(loc["street"])
	o.DealerAddressLine2 = normalize.CleanText(normalize.String(loc["postalCode"]) + " " + normalize.String(loc["city"]))
	o.ContactPhone = normalize.String(loc["phone"])

	log.Debug().
		Str(engine.DetailMarketplace, Name).
		Int("attributes", len(attrs)).
		Int("equipment", equipment).
		Int("images", len(o.Images)).
		Msg("Page state decoded")
	return o, nil
}
