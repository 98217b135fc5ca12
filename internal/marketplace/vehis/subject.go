package vehis

import (
	"strings"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/extract"
	"github.com/kameel77/auto-scraper/internal/normalize"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

// vocabulary translates the API's English dictionaries to the Polish
// values used by the other marketplaces.
var vocabulary = normalize.Vocabularies{
	Fuel: normalize.NewVocabulary(map[string]string{
		"Diesel":          "diesel",
		"Petrol unleaded": "benzynowy",
		"Petrol/gas":      "benzyna+LPG",
		"Electric":        "elektryczny",
		"Hybrid":          "hybrydowy",
	}),
	Transmission: normalize.NewVocabulary(map[string]string{
		"Manual gearbox":           "manualna",
		"Automatic transmission":   "automatyczna",
		"Automatic stepless":       "automatyczna",
		"Automatic sequential":     "automatyczna",
		"Automated manual gearbox": "półautomatyczna",
	}),
	Drive: normalize.NewVocabulary(map[string]string{
		"Front wheel drive":        "na przednie koła",
		"Rear wheel drive":         "na tylne koła",
		"4 wheel drive permanent":  "4x4 (stały)",
		"4 wheel drive general":    "4x4",
		"4 wheel drive insertable": "4x4 (dołączany)",
	}),
	Body: normalize.NewVocabulary(map[string]string{
		"Sedan":        "sedan",
		"Stationwagon": "kombi",
		"Coupe":        "coupe",
		"Convertible":  "kabriolet",
		"Van":          "minivan",
		"SUV":          "SUV",
		"Hatchback":    "hatchback",
		"Combi":        "kombi",
		"Pick-Up":      "pick-up",
	}),
}

// fromSubject reads the first subject of a detail response
func fromSubject(payload map[string]any) (*models.Offer, error) {
	subjects := extract.ListAt(payload, "subjects")
	if len(subjects) == 0 {
		return nil, engine.StructureError(Name, "detail response carries no subjects")
	}
	s := extract.ObjectAt(subjects[0])
	if s == nil {
		return nil, engine.StructureError(Name, "subject is not an object")
	}

	o := models.NewOffer(models.SourceVehis)
	o.ListingID = extract.Text(s["subject_id"])
	o.OfferNumber = o.ListingID
	o.Brand = extract.Text(s["brand"])
	o.Model = extract.Text(s["model"])
	o.Version = extract.Text(s["version"])
	o.VIN = extract.Text(s["vin"])
	o.Title = normalize.CleanText(o.Brand + " " + o.Model + " " + o.Version)

	net := normalize.ParseIntAny(s["netto_price"])
	if net == nil || *net == 0 {
		net = normalize.ParseIntAny(s["consumer_netto_price"])
	}
	if net != nil && *net > 0 {
		gross := normalize.NetToGross(*net)
		o.PriceGross = &gross
		o.PriceDisplay = normalize.FormatPLN(gross)
		o.PriceTaxBasis = models.TaxBasisGrossFromNet
	}

	o.ProductionYear = normalize.ParseIntAny(s["manufacturing_year"])
	o.MileageKM = normalize.ParseIntAny(s["mileage"])
	o.FuelType = extract.Text(s["fuel_type"])
	o.Transmission = extract.Text(s["gearbox_type"])
	o.PowerHP = normalize.ParseIntAny(s["engine_power"])
	o.RegistrationNumber = extract.Text(s["registration_number"])
	o.FirstRegistration = extract.Text(s["first_registration_date"])
	o.EngineCapacityCM3 = normalize.ParseIntAny(s["engine_capacity"])
	o.DriveType = extract.Text(s["drive_type"])
	o.BodyType = extract.Text(s["body_type"])
	o.DoorCount = normalize.ParseIntAny(s["number_of_doors"])
	o.SeatCount = normalize.ParseIntAny(s["number_of_seats"])
	o.Color = extract.Text(s["color"])

	o.DealerName = extract.Text(s["dealer_name"])
	o.DealerAddressLine1 = extract.Text(s["location"])

	o.Images = textList(s["images"])
	o.RawEquipment = textList(s["equipment"])
	o.RawAdditionalEquipment = textList(s["additional_equipment"])

	if desc, ok := s["additional_description"].(string); ok && strings.TrimSpace(desc) != "" {
		text, err := normalize.HTMLToText(desc)
		if err != nil {
			log.Debug().Err(err).Str(engine.DetailMarketplace, Name).Msg("Keeping description as raw text")
			text = normalize.CleanText(desc)
		}
		o.AdditionalInfo = text
	}
	return o, nil
}

// textList accepts either a JSON array or a comma separated string
func textList(v any) []string {
	switch t := v.(type) {
	case []any:
		return extract.Strings(t)
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}

// finalize applies the shared rules with the first image as cover
func finalize(o *models.Offer) {
	var primary string
	if len(o.Images) > 0 {
		primary = o.Images[0]
	}
	normalize.Finalize(o, normalize.Options{
		PrimaryImage: primary,
		Images:       normalize.ImagePolicy{Deny: normalize.DefaultImageDenylist},
		Vocabulary:   vocabulary,
	})
}
