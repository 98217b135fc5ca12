package findcar

import (
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/extract"
	"github.com/kameel77/auto-scraper/internal/normalize"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

// parseDetail runs the extractor chain over a decoded listing detail
func parseDetail(ref models.ListingRef, detail map[string]any) (*models.Offer, error) {
	return engine.RunChain(ref, Name, detail,
		engine.Stage[map[string]any]{Name: "specifications", Extract: fromSpecifications},
		engine.Stage[map[string]any]{Name: "card", Extract: fromCard},
		engine.Stage[map[string]any]{Name: "details", Extract: fromDetails},
	)
}

// fromSpecifications reads the labeled specification table
func fromSpecifications(detail map[string]any) (*models.Offer, error) {
	specs := extract.LabelValues(extract.ListAt(detail, "specifications"))
	if len(specs) == 0 {
		return nil, engine.StructureError(Name, "specifications list missing")
	}

	o := models.NewOffer(models.SourceFindcar)
	o.Specs = specs
	o.Brand = specs["Marka"]
	o.Model = specs["Model"]
	o.Version = specs["Wersja"]
	o.VIN = specs["VIN"]
	o.ProductionYear = normalize.ParseInt(specs["Rok produkcji"])
	o.MileageKM = normalize.ParseInt(specs["Przebieg"])
	o.FuelType = specs["Silnik / rodzaj paliwa"]
	o.Transmission = specs["Skrzynia biegów"]
	o.PowerHP = normalize.ParseInt(specs["Moc"])
	o.RegistrationNumber = specs["Numer rejestracyjny"]
	o.FirstRegistration = specs["Data pierwszej rejestracji"]
	o.EngineCapacityCM3 = normalize.ParseInt(specs["Pojemność silnika"])
	o.DriveType = specs["Napęd"]
	o.BodyType = specs["Rodzaj nadwozia"]
	o.DoorCount = normalize.ParseInt(specs["Liczba drzwi"])
	o.SeatCount = normalize.ParseInt(specs["Liczba miejsc"])
	o.Color = specs["Kolor"]
	o.PaintType = specs["Rodzaj lakieru"]
	return o, nil
}

// fromCard reads the summary card and its pricing block
func fromCard(detail map[string]any) (*models.Offer, error) {
	card := extract.ObjectAt(detail, "cardInfo")
	if card == nil {
		return nil, engine.StructureError(Name, "cardInfo missing")
	}

	o := models.NewOffer(models.SourceFindcar)
	o.Brand = extract.TextAt(card, "make")
	o.Model = extract.TextAt(card, "model")
	o.Version = extract.TextAt(card, "version")
	o.ProductionYear = normalize.ParseIntAny(card["productionYear"])
	o.MileageKM = normalize.ParseIntAny(card["mileageKm"])
	o.FuelType = extract.TextAt(card, "fuelType")
	o.Transmission = extract.TextAt(card, "transmission")
	o.PowerHP = normalize.ParseIntAny(card["enginePowerHp"])
	o.Title = normalize.CleanText(o.Brand + " " + o.Model + " " + o.Version)

	pricing := extract.ObjectAt(card, "pricing", "offer")
	o.PriceDisplay = extract.TextAt(pricing, "displayAmount")
	if minor := pricing["offerPricePln100"]; extract.IsInteger(minor) {
		o.PriceGross = normalize.MinorUnits(minor)
	} else {
		o.PriceGross = normalize.ParseInt(o.PriceDisplay)
	}

	omnibus := extract.ObjectAt(pricing, "omnibus")
	if lowest := omnibus["lowestPricePln100"]; extract.IsInteger(lowest) {
		o.OmnibusPrice = normalize.MinorUnits(lowest)
		o.OldPrice = normalize.MinorUnits(lowest)
	}
	o.OmnibusText = extract.TextAt(omnibus, "displayText")
	return o, nil
}

// fromDetails reads dealer, media, equipment and the free text block
func fromDetails(detail map[string]any) (*models.Offer, error) {
	o := models.NewOffer(models.SourceFindcar)

	if dealer := extract.ObjectAt(detail, "dealer"); dealer != nil {
		o.DealerName = extract.TextAt(dealer, "name")
		o.DealerAddressLine1 = extract.TextAt(dealer, "address", "line1")
		o.DealerAddressLine2 = extract.TextAt(dealer, "address", "line2")
		o.DealerAddressLine3 = extract.TextAt(dealer, "address", "line3")
		o.DealerRating = normalize.ParseFloatAny(dealer["googleRating"])
		o.DealerReviewCount = normalize.ParseIntAny(dealer["reviewCount"])
		o.DealerLink = extract.TextAt(dealer, "googleLink")
	}
	o.ContactPhone = extract.TextAt(detail, "contactPhone")

	for _, m := range extract.ListAt(detail, "media") {
		if extract.TextAt(m, "type") != "image" {
			continue
		}
		if u := extract.TextAt(m, "url"); u != "" {
			o.Images = append(o.Images, u)
		}
	}

	for _, section := range extract.ListAt(detail, "equipment") {
		category := normalize.Categorize(extract.TextAt(section, "sectionName"), normalize.DefaultCategoryRules)
		for _, item := range extract.Strings(extract.ListAt(section, "items")) {
			o.Equipment.Add(category, item)
		}
	}

	if info := extract.ObjectAt(detail, "additionalInfo"); info != nil {
		o.AdditionalInfoHeader = extract.TextAt(info, "header")
		if content, ok := info["content"].(string); ok {
			text, err := normalize.HTMLToText(content)
			if err != nil {
				log.Debug().Err(err).Str(engine.DetailMarketplace, Name).Msg("Keeping additional info as raw text")
				text = normalize.CleanText(content)
			}
			o.AdditionalInfo = text
		}
	}

	if o.DealerName == "" && o.ContactPhone == "" && len(o.Images) == 0 && o.Equipment.IsEmpty() && o.AdditionalInfo == "" {
		return nil, engine.StructureError(Name, "no dealer, media or equipment data")
	}
	return o, nil
}

// finalize applies the shared normalization with the card cover image first
func finalize(o *models.Offer, detail map[string]any) {
	normalize.Finalize(o, normalize.Options{
		PrimaryImage: extract.TextAt(detail, "cardInfo", "primaryImage"),
		Images:       normalize.ImagePolicy{Deny: normalize.DefaultImageDenylist},
	})
}
