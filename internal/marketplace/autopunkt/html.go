package autopunkt

import (
	"regexp"
	"strings"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/extract"
	"github.com/kameel77/auto-scraper/internal/normalize"
	"github.com/kameel77/auto-scraper/pkg/models"
)

// Labels of the technical data table, without the trailing colon
const (
	labelYear              = "Rocznik"
	labelFirstRegistration = "Pierwsza rejestracja"
	labelVIN               = "VIN"
	labelBody              = "Typ nadwozia"
	labelFuel              = "Typ silnika"
	labelDrive             = "Napęd"
	labelTransmission      = "Skrzynia biegów"
	labelColor             = "Kolor nadwozia"
	labelMileage           = "Przebieg"
	labelCapacityPower     = "Pojemność / moc"
	labelOfferNumber       = "Numer oferty"
	labelLocation          = "Lokalizacja"
)

var knownLabels = []string{
	labelYear, labelFirstRegistration, labelVIN, labelBody, labelFuel, labelDrive,
	labelTransmission, labelColor, labelMileage, labelCapacityPower, labelOfferNumber,
}

var (
	mileageKM   = regexp.MustCompile(`([\d\s]+)\s*km`)
	capacityCM3 = regexp.MustCompile(`(?i)([\d\s]+)\s*\[?CM3\]?`)
	powerKM     = regexp.MustCompile(`(?i)([\d\s]+)\s*\[?KM\]?`)
	phoneNumber = regexp.MustCompile(`\bTelefon\b\s*([\d\s]{7,})`)

	locationStop = []string{"Podobne oferty", "Zapytaj o ofertę", "Zobacz"}
)

// maxAddressLines bounds the dealer block under the location heading
const maxAddressLines = 4

// fromHTML reads the visible page: labeled technical data, price cues, the
// dealer block and list heuristics.
func fromHTML(p page) (*models.Offer, error) {
	if p.doc == nil {
		return nil, engine.StructureError(Name, "no document")
	}
	ti := extract.NewTextIndex(p.doc)
	text := ti.String()
	o := models.NewOffer(models.SourceAutopunkt)

	if title := normalize.CleanText(p.doc.Find("h1").First().Text()); title != "" {
		o.Title = title
		parts := strings.SplitN(title, " ", 2)
		o.Brand = parts[0]
		if len(parts) > 1 {
			o.Model = parts[1]
		}
	}

	value := func(label string) string { return ti.Value(label, knownLabels) }
	o.ProductionYear = normalize.ParseInt(value(labelYear))
	o.FirstRegistration = value(labelFirstRegistration)
	o.VIN = value(labelVIN)
	o.BodyType = value(labelBody)
	o.FuelType = value(labelFuel)
	o.DriveType = value(labelDrive)
	o.Transmission = value(labelTransmission)
	o.Color = value(labelColor)
	o.OfferNumber = value(labelOfferNumber)
	if m := mileageKM.FindStringSubmatch(value(labelMileage)); m != nil {
		o.MileageKM = normalize.ParseInt(m[1])
	}
	if cp := value(labelCapacityPower); cp != "" {
		if m := capacityCM3.FindStringSubmatch(cp); m != nil {
			o.EngineCapacityCM3 = normalize.ParseInt(m[1])
		}
		if m := powerKM.FindStringSubmatch(cp); m != nil {
			o.PowerHP = normalize.ParseInt(m[1])
		}
	}

	o.PriceGross = extract.AmountAfterCue(text, "Cena brutto", extract.DefaultCueWindow)
	o.OmnibusPrice = extract.AmountAfterCue(text, "Najniższa cena z 30 dni", extract.DefaultCueWindow)
	o.OldPrice = extract.AmountAfterCue(text, "Stara cena", extract.DefaultCueWindow)
	o.Benefit = extract.AmountAfterCue(text, "Korzyść", extract.DefaultCueWindow)
	o.MonthlyInstallment = extract.AmountAfterCue(text, "Rata kredytu", extract.DefaultCueWindow)

	if m := phoneNumber.FindStringSubmatch(text); m != nil {
		o.ContactPhone = normalize.CleanText(m[1])
	}
	dealerBlock(o, ti)

	o.RawEquipment = extract.EquipmentList(p.doc)
	o.Tags = extract.TagList(p.doc)
	o.Images = extract.ImageSources(p.doc, p.url)

	if !o.HasContent() {
		return nil, engine.StructureError(Name, "no recognizable listing markup")
	}
	return o, nil
}

// dealerBlock reads the dealer name and address lines that follow the
// location heading.
func dealerBlock(o *models.Offer, ti *extract.TextIndex) {
	lines := ti.Following(labelLocation, maxAddressLines+1, nil)
	if len(lines) == 0 {
		return
	}
	o.DealerName = lines[0]

	var address []string
	for _, l := range lines[1:] {
		if hasAny(l, locationStop) {
			break
		}
		address = append(address, l)
	}
	if len(address) > 0 {
		o.DealerAddressLine1 = address[0]
	}
	if len(address) > 1 {
		o.DealerAddressLine2 = address[1]
	}
	if len(address) > 2 {
		o.DealerAddressLine3 = strings.Join(address[2:], " ")
	}
}

func hasAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// finalize applies the shared normalization rules
func finalize(o *models.Offer) {
	normalize.Finalize(o, normalize.Options{
		Images: normalize.ImagePolicy{Deny: normalize.DefaultImageDenylist},
	})
}
