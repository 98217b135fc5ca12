package models

import "time"

// Source identifies the marketplace a record was scraped from
type Source string

const (
	SourceAutopunkt Source = "autopunkt.pl"
	SourceFindcar   Source = "findcar.pl"
	SourceVehis     Source = "vehis"
)

// Tax basis of PriceGross
const (
	TaxBasisGross        = "gross"
	TaxBasisGrossFromNet = "gross_from_net"
)

// CurrencyPLN is the only currency the supported marketplaces quote in
const CurrencyPLN = "PLN"

// Offer is the canonical, marketplace independent vehicle offer record.
//
// Numeric pointers are nil when the field is absent. A present value is never
// substituted with zero.
type Offer struct {
	ListingID string    `json:"listing_id"`
	URL       string    `json:"url"`
	Source    Source    `json:"source"`
	ScrapedAt time.Time `json:"scraped_at"`

	Title              string `json:"title,omitempty"`
	OfferNumber        string `json:"offer_number,omitempty"`
	Brand              string `json:"brand,omitempty"`
	Model              string `json:"model,omitempty"`
	Version            string `json:"version,omitempty"`
	VIN                string `json:"vin,omitempty"`
	ProductionYear     *int   `json:"production_year,omitempty"`
	FirstRegistration  string `json:"first_registration,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	MileageKM          *int   `json:"mileage_km,omitempty"`

	BodyType          string `json:"body_type,omitempty"`
	FuelType          string `json:"fuel_type,omitempty"`
	EngineCapacityCM3 *int   `json:"engine_capacity_cm3,omitempty"`
	PowerHP           *int   `json:"power_hp,omitempty"`
	DriveType         string `json:"drive_type,omitempty"`
	Transmission      string `json:"transmission,omitempty"`
	Color             string `json:"color,omitempty"`
	PaintType         string `json:"paint_type,omitempty"`
	DoorCount         *int   `json:"door_count,omitempty"`
	SeatCount         *int   `json:"seat_count,omitempty"`

	PriceGross         *int   `json:"price_gross,omitempty"`
	PriceDisplay       string `json:"price_display,omitempty"`
	Currency           string `json:"currency,omitempty"`
	PriceTaxBasis      string `json:"price_tax_basis,omitempty"`
	OldPrice           *int   `json:"old_price,omitempty"`
	OmnibusPrice       *int   `json:"omnibus_reference_price,omitempty"`
	OmnibusText        string `json:"omnibus_text,omitempty"`
	Benefit            *int   `json:"benefit,omitempty"`
	MonthlyInstallment *int   `json:"monthly_installment,omitempty"`

	DealerName         string   `json:"dealer_name,omitempty"`
	DealerAddressLine1 string   `json:"dealer_address_line_1,omitempty"`
	DealerAddressLine2 string   `json:"dealer_address_line_2,omitempty"`
	DealerAddressLine3 string   `json:"dealer_address_line_3,omitempty"`
	DealerRating       *float64 `json:"dealer_rating,omitempty"`
	DealerReviewCount  *int     `json:"dealer_review_count,omitempty"`
	DealerLink         string   `json:"dealer_link,omitempty"`
	ContactPhone       string   `json:"contact_phone,omitempty"`

	Images                 []string          `json:"images"`
	Equipment              Equipment         `json:"equipment"`
	RawEquipment           []string          `json:"raw_equipment,omitempty"`
	RawAdditionalEquipment []string          `json:"raw_additional_equipment,omitempty"`
	Tags                   []string          `json:"tags,omitempty"`
	AdditionalInfoHeader   string            `json:"additional_info_header,omitempty"`
	AdditionalInfo         string            `json:"additional_info,omitempty"`
	Specs                  map[string]string `json:"specs,omitempty"`
}

// NewOffer returns an empty record for the given source with all four
// equipment categories present.
func NewOffer(source Source) *Offer {
	return &Offer{
		Source:    source,
		Images:    []string{},
		Equipment: NewEquipment(),
	}
}

// Fill copies every field of from that is still absent in o. Fields already
// present in o are kept, so calling Fill in priority order yields a "first
// source wins" merge.
func (o *Offer) Fill(from *Offer) {
	if from == nil {
		return
	}

	fillString(&o.ListingID, from.ListingID)
	fillString(&o.URL, from.URL)
	if o.Source == "" {
		o.Source = from.Source
	}
	if o.ScrapedAt.IsZero() {
		o.ScrapedAt = from.ScrapedAt
	}

	fillString(&o.Title, from.Title)
	fillString(&o.OfferNumber, from.OfferNumber)
	fillString(&o.Brand, from.Brand)
	fillString(&o.Model, from.Model)
	fillString(&o.Version, from.Version)
	fillString(&o.VIN, from.VIN)
	fillInt(&o.ProductionYear, from.ProductionYear)
	fillString(&o.FirstRegistration, from.FirstRegistration)
	fillString(&o.RegistrationNumber, from.RegistrationNumber)
	fillInt(&o.MileageKM, from.MileageKM)

	fillString(&o.BodyType, from.BodyType)
	fillString(&o.FuelType, from.FuelType)
	fillInt(&o.EngineCapacityCM3, from.EngineCapacityCM3)
	fillInt(&o.PowerHP, from.PowerHP)
	fillString(&o.DriveType, from.DriveType)
	fillString(&o.Transmission, from.Transmission)
	fillString(&o.Color, from.Color)
	fillString(&o.PaintType, from.PaintType)
	fillInt(&o.DoorCount, from.DoorCount)
	fillInt(&o.SeatCount, from.SeatCount)

	fillInt(&o.PriceGross, from.PriceGross)
	fillString(&o.PriceDisplay, from.PriceDisplay)
	fillString(&o.Currency, from.Currency)
	fillString(&o.PriceTaxBasis, from.PriceTaxBasis)
	fillInt(&o.OldPrice, from.OldPrice)
	fillInt(&o.OmnibusPrice, from.OmnibusPrice)
	fillString(&o.OmnibusText, from.OmnibusText)
	fillInt(&o.Benefit, from.Benefit)
	fillInt(&o.MonthlyInstallment, from.MonthlyInstallment)

	fillString(&o.DealerName, from.DealerName)
	fillString(&o.DealerAddressLine1, from.DealerAddressLine1)
	fillString(&o.DealerAddressLine2, from.DealerAddressLine2)
	fillString(&o.DealerAddressLine3, from.DealerAddressLine3)
	if o.DealerRating == nil && from.DealerRating != nil {
		v := *from.DealerRating
		o.DealerRating = &v
	}
	fillInt(&o.DealerReviewCount, from.DealerReviewCount)
	fillString(&o.DealerLink, from.DealerLink)
	fillString(&o.ContactPhone, from.ContactPhone)

	if len(o.Images) == 0 && len(from.Images) > 0 {
		o.Images = append([]string{}, from.Images...)
	}
	if o.Equipment.IsEmpty() && !from.Equipment.IsEmpty() {
		o.Equipment = from.Equipment.Clone()
	}
	if len(o.RawEquipment) == 0 && len(from.RawEquipment) > 0 {
		o.RawEquipment = append([]string{}, from.RawEquipment...)
	}
	if len(o.RawAdditionalEquipment) == 0 && len(from.RawAdditionalEquipment) > 0 {
		o.RawAdditionalEquipment = append([]string{}, from.RawAdditionalEquipment...)
	}
	if len(o.Tags) == 0 && len(from.Tags) > 0 {
		o.Tags = append([]string{}, from.Tags...)
	}
	fillString(&o.AdditionalInfoHeader, from.AdditionalInfoHeader)
	fillString(&o.AdditionalInfo, from.AdditionalInfo)
	if len(o.Specs) == 0 && len(from.Specs) > 0 {
		o.Specs = make(map[string]string, len(from.Specs))
		for k, v := range from.Specs {
			o.Specs[k] = v
		}
	}
}

// HasContent reports whether any descriptive field was extracted
func (o *Offer) HasContent() bool {
	return o.Brand != "" || o.Model != "" || o.Title != "" || o.VIN != "" ||
		o.PriceGross != nil || len(o.Images) > 0 || !o.Equipment.IsEmpty()
}

// Int returns a pointer to v, for building records in literals
func Int(v int) *int {
	return &v
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func fillInt(dst **int, src *int) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
