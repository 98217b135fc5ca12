package findcar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/engine/static"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/kameel77/auto-scraper/pkg/models"
)

const detailJSON = `{
  "cardInfo": {
    "make": {"text": "Skoda"},
    "model": {"text": "Octavia"},
    "version": "2.0 TDI Style",
    "productionYear": 2021,
    "mileageKm": 45210,
    "fuelType": {"text": "Diesel"},
    "transmission": {"text": "Automatyczna"},
    "enginePowerHp": 150,
    "primaryImage": "https://img.findcar.pl/cover.jpg",
    "pricing": {"offer": {
      "offerPricePln100": 12345600,
      "displayAmount": "123 456 zł",
      "omnibus": {"lowestPricePln100": 12990000, "displayText": "Najniższa cena z 30 dni: 129 900 zł"}
    }}
  },
  "specifications": [
    {"label": "Marka", "value": "Škoda"},
    {"label": "VIN", "value": "tmbjj7ne1m0123456"},
    {"label": "Przebieg", "value": "45 210 km"},
    {"label": "Pojemność silnika", "value": "1 968 cm3"},
    {"label": "Liczba drzwi", "value": "5"},
    {"label": "Rodzaj lakieru", "value": "metalik"}
  ],
  "equipment": [
    {"sectionName": "Audio i multimedia", "items": ["Android Auto", "Apple CarPlay"]},
    {"sectionName": "Bezpieczeństwo", "items": ["ABS", "ESP"]},
    {"sectionName": "Komfort i dodatki", "items": ["Podgrzewane fotele"]},
    {"sectionName": "Inne", "items": ["Hak"]}
  ],
  "media": [
    {"type": "image", "url": "https://img.findcar.pl/2.jpg"},
    {"type": "video", "url": "https://img.findcar.pl/movie.mp4"},
    {"type": "image", "url": "https://img.findcar.pl/cover.jpg"},
    {"type": "image", "url": "https://img.findcar.pl/facebook-badge.png"}
  ],
  "dealer": {
    "name": "Auto Centrum",
    "address": {"line1": "ul. Prosta 5", "line2": "00-001 Warszawa", "line3": "mazowieckie"},
    "googleRating": 4.7,
    "reviewCount": 312,
    "googleLink": "https://maps.google.com/?cid=1"
  },
  "contactPhone": "+48 600 100 200",
  "additionalInfo": {"header": "Opis", "content": "<p>Pierwszy <b>właściciel</b></p><script>x()</script>"}
}`

func testAdapter(baseURL string) *Adapter {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1
	a := New(static.New(static.Options{Timeout: 5 * time.Second, Retry: cfg}), Config{BaseURL: baseURL})
	a.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAdapter_Parse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/listings/1234567" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(detailJSON))
	}))
	defer server.Close()

	a := testAdapter(server.URL)
	ref, err := a.RefFromURL(server.URL + "/listings/1234567")
	if err != nil {
		t.Fatalf("RefFromURL failed: %v", err)
	}

	offer, err := a.Parse(context.Background(), ref)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if offer.PriceGross == nil || *offer.PriceGross != 123456 {
		t.Errorf("Expected price_gross 123456, got %v", offer.PriceGross)
	}
	if offer.OmnibusPrice == nil || *offer.OmnibusPrice != 129900 {
		t.Errorf("Expected omnibus price 129900, got %v", offer.OmnibusPrice)
	}
	if offer.Benefit == nil || *offer.Benefit != 6444 {
		t.Errorf("Expected benefit 6444, got %v", offer.Benefit)
	}
	if offer.Brand != "Škoda" {
		t.Errorf("Expected specifications to win for brand, got %q", offer.Brand)
	}
	if offer.Model != "Octavia" {
		t.Errorf("Expected card model as fallback, got %q", offer.Model)
	}
	if offer.VIN != "TMBJJ7NE1M0123456" {
		t.Errorf("Expected upper-cased VIN, got %q", offer.VIN)
	}
	if offer.MileageKM == nil || *offer.MileageKM != 45210 {
		t.Errorf("Expected mileage 45210, got %v", offer.MileageKM)
	}
	if offer.EngineCapacityCM3 == nil || *offer.EngineCapacityCM3 != 1968 {
		t.Errorf("Expected capacity 1968, got %v", offer.EngineCapacityCM3)
	}
	if offer.OfferNumber != "1234567" || offer.ListingID != "1234567" {
		t.Errorf("Expected offer number and id 1234567, got %q/%q", offer.OfferNumber, offer.ListingID)
	}
	if offer.Currency != models.CurrencyPLN || offer.PriceTaxBasis != models.TaxBasisGross {
		t.Errorf("Expected PLN gross, got %s %s", offer.Currency, offer.PriceTaxBasis)
	}
	if offer.DealerRating == nil || *offer.DealerRating != 4.7 {
		t.Errorf("Expected dealer rating 4.7, got %v", offer.DealerRating)
	}

	wantImages := []string{"https://img.findcar.pl/cover.jpg", "https://img.findcar.pl/2.jpg"}
	if diff := cmp.Diff(wantImages, offer.Images); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}

	wantEquipment := models.Equipment{
		models.EquipmentAudioMultimedia: {"Android Auto", "Apple CarPlay"},
		models.EquipmentComfort:         {"Podgrzewane fotele"},
		models.EquipmentSafety:          {"ABS", "ESP"},
		models.EquipmentOther:           {"Hak"},
	}
	if diff := cmp.Diff(wantEquipment, offer.Equipment); diff != "" {
		t.Errorf("equipment mismatch (-want +got):\n%s", diff)
	}

	if offer.AdditionalInfoHeader != "Opis" {
		t.Errorf("Expected header 'Opis', got %q", offer.AdditionalInfoHeader)
	}
	if strings.Contains(offer.AdditionalInfo, "<") || strings.Contains(offer.AdditionalInfo, "x()") {
		t.Errorf("Expected markup and scripts removed, got %q", offer.AdditionalInfo)
	}
	if offer.Specs["Rodzaj lakieru"] != "metalik" {
		t.Errorf("Expected specs map to be kept, got %v", offer.Specs)
	}
}

func TestParseDetail_MissingOmnibus(t *testing.T) {
	detail := map[string]any{
		"cardInfo": map[string]any{
			"make": map[string]any{"text": "Kia"},
			"pricing": map[string]any{"offer": map[string]any{
				"offerPricePln100": 12345600,
			}},
		},
	}

	offer, err := parseDetail(models.ListingRef{}, detail)
	if err != nil {
		t.Fatalf("parseDetail failed: %v", err)
	}
	if offer.PriceGross == nil || *offer.PriceGross != 123456 {
		t.Errorf("Expected price_gross 123456, got %v", offer.PriceGross)
	}
	if offer.OldPrice != nil {
		t.Errorf("Expected old_price absent, got %d", *offer.OldPrice)
	}
	if offer.OmnibusPrice != nil {
		t.Errorf("Expected omnibus price absent, got %d", *offer.OmnibusPrice)
	}
}

func TestParseDetail_DisplayAmountFallback(t *testing.T) {
	detail := map[string]any{
		"cardInfo": map[string]any{
			"pricing": map[string]any{"offer": map[string]any{"displayAmount": "89 900 zł"}},
		},
	}

	offer, err := parseDetail(models.ListingRef{}, detail)
	if err != nil {
		t.Fatalf("parseDetail failed: %v", err)
	}
	if offer.PriceGross == nil || *offer.PriceGross != 89900 {
		t.Errorf("Expected price_gross 89900 from display amount, got %v", offer.PriceGross)
	}
}

func TestParseDetail_EmptyPayloadIsStructureError(t *testing.T) {
	_, err := parseDetail(models.ListingRef{}, map[string]any{})
	if !errors.Is(err, engine.ErrStructure) {
		t.Fatalf("Expected STRUCTURE error, got %v", err)
	}
	if !errors.Is(err, engine.ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
}

func TestAdapter_ParseNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	a := testAdapter(server.URL)
	_, err := a.Parse(context.Background(), a.ref("999999"))
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("Expected NOT_FOUND, got %v", err)
	}
	if engine.Detail(err, engine.DetailListingID) != "999999" {
		t.Errorf("Expected listing id detail, got %q", engine.Detail(err, engine.DetailListingID))
	}
	if engine.Detail(err, engine.DetailMarketplace) != Name {
		t.Errorf("Expected marketplace detail, got %q", engine.Detail(err, engine.DetailMarketplace))
	}
}

func TestAdapter_Enumerate(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if r.URL.Query().Get("size") != "45" {
			t.Errorf("Expected page size 45, got %q", r.URL.Query().Get("size"))
		}
		if r.Header.Get("Upgrade-Insecure-Requests") != "1" {
			t.Errorf("Expected Upgrade-Insecure-Requests header")
		}
		switch page {
		case "1":
			fmt.Fprint(w, `<a href="/listings/1000001">a</a><a href="/listings/1000002">b</a>`)
		case "2":
			fmt.Fprint(w, `<script>{"publicListingNumber": "1000003"}</script>`)
		default:
			fmt.Fprint(w, `<p>Brak wyników</p>`)
		}
	}))
	defer server.Close()

	a := testAdapter(server.URL)
	refs, err := a.Enumerate(context.Background(), models.EnumerateOptions{})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	want := []models.ListingRef{
		{Source: models.SourceFindcar, ListingID: "1000001", URL: server.URL + "/listings/1000001"},
		{Source: models.SourceFindcar, ListingID: "1000002", URL: server.URL + "/listings/1000002"},
		{Source: models.SourceFindcar, ListingID: "1000003", URL: server.URL + "/listings/1000003"},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_EnumerateFailedPageKeepsPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `<a href="/listings/1000001">a</a>`)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	refs, err := testAdapter(server.URL).Enumerate(context.Background(), models.EnumerateOptions{})
	if err == nil {
		t.Fatal("Expected the failed result page to surface as an error")
	}
	if len(refs) != 1 || refs[0].ListingID != "1000001" {
		t.Errorf("Expected the listing of page 1 to be kept, got %+v", refs)
	}
}

func TestAdapter_EnumerateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		for i := 0; i < 25; i++ {
			fmt.Fprintf(&b, `<a href="/listings/%d">x</a>`, 2000000+i)
		}
		w.Write([]byte(b.String()))
	}))
	defer server.Close()

	refs, err := testAdapter(server.URL).Enumerate(context.Background(), models.EnumerateOptions{Limit: 10})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(refs) != 10 {
		t.Fatalf("Expected 10 refs, got %d", len(refs))
	}
	if refs[0].ListingID != "2000000" || refs[9].ListingID != "2000009" {
		t.Errorf("Expected discovery order, got %s..%s", refs[0].ListingID, refs[9].ListingID)
	}
}

func TestAdapter_RefFromURL(t *testing.T) {
	a := New(nil, Config{})

	ref, err := a.RefFromURL("https://findcar.pl/listings/1234567/")
	if err != nil {
		t.Fatalf("RefFromURL failed: %v", err)
	}
	if ref.ListingID != "1234567" || ref.URL != "https://findcar.pl/listings/1234567" {
		t.Errorf("Unexpected ref %+v", ref)
	}

	for _, bad := range []string{"https://autopunkt.pl/listings/1", "https://findcar.pl/oferty", "not a url"} {
		if _, err := a.RefFromURL(bad); !errors.Is(err, engine.ErrConfig) {
			t.Errorf("Expected CONFIG error for %q, got %v", bad, err)
		}
	}
}
