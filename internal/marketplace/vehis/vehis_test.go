package vehis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/engine/api"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/kameel77/auto-scraper/pkg/models"
)

const subjectJSON = `{"subjects": [{
  "subject_id": 5012,
  "group_id": 77,
  "brand": "Toyota",
  "model": "Corolla",
  "version": "1.8 Hybrid Comfort",
  "vin": "sb1k93be10e123456",
  "netto_price": 100000,
  "manufacturing_year": 2022,
  "mileage": "31 500",
  "fuel_type": "Hybrid",
  "gearbox_type": "Automatic stepless",
  "drive_type": "Front wheel drive",
  "body_type": "Liftback",
  "engine_power": 140,
  "engine_capacity": 1798,
  "number_of_doors": 5,
  "number_of_seats": 5,
  "color": "Biały",
  "registration_number": "WX1234A",
  "first_registration_date": "2022-03-15",
  "dealer_name": "Vehis Warszawa",
  "location": "Warszawa",
  "images": "https://cdn.vehis.pl/a.jpg, https://cdn.vehis.pl/b.jpg,,https://cdn.vehis.pl/a.jpg",
  "equipment": ["Klimatyzacja automatyczna", "Kamera cofania"],
  "additional_equipment": ["Hak holowniczy"],
  "additional_description": "<p>Pierwszy właściciel</p><script>x()</script>"
}]}`

type apiServer struct {
	*httptest.Server
	logins atomic.Int32
}

// newAPIServer serves total index items in pages plus one subject detail.
// Every seventh item lacks its group id.
func newAPIServer(t *testing.T, total int, detail string) *apiServer {
	t.Helper()
	s := &apiServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		s.logins.Add(1)
		fmt.Fprint(w, `{"token":"tok"}`)
	})
	mux.HandleFunc("/broker/subjects", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sortBy") != "subject_id" || r.URL.Query().Get("sortOrder") != "asc" {
			t.Errorf("Expected ascending subject_id sort, got %v", r.URL.Query())
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"subjects":[`)
		for i := offset; i < offset+limit && i < total; i++ {
			if i > offset {
				fmt.Fprint(w, ",")
			}
			if i%7 == 6 {
				fmt.Fprintf(w, `{"subject_id":%d}`, 1000+i)
				continue
			}
			fmt.Fprintf(w, `{"subject_id":%d,"group_id":%d}`, 1000+i, 10+i%3)
		}
		fmt.Fprint(w, `]}`)
	})
	mux.HandleFunc("/broker/subjects/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/broker/subjects/77/5012" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, detail)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func testAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1
	client, err := api.New(api.Options{
		Marketplace: Name,
		BaseURL:     baseURL,
		Email:       "broker@example.pl",
		Password:    "secret",
		Retry:       cfg,
	})
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}
	a := New(client, Config{PageSize: 5, MaxPages: 10})
	a.now = func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC) }
	return a
}

func TestParse_Subject(t *testing.T) {
	server := newAPIServer(t, 0, subjectJSON)
	a := testAdapter(t, server.URL)

	ref, err := a.RefFromURL(server.URL + "/broker/subjects/77/5012")
	if err != nil {
		t.Fatalf("RefFromURL failed: %v", err)
	}
	offer, err := a.Parse(context.Background(), ref)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if offer.ListingID != "5012" || offer.OfferNumber != "5012" {
		t.Errorf("Expected listing and offer number 5012, got %q / %q", offer.ListingID, offer.OfferNumber)
	}
	if offer.Source != models.SourceVehis {
		t.Errorf("Expected source vehis, got %q", offer.Source)
	}
	if offer.Title != "Toyota Corolla 1.8 Hybrid Comfort" {
		t.Errorf("Unexpected title %q", offer.Title)
	}
	if offer.VIN != "SB1K93BE10E123456" {
		t.Errorf("Expected upper-cased VIN, got %q", offer.VIN)
	}
	if offer.PriceGross == nil || *offer.PriceGross != 123000 {
		t.Errorf("Expected gross 123000, got %v", offer.PriceGross)
	}
	if offer.PriceDisplay != "123 000 PLN" {
		t.Errorf("Expected display \"123 000 PLN\", got %q", offer.PriceDisplay)
	}
	if offer.PriceTaxBasis != models.TaxBasisGrossFromNet {
		t.Errorf("Expected tax basis %q, got %q", models.TaxBasisGrossFromNet, offer.PriceTaxBasis)
	}
	if offer.Currency != models.CurrencyPLN {
		t.Errorf("Expected PLN, got %q", offer.Currency)
	}
	if offer.MileageKM == nil || *offer.MileageKM != 31500 {
		t.Errorf("Expected mileage 31500, got %v", offer.MileageKM)
	}

	vocab := map[string]string{
		"fuel":         offer.FuelType,
		"transmission": offer.Transmission,
		"drive":        offer.DriveType,
		"body":         offer.BodyType,
	}
	want := map[string]string{
		"fuel":         "hybrydowy",
		"transmission": "automatyczna",
		"drive":        "na przednie koła",
		"body":         "Liftback",
	}
	if diff := cmp.Diff(want, vocab); diff != "" {
		t.Errorf("Vocabulary mismatch (-want +got):\n%s", diff)
	}

	wantImages := []string{"https://cdn.vehis.pl/a.jpg", "https://cdn.vehis.pl/b.jpg"}
	if diff := cmp.Diff(wantImages, offer.Images); diff != "" {
		t.Errorf("Images mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Hak holowniczy"}, offer.RawAdditionalEquipment); diff != "" {
		t.Errorf("Additional equipment mismatch (-want +got):\n%s", diff)
	}
	if offer.AdditionalInfo != "Pierwszy właściciel" {
		t.Errorf("Expected description without markup, got %q", offer.AdditionalInfo)
	}
	if offer.DealerName != "Vehis Warszawa" || offer.DealerAddressLine1 != "Warszawa" {
		t.Errorf("Unexpected dealer %q / %q", offer.DealerName, offer.DealerAddressLine1)
	}
	if len(offer.Equipment) != len(models.EquipmentCategories) {
		t.Errorf("Expected %d equipment categories, got %d", len(models.EquipmentCategories), len(offer.Equipment))
	}
}

func TestParse_ConsumerNetFallback(t *testing.T) {
	server := newAPIServer(t, 0, `{"subjects":[{"subject_id":5012,"brand":"Kia","netto_price":0,"consumer_netto_price":"50 000"}]}`)
	a := testAdapter(t, server.URL)

	offer, err := a.Parse(context.Background(), a.ref("77", "5012"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if offer.PriceGross == nil || *offer.PriceGross != 61500 {
		t.Errorf("Expected gross 61500, got %v", offer.PriceGross)
	}
}

func TestParse_NoPrice(t *testing.T) {
	server := newAPIServer(t, 0, `{"subjects":[{"subject_id":5012,"brand":"Kia"}]}`)
	a := testAdapter(t, server.URL)

	offer, err := a.Parse(context.Background(), a.ref("77", "5012"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if offer.PriceGross != nil || offer.PriceTaxBasis != "" || offer.Currency != "" {
		t.Errorf("Expected no price fields, got %v %q %q", offer.PriceGross, offer.PriceTaxBasis, offer.Currency)
	}
}

func TestParse_EmptySubjects(t *testing.T) {
	server := newAPIServer(t, 0, `{"subjects":[]}`)
	a := testAdapter(t, server.URL)

	_, err := a.Parse(context.Background(), a.ref("77", "5012"))
	if !errors.Is(err, engine.ErrStructure) {
		t.Fatalf("Expected STRUCTURE error, got %v", err)
	}
	if got := engine.Detail(err, engine.DetailListingID); got != "5012" {
		t.Errorf("Expected listing_id detail 5012, got %q", got)
	}
}

func TestParse_NotFound(t *testing.T) {
	server := newAPIServer(t, 0, subjectJSON)
	a := testAdapter(t, server.URL)

	_, err := a.Parse(context.Background(), a.ref("1", "2"))
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("Expected NOT_FOUND error, got %v", err)
	}
	if got := engine.Detail(err, engine.DetailMarketplace); got != Name {
		t.Errorf("Expected marketplace detail %q, got %q", Name, got)
	}
}

func TestEnumerate_Pages(t *testing.T) {
	server := newAPIServer(t, 12, subjectJSON)
	a := testAdapter(t, server.URL)

	refs, err := a.Enumerate(context.Background(), models.EnumerateOptions{})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	// items 6 and 13 lack a group id; only 6 is below 12
	if len(refs) != 11 {
		t.Fatalf("Expected 11 refs, got %d", len(refs))
	}
	first := models.ListingRef{Source: models.SourceVehis, ListingID: "1000", URL: server.URL + "/broker/subjects/10/1000"}
	if diff := cmp.Diff(first, refs[0]); diff != "" {
		t.Errorf("First ref mismatch (-want +got):\n%s", diff)
	}
	for _, r := range refs {
		if r.ListingID == "1006" {
			t.Errorf("Expected item without group id to be skipped")
		}
	}
	if server.logins.Load() != 1 {
		t.Errorf("Expected 1 login, got %d", server.logins.Load())
	}
}

func TestEnumerate_Limit(t *testing.T) {
	server := newAPIServer(t, 40, subjectJSON)
	a := testAdapter(t, server.URL)

	refs, err := a.Enumerate(context.Background(), models.EnumerateOptions{Limit: 8})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(refs) != 8 {
		t.Errorf("Expected 8 refs, got %d", len(refs))
	}
}

func TestEnumerate_RejectedLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	a := testAdapter(t, server.URL)

	_, err := a.Enumerate(context.Background(), models.EnumerateOptions{})
	if !errors.Is(err, engine.ErrConfig) {
		t.Fatalf("Expected CONFIG error, got %v", err)
	}
}

func TestRefFromURL(t *testing.T) {
	client, err := api.New(api.Options{Marketplace: Name, BaseURL: DefaultBaseURL, Email: "a", Password: "b"})
	if err != nil {
		t.Fatal(err)
	}
	a := New(client, Config{})
	tests := []struct {
		url  string
		fail bool
	}{
		{"https://vash.vehistools.pl/api/broker/subjects/77/5012", false},
		{"https://vash.vehistools.pl/api/broker/subjects/77/5012/", false},
		{"https://vash.vehistools.pl/api/broker/subjects/77", true},
		{"not a url", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if tt.fail {
				_, err := a.RefFromURL(tt.url)
				if !errors.Is(err, engine.ErrConfig) {
					t.Errorf("Expected CONFIG error, got %v", err)
				}
				return
			}
			ref, err := a.RefFromURL(tt.url)
			if err != nil {
				t.Fatalf("RefFromURL failed: %v", err)
			}
			if ref.ListingID != "5012" {
				t.Errorf("Expected listing 5012, got %q", ref.ListingID)
			}
			if ref.URL != DefaultBaseURL+"/broker/subjects/77/5012" {
				t.Errorf("Unexpected canonical URL %q", ref.URL)
			}
		})
	}
}
