package autopunkt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/engine/dynamic"
	"github.com/kameel77/auto-scraper/internal/engine/static"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/kameel77/auto-scraper/pkg/models"
)

const nuxtScript = `<script>window.__NUXT__=(function(a,b,c,d,e,f,g,h){` +
	`h.name="Autopunkt Bielsko-Biała";h.city="Bielsko-Biała";h.street="Warszawska 150";h.postalCode="43-300";h.phone="33 444 55 66";` +
	`return {data:[{car:{id:109920,location:h,attributes:[` +
	`{id:58,type:a,name:"Marka",value:"Opel",group:b},` +
	`{id:59,type:a,name:"Model",value:"Insignia",group:b},` +
	`{id:81,type:a,name:"Rocznik",value:2019,group:b},` +
	`{id:82,type:a,name:"Przebieg",value:"87 500 km",group:b},` +
	`{id:77,type:a,name:"Cena",value:c,group:b},` +
	`{id:78,type:a,name:"Stara cena",value:d,group:b},` +
	`{id:66,type:a,name:"Typ silnika",value:"Diesel",group:b},` +
	`{id:197,type:a,name:"VIN",value:"w0vzt8gb1k1000001",group:b},` +
	`{id:401,type:e,name:"Klimatyzacja automatyczna",value:!0,group:"Komfort"},` +
	`{id:402,type:e,name:"ABS",value:!0,group:"Bezpieczeństwo"},` +
	`{id:403,type:e,name:"Android Auto",value:!0,group:"Technologia i multimedia"},` +
	`{id:404,type:e,name:"Hak",value:!0,group:"Nadwozie"},` +
	`{id:405,type:e,name:"Bezwypadkowy",value:!0,group:{id:9,name:"Historia pojazdu"}},` +
	`{id:406,type:e,name:"Leasing",value:f,group:"Finansowanie"},` +
	`{id:407,type:e,name:"Szyberdach",value:!1,group:"Komfort"}],` +
	`files:["https://cdn.autopunkt.pl/cars/109920/1.jpg",g,"https://cdn.autopunkt.pl/static/icon.png"]}}]}}` +
	`("text",{id:1,name:"Dane podstawowe"},89900,99900,"bool",!0,"https://cdn.autopunkt.pl/cars/109920/2.jpg",{}));</script>`

const visibleMarkup = `<h1>Opel Insignia Sports Tourer</h1>
<ul><li>Bezwypadkowy</li><li>Gwarantowany przebieg</li></ul>
<dl>
  <dt>Rocznik:</dt><dd>2018</dd>
  <dt>Kolor nadwozia:</dt><dd>Szary</dd>
  <dt>Przebieg:</dt><dd>87 500 km</dd>
  <dt>Pojemność / moc:</dt><dd>1 598 cm3 / 136 KM</dd>
  <dt>Skrzynia biegów:</dt><dd>Manualna</dd>
</dl>
<div class="price"><span>Cena brutto</span><strong>89 900 zł</strong></div>
<div><span>Rata kredytu</span><strong>1 249 zł</strong>/mies.</div>
<ul>
  <li>ABS</li><li>ESP</li><li>Klimatyzacja</li><li>Airbag kierowcy</li>
  <li>Tempomat</li><li>Czujniki parkowania</li><li>Isofix</li><li>Alufelgi</li>
</ul>
<p>Telefon</p><p>33 123 45 67</p>
<h3>Lokalizacja</h3>
<p>Autopunkt Kraków</p><p>ul. Zakopiańska 1</p><p>30-418 Kraków</p><p>Zapytaj o ofertę</p>
<img src="https://cdn.autopunkt.pl/cars/1/a.jpg"><img data-src="/cars/1/b.jpg"><img src="/static/logo.svg">`

func testFetcher() *static.Fetcher {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1
	return static.New(static.Options{Timeout: 5 * time.Second, Retry: cfg})
}

func serve(t *testing.T, body string) (*httptest.Server, *Adapter) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	a := New(testFetcher(), nil, Config{BaseURL: server.URL})
	a.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return server, a
}

func TestAdapter_ParseClosureFirst(t *testing.T) {
	server, a := serve(t, `<html><head>`+nuxtScript+`</head><body>`+visibleMarkup+`</body></html>`)

	ref, err := a.RefFromURL(server.URL + "/samochod/bielsko_biala/kombi/opel/insignia/id/109920")
	if err != nil {
		t.Fatalf("RefFromURL failed: %v", err)
	}
	offer, err := a.Parse(context.Background(), ref)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if offer.ListingID != "109920" {
		t.Errorf("Expected listing id 109920, got %q", offer.ListingID)
	}
	if offer.Brand != "Opel" || offer.Model != "Insignia" {
		t.Errorf("Expected Opel Insignia from page state, got %q %q", offer.Brand, offer.Model)
	}
	if offer.ProductionYear == nil || *offer.ProductionYear != 2019 {
		t.Errorf("Expected page state year 2019 to win, got %v", offer.ProductionYear)
	}
	if offer.VIN != "W0VZT8GB1K1000001" {
		t.Errorf("Expected upper-cased VIN, got %q", offer.VIN)
	}
	if offer.Color != "Szary" {
		t.Errorf("Expected color from markup fallback, got %q", offer.Color)
	}
	if offer.EngineCapacityCM3 == nil || *offer.EngineCapacityCM3 != 1598 {
		t.Errorf("Expected capacity 1598, got %v", offer.EngineCapacityCM3)
	}
	if offer.PowerHP == nil || *offer.PowerHP != 136 {
		t.Errorf("Expected power 136, got %v", offer.PowerHP)
	}
	if offer.PriceGross == nil || *offer.PriceGross != 89900 {
		t.Errorf("Expected price 89900, got %v", offer.PriceGross)
	}
	if offer.Benefit == nil || *offer.Benefit != 10000 {
		t.Errorf("Expected benefit 10000, got %v", offer.Benefit)
	}
	if offer.MonthlyInstallment == nil || *offer.MonthlyInstallment != 1249 {
		t.Errorf("Expected installment 1249, got %v", offer.MonthlyInstallment)
	}

	wantEquipment := models.Equipment{
		models.EquipmentAudioMultimedia: {"Android Auto"},
		models.EquipmentComfort:         {"Klimatyzacja automatyczna"},
		models.EquipmentSafety:          {"ABS"},
		models.EquipmentOther:           {"Hak", "Leasing"},
	}
	if diff := cmp.Diff(wantEquipment, offer.Equipment); diff != "" {
		t.Errorf("equipment mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Bezwypadkowy"}, offer.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if len(offer.RawEquipment) != 8 {
		t.Errorf("Expected 8 raw equipment items from the markup list, got %v", offer.RawEquipment)
	}

	wantImages := []string{
		"https://cdn.autopunkt.pl/cars/109920/1.jpg",
		"https://cdn.autopunkt.pl/cars/109920/2.jpg",
	}
	if diff := cmp.Diff(wantImages, offer.Images); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}

	if offer.DealerName != "Autopunkt Bielsko-Biała" {
		t.Errorf("Expected dealer from page state, got %q", offer.DealerName)
	}
	if offer.DealerAddressLine1 != "Warszawska 150" || offer.DealerAddressLine2 != "43-300 Bielsko-Biała" {
		t.Errorf("Unexpected address %q / %q", offer.DealerAddressLine1, offer.DealerAddressLine2)
	}
	if offer.ContactPhone != "33 444 55 66" {
		t.Errorf("Expected phone from page state, got %q", offer.ContactPhone)
	}
}

func TestAdapter_ParseMarkupOnly(t *testing.T) {
	server, a := serve(t, `<html><body>`+visibleMarkup+`</body></html>`)

	ref, err := a.RefFromURL(server.URL + "/samochod/krakow/kombi/opel/insignia/id/5")
	if err != nil {
		t.Fatalf("RefFromURL failed: %v", err)
	}
	offer, err := a.Parse(context.Background(), ref)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if offer.Brand != "Opel" || offer.Model != "Insignia Sports Tourer" {
		t.Errorf("Expected title split into brand and model, got %q %q", offer.Brand, offer.Model)
	}
	if offer.ProductionYear == nil || *offer.ProductionYear != 2018 {
		t.Errorf("Expected year 2018, got %v", offer.ProductionYear)
	}
	if offer.MileageKM == nil || *offer.MileageKM != 87500 {
		t.Errorf("Expected mileage 87500, got %v", offer.MileageKM)
	}
	if offer.PriceGross == nil || *offer.PriceGross != 89900 {
		t.Errorf("Expected price 89900, got %v", offer.PriceGross)
	}
	if offer.OldPrice != nil || offer.Benefit != nil {
		t.Errorf("Expected no old price and no benefit, got %v %v", offer.OldPrice, offer.Benefit)
	}
	if offer.ContactPhone != "33 123 45 67" {
		t.Errorf("Expected phone 33 123 45 67, got %q", offer.ContactPhone)
	}
	if offer.DealerName != "Autopunkt Kraków" {
		t.Errorf("Expected dealer name, got %q", offer.DealerName)
	}
	if offer.DealerAddressLine1 != "ul. Zakopiańska 1" || offer.DealerAddressLine2 != "30-418 Kraków" || offer.DealerAddressLine3 != "" {
		t.Errorf("Unexpected address %q / %q / %q", offer.DealerAddressLine1, offer.DealerAddressLine2, offer.DealerAddressLine3)
	}
	if diff := cmp.Diff([]string{"Bezwypadkowy", "Gwarantowany przebieg"}, offer.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	wantImages := []string{"https://cdn.autopunkt.pl/cars/1/a.jpg", server.URL + "/cars/1/b.jpg"}
	if diff := cmp.Diff(wantImages, offer.Images); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}
	for _, c := range models.EquipmentCategories {
		if offer.Equipment[c] == nil {
			t.Errorf("Expected category %s to be present", c)
		}
	}
}

func TestAdapter_ParseEmptyPage(t *testing.T) {
	server, a := serve(t, `<html><body></body></html>`)

	_, err := a.Parse(context.Background(), models.ListingRef{ListingID: "1", URL: server.URL + "/samochod/x/id/1"})
	if !errors.Is(err, engine.ErrStructure) {
		t.Fatalf("Expected STRUCTURE error, got %v", err)
	}
	if engine.Detail(err, engine.DetailListingID) != "1" {
		t.Errorf("Expected listing id detail, got %q", engine.Detail(err, engine.DetailListingID))
	}
}

type fakeBrowser struct {
	links    []string
	visited  string
	closed   bool
	attempts int
}

func (b *fakeBrowser) Navigate(url string) error {
	b.visited = url
	return nil
}

func (b *fakeBrowser) Attributes(string, string) ([]string, error) { return b.links, nil }
func (b *fakeBrowser) ClickByLabel([]string) (string, error)       { return "", nil }
func (b *fakeBrowser) HTML() (string, error)                       { return "", nil }

func (b *fakeBrowser) ScrollToBottom() error {
	b.attempts++
	return nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

type fakeOpener struct{ page *fakeBrowser }

func (o fakeOpener) Open(context.Context) (dynamic.Page, error) { return o.page, nil }

func TestAdapter_Enumerate(t *testing.T) {
	browser := &fakeBrowser{links: []string{
		"/samochod/krakow/suv/kia/sportage/id/1001",
		"https://autopunkt.pl/samochod/katowice/kombi/opel/astra/id/1002#galeria",
		"/samochod/promocje",
		"/samochod/krakow/suv/kia/sportage/id/1001/",
	}}
	a := New(nil, fakeOpener{page: browser}, Config{Pause: time.Millisecond})

	refs, err := a.Enumerate(context.Background(), models.EnumerateOptions{})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	want := []models.ListingRef{
		{Source: models.SourceAutopunkt, ListingID: "1001", URL: "https://autopunkt.pl/samochod/krakow/suv/kia/sportage/id/1001"},
		{Source: models.SourceAutopunkt, ListingID: "1002", URL: "https://autopunkt.pl/samochod/katowice/kombi/opel/astra/id/1002"},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}
	if browser.visited != "https://autopunkt.pl/znajdz-auto" {
		t.Errorf("Expected search page to be opened, got %q", browser.visited)
	}
	if !browser.closed {
		t.Error("Expected browser to be closed")
	}
}

func TestAdapter_EnumerateWithoutBrowser(t *testing.T) {
	_, err := New(nil, nil, Config{}).Enumerate(context.Background(), models.EnumerateOptions{})
	if !errors.Is(err, engine.ErrConfig) {
		t.Fatalf("Expected CONFIG error, got %v", err)
	}
}

func TestAdapter_RefFromURL(t *testing.T) {
	a := New(nil, nil, Config{})

	ref, err := a.RefFromURL("https://autopunkt.pl/samochod/bielsko_biala/kombi/opel/insignia/id/109920/#zdjecia")
	if err != nil {
		t.Fatalf("RefFromURL failed: %v", err)
	}
	if ref.ListingID != "109920" || ref.URL != "https://autopunkt.pl/samochod/bielsko_biala/kombi/opel/insignia/id/109920" {
		t.Errorf("Unexpected ref %+v", ref)
	}

	for _, bad := range []string{"https://findcar.pl/samochod/1", "https://autopunkt.pl/znajdz-auto"} {
		if _, err := a.RefFromURL(bad); !errors.Is(err, engine.ErrConfig) {
			t.Errorf("Expected CONFIG error for %q, got %v", bad, err)
		}
	}
}
