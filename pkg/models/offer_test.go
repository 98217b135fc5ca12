package models

import (
	"encoding/json"
	"testing"
)

func TestOfferFill_FirstPresentWins(t *testing.T) {
	primary := NewOffer(SourceAutopunkt)
	primary.Brand = "Opel"
	primary.MileageKM = Int(0)

	fallback := NewOffer(SourceAutopunkt)
	fallback.Brand = "Skoda"
	fallback.Model = "Astra"
	fallback.MileageKM = Int(1200)
	fallback.PriceGross = Int(99900)
	fallback.Equipment.Add(EquipmentSafety, "ABS")

	primary.Fill(fallback)

	if primary.Brand != "Opel" {
		t.Errorf("Expected brand Opel, got %s", primary.Brand)
	}
	if primary.Model != "Astra" {
		t.Errorf("Expected model Astra, got %s", primary.Model)
	}
	if primary.MileageKM == nil || *primary.MileageKM != 0 {
		t.Errorf("Expected present zero mileage to be kept, got %v", primary.MileageKM)
	}
	if primary.PriceGross == nil || *primary.PriceGross != 99900 {
		t.Errorf("Expected price 99900, got %v", primary.PriceGross)
	}
	if got := primary.Equipment[EquipmentSafety]; len(got) != 1 || got[0] != "ABS" {
		t.Errorf("Expected safety [ABS], got %v", got)
	}

	// the merged record must not alias the fallback's storage
	*fallback.PriceGross = 1
	if *primary.PriceGross != 99900 {
		t.Errorf("Expected merged price to be a copy, got %d", *primary.PriceGross)
	}
}

func TestEquipment_AlwaysHasFourCategories(t *testing.T) {
	offer := NewOffer(SourceVehis)

	data, err := json.Marshal(offer)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Equipment map[string][]string `json:"equipment"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(decoded.Equipment) != 4 {
		t.Fatalf("Expected 4 equipment categories, got %d", len(decoded.Equipment))
	}
	for _, c := range EquipmentCategories {
		items, ok := decoded.Equipment[string(c)]
		if !ok {
			t.Errorf("Expected category %s to be present", c)
		}
		if items == nil {
			t.Errorf("Expected category %s to be an empty list, got null", c)
		}
	}
}

func TestEquipmentAdd_Dedupes(t *testing.T) {
	eq := NewEquipment()
	eq.Add(EquipmentComfort, "Klimatyzacja")
	eq.Add(EquipmentComfort, "Klimatyzacja")
	eq.Add(EquipmentComfort, "")

	if eq.Count() != 1 {
		t.Errorf("Expected 1 label, got %d", eq.Count())
	}
}
