package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/kameel77/auto-scraper/internal/reqctx"
	"github.com/kameel77/auto-scraper/pkg/models"
)

func openTemp(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "vehicles.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return s
}

func offer(id string, price int, at time.Time) *models.Offer {
	o := models.NewOffer(models.SourceFindcar)
	o.ListingID = id
	o.URL = "https://findcar.pl/listings/" + id
	o.Brand = "Toyota"
	o.PriceGross = models.Int(price)
	o.MileageKM = models.Int(15000)
	o.ScrapedAt = at
	o.Equipment.Add(models.EquipmentSafety, "ABS")
	return o
}

func TestSQLStore_SaveAndHistory(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, price := range []int{120000, 115000, 110000} {
		if err := s.Save(ctx, offer("42", price, t0.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save #%d failed: %v", i, err)
		}
	}
	if err := s.Save(ctx, offer("43", 99000, t0)); err != nil {
		t.Fatal(err)
	}

	hist, err := s.History(ctx, models.SourceFindcar, "42")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(hist))
	}
	var prices []int
	for _, h := range hist {
		prices = append(prices, *h.PriceGross)
	}
	if diff := cmp.Diff([]int{120000, 115000, 110000}, prices); diff != "" {
		t.Errorf("Price history mismatch (-want +got):\n%s", diff)
	}
	if !hist[0].ScrapedAt.Equal(t0) {
		t.Errorf("Expected first snapshot at %v, got %v", t0, hist[0].ScrapedAt)
	}
	if hist[0].OldPrice != nil {
		t.Errorf("Expected absent old price, got %v", *hist[0].OldPrice)
	}

	var vehicles int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles").Scan(&vehicles); err != nil {
		t.Fatal(err)
	}
	if vehicles != 2 {
		t.Errorf("Expected 2 vehicle rows, got %d", vehicles)
	}
}

func TestSQLStore_UpsertKeepsKnownFields(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := offer("7", 50000, now)
	first.VIN = "WVWZZZ1JZXW000001"
	if err := s.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := offer("7", 49000, now.Add(time.Minute))
	second.Brand = ""
	if err := s.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	var vin, brand string
	err := s.db.QueryRowContext(ctx, "SELECT vin, brand FROM vehicles WHERE listing_id = ?", "7").Scan(&vin, &brand)
	if err != nil {
		t.Fatal(err)
	}
	if vin != first.VIN || brand != "Toyota" {
		t.Errorf("Expected VIN and brand kept, got %q / %q", vin, brand)
	}
}

func TestSQLStore_RecordsRunID(t *testing.T) {
	s := openTemp(t)
	ctx := reqctx.WithRun(context.Background(), "findcar")
	if err := s.Save(ctx, offer("42", 1000, time.Now())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(context.Background(), offer("42", 900, time.Now().Add(time.Minute))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	hist, err := s.History(context.Background(), models.SourceFindcar, "42")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	want := []string{reqctx.RunID(ctx), ""}
	got := []string{hist[0].RunID, hist[1].RunID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLStore_RequiresIdentity(t *testing.T) {
	s := openTemp(t)
	o := models.NewOffer(models.SourceVehis)
	if err := s.Save(context.Background(), o); err == nil {
		t.Error("Expected error for record without listing id")
	}
}

func TestRebind(t *testing.T) {
	got := postgres.rebind("SELECT ? WHERE a = ? AND b = ?")
	if got != "SELECT $1 WHERE a = $2 AND b = $3" {
		t.Errorf("Unexpected postgres query %q", got)
	}
	if q := sqlite.rebind("a = ?"); q != "a = ?" {
		t.Errorf("Expected sqlite query unchanged, got %q", q)
	}
}

func TestKafkaSink_Save(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got models.Offer
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.ListingID != "42" || got.Source != models.SourceFindcar {
			return fmt.Errorf("unexpected record %s/%s", got.Source, got.ListingID)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSinkWithProducer(producer, "vehicle-offers")
	ctx := context.Background()

	if err := sink.Save(ctx, offer("42", 1000, time.Now())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := sink.Save(ctx, offer("43", 1000, time.Now())); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("Expected ErrOutOfBrokers, got %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestKafkaSink_Message(t *testing.T) {
	sink := NewKafkaSinkWithProducer(nil, "vehicle-offers")
	msg, err := sink.message(offer("42", 1000, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	key, _ := msg.Key.Encode()
	if string(key) != "findcar.pl:42" {
		t.Errorf("Expected key findcar.pl:42, got %q", key)
	}
	if msg.Topic != "vehicle-offers" {
		t.Errorf("Expected topic vehicle-offers, got %q", msg.Topic)
	}
}

func TestNewKafkaSink_NoBrokers(t *testing.T) {
	if _, err := NewKafkaSink(nil, "t"); err == nil {
		t.Error("Expected error without brokers")
	}
}
