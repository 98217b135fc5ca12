// Package store persists scraped records. SQLStore keeps one row per
// vehicle and appends a snapshot per scrape; KafkaSink publishes records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kameel77/auto-scraper/internal/reqctx"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DefaultPath is the SQLite database used when no DSN is given
const DefaultPath = "./vehicles.db"

type dialect struct {
	name      string
	driver    string
	serial    string
	timestamp string
	dollar    bool
}

var (
	postgres = dialect{name: "postgres", driver: "pgx", serial: "BIGSERIAL", timestamp: "TIMESTAMPTZ", dollar: true}
	sqlite   = dialect{name: "sqlite", driver: "sqlite", serial: "INTEGER", timestamp: "TIMESTAMP"}
)

// rebind rewrites ? placeholders to $n for PostgreSQL
func (d dialect) rebind(q string) string {
	if !d.dollar {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Snapshot is one observation of a vehicle's price and mileage
type Snapshot struct {
	RunID      string
	ScrapedAt  time.Time
	PriceGross *int
	OldPrice   *int
	MileageKM  *int
}

// SQLStore is a vehicle and snapshot store on PostgreSQL or SQLite
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to dsn. postgres:// and postgresql:// DSNs select
// PostgreSQL; anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	d := sqlite
	switch {
	case dsn == "":
		dsn = DefaultPath
	case strings.HasPrefix(dsn, "postgres://"):
		dsn = "postgresql://" + strings.TrimPrefix(dsn, "postgres://")
		d = postgres
	case strings.HasPrefix(dsn, "postgresql://"):
		d = postgres
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}
	if d == sqlite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", d.name, err)
	}

	log.Debug().Str("dialect", d.name).Msg("Database connected")
	return &SQLStore{db: db, dialect: d}, nil
}

// Dialect returns "postgres" or "sqlite"
func (s *SQLStore) Dialect() string { return s.dialect.name }

// Close releases the connection pool
func (s *SQLStore) Close() error { return s.db.Close() }

// Migrate creates the tables when they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	d := s.dialect
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
			id ` + d.serial + ` PRIMARY KEY,
			source TEXT NOT NULL,
			listing_id TEXT NOT NULL,
			url TEXT NOT NULL,
			vin TEXT,
			brand TEXT,
			model TEXT,
			version TEXT,
			production_year INTEGER,
			first_seen_at ` + d.timestamp + ` NOT NULL,
			last_seen_at ` + d.timestamp + ` NOT NULL,
			UNIQUE (source, listing_id)
		)`,
		`CREATE TABLE IF NOT EXISTS vehicle_snapshots (
			id ` + d.serial + ` PRIMARY KEY,
			vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
			run_id TEXT,
			scraped_at ` + d.timestamp + ` NOT NULL,
			price_gross INTEGER,
			old_price INTEGER,
			mileage_km INTEGER,
			equipment TEXT NOT NULL,
			raw_equipment TEXT NOT NULL,
			tags TEXT NOT NULL,
			pictures TEXT NOT NULL,
			record TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS vehicle_snapshots_vehicle_time ON vehicle_snapshots (vehicle_id, scraped_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save upserts the vehicle identified by (source, listing_id) and appends
// a snapshot of the record.
func (s *SQLStore) Save(ctx context.Context, o *models.Offer) error {
	if o.Source == "" || o.ListingID == "" {
		return fmt.Errorf("record without source or listing id cannot be stored")
	}
	scraped := o.ScrapedAt
	if scraped.IsZero() {
		scraped = time.Now().UTC()
	}

	equipment, err := json.Marshal(o.Equipment)
	if err != nil {
		return fmt.Errorf("failed to encode equipment: %w", err)
	}
	raw, _ := json.Marshal(nonNil(o.RawEquipment))
	tags, _ := json.Marshal(nonNil(o.Tags))
	pictures, _ := json.Marshal(nonNil(o.Images))
	record, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`
		INSERT INTO vehicles (source, listing_id, url, vin, brand, model, version, production_year, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, listing_id) DO UPDATE SET
			url = excluded.url,
			vin = COALESCE(excluded.vin, vehicles.vin),
			brand = COALESCE(excluded.brand, vehicles.brand),
			model = COALESCE(excluded.model, vehicles.model),
			version = COALESCE(excluded.version, vehicles.version),
			production_year = COALESCE(excluded.production_year, vehicles.production_year),
			last_seen_at = excluded.last_seen_at
		RETURNING id`),
		string(o.Source), o.ListingID, o.URL,
		nullString(o.VIN), nullString(o.Brand), nullString(o.Model), nullString(o.Version),
		nullInt(o.ProductionYear), scraped, scraped,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO vehicle_snapshots (vehicle_id, run_id, scraped_at, price_gross, old_price, mileage_km, equipment, raw_equipment, tags, pictures, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, nullString(reqctx.RunID(ctx)), scraped, nullInt(o.PriceGross), nullInt(o.OldPrice), nullInt(o.MileageKM),
		string(equipment), string(raw), string(tags), string(pictures), string(record),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().
		Str("source", string(o.Source)).
		Str("listing_id", o.ListingID).
		Int64("vehicle_id", id).
		Msg("Snapshot stored")
	return nil
}

// History returns the snapshots of one vehicle, oldest first
func (s *SQLStore) History(ctx context.Context, source models.Source, listingID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT s.run_id, s.scraped_at, s.price_gross, s.old_price, s.mileage_km
		FROM vehicle_snapshots s
		JOIN vehicles v ON v.id = s.vehicle_id
		WHERE v.source = ? AND v.listing_id = ?
		ORDER BY s.scraped_at, s.id`),
		string(source), listingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var runID sql.NullString
		var price, old, mileage sql.NullInt64
		if err := rows.Scan(&runID, &snap.ScrapedAt, &price, &old, &mileage); err != nil {
			return nil, err
		}
		snap.RunID = runID.String
		snap.PriceGross = intPtr(price)
		snap.OldPrice = intPtr(old)
		snap.MileageKM = intPtr(mileage)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
