// Package store persists normalized listings and raw provider payloads to
// Postgres. Writes happen off the request path; the serving tier reads from
// the in-memory dataset, so a down database degrades to no archive rather
// than failed requests.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/canon"
)

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE TABLE IF NOT EXISTS properties (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            property_key    TEXT NOT NULL,
            source_id       TEXT,
            mls_number      TEXT,
            street          TEXT NOT NULL,
            city            TEXT NOT NULL,
            state           TEXT NOT NULL,
            zip             TEXT NOT NULL,
            status          TEXT,
            property_type   TEXT,
            list_price      NUMERIC,
            sold_price      NUMERIC,
            beds            NUMERIC,
            baths           NUMERIC,
            sqft            NUMERIC,
            days_on_market  INTEGER,
            lat             DOUBLE PRECISION,
            lng             DOUBLE PRECISION,
            photos          JSONB,
            property_url    TEXT,
            list_date       TEXT,
            created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
            last_seen_at    TIMESTAMPTZ
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_properties_property_key ON properties(property_key);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_zip ON properties(zip);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status);`,
		`CREATE TABLE IF NOT EXISTS provider_raw_snapshots (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            provider       TEXT NOT NULL,
            endpoint       TEXT NOT NULL,
            external_id    TEXT,
            payload        JSONB NOT NULL,
            fetched_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
            payload_sha256 TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_provider ON provider_raw_snapshots(provider, endpoint, fetched_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_external ON provider_raw_snapshots(provider, external_id);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// nullFloat maps the zero-means-absent convention into SQL NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if v == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

// UpsertProperties writes one normalized batch and a raw snapshot of the
// payload it came from, in a single transaction.
func (s *Store) UpsertProperties(ctx context.Context, provider, endpoint, zip string, props []harvest.Property, rawPayload []byte) error {
	if s == nil || s.DB == nil {
		return errors.New("nil db")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, p := range props {
		_, _, _, _, key := canon.Canonicalize(p.Street, p.City, p.State, p.ZipCode)
		if key == "|||" {
			key = "id|" + p.PropertyID
		}
		var photos []byte
		if photos, err = json.Marshal(p.Photos); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO properties
                (property_key, source_id, mls_number, street, city, state, zip,
                 status, property_type, list_price, sold_price, beds, baths, sqft,
                 days_on_market, lat, lng, photos, property_url, list_date, last_seen_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20, now())
            ON CONFLICT (property_key) DO UPDATE SET
                source_id=EXCLUDED.source_id, mls_number=EXCLUDED.mls_number,
                status=EXCLUDED.status, property_type=EXCLUDED.property_type,
                list_price=EXCLUDED.list_price, sold_price=EXCLUDED.sold_price,
                beds=EXCLUDED.beds, baths=EXCLUDED.baths, sqft=EXCLUDED.sqft,
                days_on_market=EXCLUDED.days_on_market, lat=EXCLUDED.lat, lng=EXCLUDED.lng,
                photos=EXCLUDED.photos, property_url=EXCLUDED.property_url,
                list_date=EXCLUDED.list_date, updated_at=now(), last_seen_at=now()`,
			key, nullString(p.PropertyID), nullString(p.MLSNumber),
			p.Street, p.City, p.State, p.ZipCode,
			nullString(p.Status), nullString(p.PropertyType),
			nullFloat(p.ListPrice), nullFloat(p.SoldPrice),
			nullFloat(p.Beds), nullFloat(p.Baths), nullFloat(p.Sqft),
			p.DaysOnMarket, nullFloat(p.Latitude), nullFloat(p.Longitude),
			string(photos), nullString(p.PropertyURL), nullString(p.ListDate),
		)
		if err != nil {
			return err
		}
	}

	if len(rawPayload) > 0 {
		sum := sha256.Sum256(rawPayload)
		_, err = tx.ExecContext(ctx, `
            INSERT INTO provider_raw_snapshots (provider, endpoint, external_id, payload, payload_sha256)
            VALUES ($1,$2,$3,$4,$5)`,
			provider, endpoint, zip, string(rawPayload), hex.EncodeToString(sum[:]),
		)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}
