// Package postgres provides the Postgres-backed ads store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"olx-rent-crawler/internal/listing"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// StoreConfig controls the Postgres connection pool backing the ads store.
type StoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists listing records keyed on the source-assigned ad id.
type Store struct {
	pool  pgxPool
	table string
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "ads"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithPool(pool pgxPool, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "ads"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Exists reports whether a listing with the given id is already persisted.
// A backend error propagates: the caller must not treat unknown state as
// "does not exist".
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("ad id is required")
	}
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE ad_id = $1 LIMIT 1`, s.table)
	var one int
	err := s.pool.QueryRow(ctx, query, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check ad exists: %w", err)
	}
	return true, nil
}

// Upsert inserts a listing record, treating an existing ad_id as a no-op.
func (s *Store) Upsert(ctx context.Context, rec *listing.Record) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	photos := rec.Photos
	if photos == nil {
		photos = []string{}
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	ad_id,
	ad_url,
	title,
	rooms,
	price,
	city,
	district,
	duration,
	floor_current,
	floor_total,
	area,
	condition,
	phone,
	author,
	description,
	furniture,
	facilities,
	toilet,
	converted_photos,
	posted_at,
	source,
	ad_type,
	house_type
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23
)
ON CONFLICT (ad_id) DO NOTHING`, s.table)

	args := []any{
		rec.ID,
		rec.URL,
		rec.Title,
		nullInt(rec.Rooms),
		rec.Price,
		rec.City,
		nullString(rec.District),
		rec.Duration,
		nullString(rec.FloorCurrent),
		nullString(rec.FloorTotal),
		rec.Area,
		rec.Condition,
		rec.Phone,
		rec.Author,
		rec.Description,
		rec.Furniture,
		rec.Facilities,
		rec.Toilet,
		photosJSON,
		nullTime(rec.PostedAt),
		rec.Source,
		rec.AdType,
		rec.HouseType,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert ad: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
