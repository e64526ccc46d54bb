package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"olx-rent-crawler/internal/listing"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithPool(mock, "ads")
	require.NoError(t, err)
	return store, mock
}

func testRecord() *listing.Record {
	rooms := 2
	return &listing.Record{
		ID:           "123456789",
		URL:          "https://www.olx.example/d/obyavlenie/123456789",
		Title:        "Сдам квартиру",
		Description:  "Светлая квартира",
		Price:        250000,
		City:         "Алматы",
		District:     "Бостандыкский",
		Rooms:        &rooms,
		FloorCurrent: "5",
		FloorTotal:   "9",
		Area:         56,
		Condition:    "хорошее",
		Furniture:    "мебель",
		Facilities:   "холодильник",
		Toilet:       "совмещенный санузел",
		Author:       listing.AuthorOwner,
		Phone:        "+77071234567",
		Photos:       []string{"https://img.olx.example/photo/1.webp"},
		PostedAt:     time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Duration:     "long_time",
		Source:       "parser_olx",
		AdType:       "rentOut",
		HouseType:    "apartment",
	}
}

func TestExists(t *testing.T) {
	t.Parallel()

	t.Run("row found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT 1 FROM ads WHERE ad_id").
			WithArgs("123456789").
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

		exists, err := store.Exists(context.Background(), "123456789")
		require.NoError(t, err)
		require.True(t, exists)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT 1 FROM ads WHERE ad_id").
			WithArgs("404").
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

		exists, err := store.Exists(context.Background(), "404")
		require.NoError(t, err)
		require.False(t, exists)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("backend error propagates", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT 1 FROM ads WHERE ad_id").
			WithArgs("123456789").
			WillReturnError(context.DeadlineExceeded)

		_, err := store.Exists(context.Background(), "123456789")
		require.Error(t, err)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		store, _ := newMockStore(t)
		_, err := store.Exists(context.Background(), "")
		require.Error(t, err)
	})
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	t.Run("inserts a full record", func(t *testing.T) {
		store, mock := newMockStore(t)
		rec := testRecord()

		mock.ExpectExec("INSERT INTO ads").
			WithArgs(
				rec.ID,
				rec.URL,
				rec.Title,
				2,
				rec.Price,
				rec.City,
				rec.District,
				rec.Duration,
				rec.FloorCurrent,
				rec.FloorTotal,
				rec.Area,
				rec.Condition,
				rec.Phone,
				rec.Author,
				rec.Description,
				rec.Furniture,
				rec.Facilities,
				rec.Toilet,
				[]byte(`["https://img.olx.example/photo/1.webp"]`),
				rec.PostedAt,
				rec.Source,
				rec.AdType,
				rec.HouseType,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Upsert(context.Background(), rec))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflicting id is a no-op, not an error", func(t *testing.T) {
		store, mock := newMockStore(t)
		rec := testRecord()

		mock.ExpectExec("INSERT INTO ads").
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		require.NoError(t, store.Upsert(context.Background(), rec))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent optional fields stored as null", func(t *testing.T) {
		store, mock := newMockStore(t)
		rec := testRecord()
		rec.Rooms = nil
		rec.District = ""
		rec.FloorCurrent = ""
		rec.FloorTotal = ""
		rec.PostedAt = time.Time{}
		rec.Photos = nil

		mock.ExpectExec("INSERT INTO ads").
			WithArgs(
				rec.ID,
				rec.URL,
				rec.Title,
				nil,
				rec.Price,
				rec.City,
				nil,
				rec.Duration,
				nil,
				nil,
				rec.Area,
				rec.Condition,
				rec.Phone,
				rec.Author,
				rec.Description,
				rec.Furniture,
				rec.Facilities,
				rec.Toilet,
				[]byte(`[]`),
				nil,
				rec.Source,
				rec.AdType,
				rec.HouseType,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Upsert(context.Background(), rec))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error propagates", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO ads").
			WillReturnError(context.DeadlineExceeded)

		require.Error(t, store.Upsert(context.Background(), testRecord()))
	})

	t.Run("nil record rejected", func(t *testing.T) {
		store, _ := newMockStore(t)
		require.Error(t, store.Upsert(context.Background(), nil))
	})
}

func TestNewStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	t.Run("nil pool rejected", func(t *testing.T) {
		_, err := NewStoreWithPool(nil, "ads")
		require.Error(t, err)
	})

	t.Run("invalid table name rejected", func(t *testing.T) {
		_, err := NewStoreWithPool(mock, "ads; DROP TABLE ads")
		require.Error(t, err)
	})

	t.Run("empty table defaults to ads", func(t *testing.T) {
		store, err := NewStoreWithPool(mock, "")
		require.NoError(t, err)
		require.Equal(t, "ads", store.table)
	})
}
