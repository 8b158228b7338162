package database

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olympe-app/portfolio-service/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewFromConn(conn), mock
}

func sampleObservation() *models.PriceObservation {
	return &models.PriceObservation{
		InstrumentID: "i-1",
		Price:        decimal.RequireFromString("101.5"),
		Currency:     "USD",
		Source:       "finnhub",
		FetchedAt:    time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC),
		Day:          "2025-06-01",
	}
}

func TestInsertPriceObservation(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO asset_prices").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := db.InsertPriceObservation(sampleObservation())
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPriceObservationSameDayDuplicateIsSkipped(t *testing.T) {
	db, mock := newMockDB(t)

	// ON CONFLICT DO NOTHING: zero rows affected, no error.
	mock.ExpectExec("INSERT INTO asset_prices").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := db.InsertPriceObservation(sampleObservation())
	require.NoError(t, err)
	assert.False(t, inserted, "same-day duplicate must be reported as not inserted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPriceBatchCountsOnlyNewRows(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO asset_prices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO asset_prices").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO asset_prices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := []*models.PriceObservation{
		sampleObservation(), sampleObservation(), sampleObservation(),
	}
	inserted, err := db.InsertPriceBatch(batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPriceBatchRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO asset_prices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO asset_prices").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := db.InsertPriceBatch([]*models.PriceObservation{
		sampleObservation(), sampleObservation(),
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetObservedDays(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"day"}).
		AddRow(time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC)).
		AddRow(time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery("SELECT day FROM asset_prices").
		WithArgs("i-1").
		WillReturnRows(rows)

	days, err := db.GetObservedDays("i-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"2025-05-30": true, "2025-05-31": true}, days)
}

func TestGetFirstPricesSince(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"instrument_id", "price"}).
		AddRow("i-1", "110").
		AddRow("i-2", "55.5")
	mock.ExpectQuery("SELECT DISTINCT ON \\(instrument_id\\)").
		WillReturnRows(rows)

	refs, err := db.GetFirstPricesSince([]string{"i-1", "i-2"}, time.Now())
	require.NoError(t, err)
	assert.True(t, refs["i-1"].Equal(decimal.RequireFromString("110")))
	assert.True(t, refs["i-2"].Equal(decimal.RequireFromString("55.5")))
}

func TestGetFirstPricesSinceEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)

	refs, err := db.GetFirstPricesSince(nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, refs)
}
