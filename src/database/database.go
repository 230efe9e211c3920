package database

import (
	"database/sql"
	stdlog "log"

	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/models"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the sqlite database holding the durable NBP rate cache.
// Rates for past dates are immutable once published, so rows are only
// ever inserted, never invalidated.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS nbp_rates (
		currency TEXT NOT NULL,
		rate_date TEXT NOT NULL,
		mid_rate TEXT NOT NULL,
		PRIMARY KEY (currency, rate_date)
	);`

	if _, err := DB.Exec(createTableStatement); err != nil {
		stdlog.Fatalf("failed to create nbp_rates table: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Database initialized", "databasePath", databasePath)
	}
}

// GetRate looks up a cached mid-rate for (currency, date). The second
// return value reports whether a row exists.
func GetRate(currency string, day models.Date) (decimal.Decimal, bool, error) {
	var midRate string
	err := DB.QueryRow(
		"SELECT mid_rate FROM nbp_rates WHERE currency = ? AND rate_date = ?",
		currency, day.String(),
	).Scan(&midRate)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	rate, err := decimal.NewFromString(midRate)
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

// SaveRate persists a published mid-rate. Idempotent: re-saving the same
// (currency, date) pair overwrites with the identical value.
func SaveRate(currency string, day models.Date, midRate decimal.Decimal) error {
	_, err := DB.Exec(
		"INSERT OR REPLACE INTO nbp_rates (currency, rate_date, mid_rate) VALUES (?, ?, ?)",
		currency, day.String(), midRate.String(),
	)
	return err
}
