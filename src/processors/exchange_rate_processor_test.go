package processors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/taxpilot/src/database"
	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")

	dir, err := os.MkdirTemp("", "taxpilot-processors-test")
	if err != nil {
		os.Exit(1)
	}
	database.InitDB(filepath.Join(dir, "rates.db"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// stubFetcher serves rates from a fixed map and counts calls, so tests can
// observe which lookups reached the network layer.
type stubFetcher struct {
	rates map[string]decimal.Decimal // "CUR|YYYY-MM-DD"
	calls int
	err   error
}

func (f *stubFetcher) FetchRate(_ context.Context, currency string, day models.Date) (decimal.Decimal, bool, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, false, f.err
	}
	rate, ok := f.rates[currency+"|"+day.String()]
	return rate, ok, nil
}

func mustSaveRate(t *testing.T, currency string, day models.Date, rate string) {
	t.Helper()
	require.NoError(t, database.SaveRate(currency, day, dec(rate)))
}

func TestRateResolver_PLNIsAlwaysOne(t *testing.T) {
	resolver := NewRateResolver(nil, 10)

	rate, rateDate, err := resolver.Resolve(context.Background(), "PLN", models.NewDate(2023, time.June, 1))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(rate))
	assert.True(t, rateDate.Equal(models.NewDate(2023, time.June, 1)))
}

func TestRateResolver_UsesDayBeforeSettlement(t *testing.T) {
	mustSaveRate(t, "USD", models.NewDate(2023, time.May, 31), "4.1000")

	resolver := NewRateResolver(nil, 10)
	rate, rateDate, err := resolver.Resolve(context.Background(), "usd", models.NewDate(2023, time.June, 1))
	require.NoError(t, err)

	assert.True(t, dec("4.10").Equal(rate))
	assert.True(t, rateDate.Equal(models.NewDate(2023, time.May, 31)))
}

func TestRateResolver_StepsBackOverMissingDays(t *testing.T) {
	// Settlement Monday: the candidate walks Sunday, Saturday, then hits
	// the Friday table.
	mustSaveRate(t, "GBP", models.NewDate(2023, time.June, 2), "5.2500")

	resolver := NewRateResolver(nil, 10)
	rate, rateDate, err := resolver.Resolve(context.Background(), "GBP", models.NewDate(2023, time.June, 5))
	require.NoError(t, err)

	assert.True(t, dec("5.25").Equal(rate))
	assert.True(t, rateDate.Equal(models.NewDate(2023, time.June, 2)))
}

func TestRateResolver_LookbackExhausted(t *testing.T) {
	resolver := NewRateResolver(nil, 5)

	_, _, err := resolver.Resolve(context.Background(), "CHF", models.NewDate(2023, time.June, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestRateResolver_MissingSettlementDate(t *testing.T) {
	resolver := NewRateResolver(nil, 10)

	_, _, err := resolver.Resolve(context.Background(), "USD", models.Date{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestRateResolver_FetchedRateIsMemoizedAndPersisted(t *testing.T) {
	day := models.NewDate(2023, time.July, 6)
	fetcher := &stubFetcher{rates: map[string]decimal.Decimal{
		"EUR|2023-07-06": dec("4.4500"),
	}}

	resolver := NewRateResolver(fetcher, 10)
	settlement := models.NewDate(2023, time.July, 7)

	rate, rateDate, err := resolver.Resolve(context.Background(), "EUR", settlement)
	require.NoError(t, err)
	assert.True(t, dec("4.45").Equal(rate))
	assert.True(t, rateDate.Equal(day))
	assert.Equal(t, 1, fetcher.calls)

	// Second resolution answers from the memo.
	_, _, err = resolver.Resolve(context.Background(), "EUR", settlement)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	// The fetched rate also landed in the durable store: a fresh offline
	// resolver finds it without any fetcher.
	offline := NewRateResolver(nil, 10)
	rate, _, err = offline.Resolve(context.Background(), "EUR", settlement)
	require.NoError(t, err)
	assert.True(t, dec("4.45").Equal(rate))
}

func TestRateResolver_FetcherErrorFailsClosed(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	resolver := NewRateResolver(fetcher, 10)

	_, _, err := resolver.Resolve(context.Background(), "SEK", models.NewDate(2023, time.June, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateUnavailable)
	// One failed fetch aborts the leg; the resolver must not keep walking
	// back and hammering the API.
	assert.Equal(t, 1, fetcher.calls)
}

func TestRateResolver_RoundsToFourPlaces(t *testing.T) {
	mustSaveRate(t, "JPY", models.NewDate(2023, time.June, 7), "0.029876543")

	resolver := NewRateResolver(nil, 10)
	rate, _, err := resolver.Resolve(context.Background(), "JPY", models.NewDate(2023, time.June, 8))
	require.NoError(t, err)
	assert.True(t, dec("0.0299").Equal(rate))
}

func TestLoadHistoricalRates(t *testing.T) {
	payload := `[
		{
			"effectiveDate": "2022-12-30",
			"rates": [
				{"code": "USD", "mid": 4.4018},
				{"code": "EUR", "mid": 4.6899}
			]
		},
		{
			"effectiveDate": "not-a-date",
			"rates": [{"code": "USD", "mid": 1.0}]
		}
	]`
	path := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	require.NoError(t, LoadHistoricalRates(path))

	rate, found, err := database.GetRate("USD", models.NewDate(2022, time.December, 30))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("4.4018").Equal(rate))

	rate, found, err = database.GetRate("EUR", models.NewDate(2022, time.December, 30))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("4.6899").Equal(rate))
}

func TestLoadHistoricalRates_MissingFile(t *testing.T) {
	err := LoadHistoricalRates(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
