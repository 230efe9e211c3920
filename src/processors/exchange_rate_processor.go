package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/database"
	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/utils"
)

// ErrRateUnavailable means the backoff search exhausted its window without
// finding a published rate. The affected transaction fails closed: excluded
// from totals and surfaced as a warning, never approximated.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// RateFetcher fetches a mid-rate for a currency on one specific day.
// found=false means no table was published that day.
type RateFetcher interface {
	FetchRate(ctx context.Context, currency string, day models.Date) (decimal.Decimal, bool, error)
}

// RateResolver resolves the statutory exchange rate for a monetary leg:
// the NBP Table A mid-rate published on the last day with a table before
// the settlement date. Lookups go memo -> sqlite store -> fetcher; past
// rates are immutable, so both caches live for the process lifetime and
// concurrent writes are idempotent.
type RateResolver struct {
	memo         *cache.Cache
	fetcher      RateFetcher // nil in offline mode
	lookbackDays int
}

func NewRateResolver(fetcher RateFetcher, lookbackDays int) *RateResolver {
	return &RateResolver{
		memo:         cache.New(cache.NoExpiration, 0),
		fetcher:      fetcher,
		lookbackDays: lookbackDays,
	}
}

// Resolve returns the rate for (currency, settlementDate) at 4 decimal
// places together with the publication date actually used. The reference
// date must be a settlement date; resolution starts one calendar day
// before it and steps further back, one calendar day at a time, until a
// published rate is found or the lookback window is exhausted.
func (r *RateResolver) Resolve(ctx context.Context, currency string, settlementDate models.Date) (decimal.Decimal, models.Date, error) {
	currency = normalizeCurrency(currency)
	if currency == "PLN" {
		return decimal.NewFromInt(1), settlementDate, nil
	}
	if settlementDate.IsZero() {
		return decimal.Zero, models.Date{}, fmt.Errorf("%w: no settlement date for %s", ErrRateUnavailable, currency)
	}

	candidate := settlementDate.AddDays(-1)
	for attempt := 0; attempt < r.lookbackDays; attempt++ {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, models.Date{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}

		rate, found, err := r.lookupDay(ctx, currency, candidate)
		if err != nil {
			return decimal.Zero, models.Date{}, err
		}
		if found {
			return utils.RoundRate(rate), candidate, nil
		}
		candidate = candidate.AddDays(-1)
	}

	return decimal.Zero, models.Date{}, fmt.Errorf("%w: no published rate for %s within %d days before %s",
		ErrRateUnavailable, currency, r.lookbackDays, settlementDate)
}

func (r *RateResolver) lookupDay(ctx context.Context, currency string, day models.Date) (decimal.Decimal, bool, error) {
	key := currency + "|" + day.String()
	if cached, ok := r.memo.Get(key); ok {
		return cached.(decimal.Decimal), true, nil
	}

	rate, found, err := database.GetRate(currency, day)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("rate store lookup for %s on %s: %w", currency, day, err)
	}
	if found {
		r.memo.Set(key, rate, cache.NoExpiration)
		return rate, true, nil
	}

	if r.fetcher == nil {
		return decimal.Zero, false, nil
	}

	rate, found, err = r.fetcher.FetchRate(ctx, currency, day)
	if err != nil {
		// Network trouble is not "no rate published"; propagate so the
		// caller can fail this leg closed instead of walking further back.
		return decimal.Zero, false, fmt.Errorf("%w: fetch failed for %s on %s: %v", ErrRateUnavailable, currency, day, err)
	}
	if !found {
		return decimal.Zero, false, nil
	}

	if err := database.SaveRate(currency, day, rate); err != nil {
		logger.L.Warn("Failed to persist fetched rate", "currency", currency, "date", day.String(), "error", err)
	}
	r.memo.Set(key, rate, cache.NoExpiration)
	return rate, true, nil
}

func normalizeCurrency(currency string) string {
	out := make([]byte, len(currency))
	for i := 0; i < len(currency); i++ {
		c := currency[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// historicalRatesFile mirrors the NBP Table A JSON layout: a list of
// tables, each with an effective date and the rates published that day.
type historicalRatesFile []struct {
	EffectiveDate string `json:"effectiveDate"`
	Rates         []struct {
		Code string      `json:"code"`
		Mid  json.Number `json:"mid"`
	} `json:"rates"`
}

// LoadHistoricalRates seeds the sqlite rate store from a Table A JSON dump.
// Called once from main.go after config is loaded; optional when live
// fetching is enabled.
func LoadHistoricalRates(filePath string) error {
	logger.L.Info("Loading historical exchange rates", "path", filePath)
	file, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading historical exchange rate file '%s': %w", filePath, err)
	}

	var tables historicalRatesFile
	if err := json.Unmarshal(file, &tables); err != nil {
		return fmt.Errorf("error unmarshalling historical exchange rates from '%s': %w", filePath, err)
	}

	loaded := 0
	for _, table := range tables {
		day, err := models.ParseDate(table.EffectiveDate)
		if err != nil {
			logger.L.Warn("Skipping rate table with invalid date", "effectiveDate", table.EffectiveDate, "error", err)
			continue
		}
		for _, entry := range table.Rates {
			mid, err := decimal.NewFromString(entry.Mid.String())
			if err != nil {
				logger.L.Warn("Skipping invalid mid rate", "currency", entry.Code, "date", table.EffectiveDate, "value", entry.Mid)
				continue
			}
			if err := database.SaveRate(normalizeCurrency(entry.Code), day, mid); err != nil {
				return fmt.Errorf("persisting rate %s/%s: %w", entry.Code, table.EffectiveDate, err)
			}
			loaded++
		}
	}

	logger.L.Info("Historical exchange rates loaded successfully.", "path", filePath, "rateCount", loaded)
	return nil
}
