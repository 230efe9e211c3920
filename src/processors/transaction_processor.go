package processors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/utils"
	"golang.org/x/sync/errgroup"
)

// rateEnrichmentParallelism bounds the fan-out of concurrent rate lookups.
const rateEnrichmentParallelism = 8

// TransactionProcessor enriches normalized transactions with resolved
// exchange rates and PLN amounts. A leg whose rate cannot be resolved
// fails closed: the transaction is dropped from the output and a warning
// is recorded, so no total ever contains an approximated conversion.
type TransactionProcessor struct {
	resolver *RateResolver
}

func NewTransactionProcessor(resolver *RateResolver) *TransactionProcessor {
	return &TransactionProcessor{resolver: resolver}
}

type rateKey struct {
	currency string
	date     models.Date
}

type resolvedRate struct {
	rate     decimal.Decimal
	rateDate models.Date
	err      error
}

// Process validates, rate-enriches and converts a transaction stream.
// Malformed transactions are a defensive assertion failure: the
// normalization boundary owns rejection, so one reaching this far aborts
// the whole batch instead of being coerced.
func (p *TransactionProcessor) Process(ctx context.Context, txs []models.Transaction) ([]models.Transaction, []string, error) {
	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			return nil, nil, err
		}
	}

	resolved, err := p.resolveLegs(ctx, txs)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	enriched := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		key := rateKey{normalizeCurrency(tx.Currency), tx.RateDate()}
		leg := resolved[key]
		if leg.err != nil {
			warnings = append(warnings, fmt.Sprintf(
				"Blad kursu NBP dla %s na dzien %s: %v. Transakcja pominieta w obliczeniach.",
				tx.Symbol, tx.RateDate(), leg.err))
			continue
		}

		tx.NBPRate = leg.rate
		tx.NBPRateDate = leg.rateDate
		tx.AmountPLN = utils.RoundMoney(tx.GrossAmount().Mul(leg.rate))

		commissionPLN, commErr := p.convertCommission(&tx, resolved)
		if commErr != nil {
			warnings = append(warnings, fmt.Sprintf(
				"Blad kursu NBP dla prowizji %s na dzien %s: %v. Transakcja pominieta w obliczeniach.",
				tx.Symbol, tx.RateDate(), commErr))
			continue
		}
		tx.CommissionPLN = commissionPLN

		enriched = append(enriched, tx)
	}

	if dropped := len(txs) - len(enriched); dropped > 0 {
		logger.L.Warn("Transactions excluded due to unresolved rates", "dropped", dropped, "total", len(txs))
	}
	return enriched, warnings, nil
}

// resolveLegs resolves every distinct (currency, reference date) pair in
// parallel. Distinct pairs are independent and the caches are idempotent,
// so the fan-out shares no mutable state beyond the result map.
func (p *TransactionProcessor) resolveLegs(ctx context.Context, txs []models.Transaction) (map[rateKey]resolvedRate, error) {
	keys := make(map[rateKey]struct{})
	for i := range txs {
		tx := &txs[i]
		keys[rateKey{normalizeCurrency(tx.Currency), tx.RateDate()}] = struct{}{}
		if cc := commissionCurrency(tx); cc != normalizeCurrency(tx.Currency) {
			keys[rateKey{cc, tx.RateDate()}] = struct{}{}
		}
	}

	resolved := make(map[rateKey]resolvedRate, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rateEnrichmentParallelism)
	for key := range keys {
		key := key
		g.Go(func() error {
			rate, rateDate, err := p.resolver.Resolve(gctx, key.currency, key.date)
			if err != nil && !errors.Is(err, ErrRateUnavailable) {
				return err
			}
			mu.Lock()
			resolved[key] = resolvedRate{rate: rate, rateDate: rateDate, err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (p *TransactionProcessor) convertCommission(tx *models.Transaction, resolved map[rateKey]resolvedRate) (decimal.Decimal, error) {
	if tx.Commission.IsZero() {
		return decimal.Zero, nil
	}
	cc := commissionCurrency(tx)
	if cc == "PLN" {
		return utils.RoundMoney(tx.Commission), nil
	}
	if cc == normalizeCurrency(tx.Currency) {
		return utils.RoundMoney(tx.Commission.Mul(tx.NBPRate)), nil
	}
	leg, ok := resolved[rateKey{cc, tx.RateDate()}]
	if !ok || leg.err != nil {
		if leg.err != nil {
			return decimal.Zero, leg.err
		}
		return decimal.Zero, fmt.Errorf("%w: commission currency %s", ErrRateUnavailable, cc)
	}
	return utils.RoundMoney(tx.Commission.Mul(leg.rate)), nil
}

func commissionCurrency(tx *models.Transaction) string {
	if tx.CommissionCurrency != "" {
		return normalizeCurrency(tx.CommissionCurrency)
	}
	return normalizeCurrency(tx.Currency)
}

// BuildManualTransactions converts manually-entered historical buys into
// normalized BUY transactions, indistinguishable from parsed ones once
// merged into the stream. Invalid entries are skipped with a warning
// rather than aborting the batch; the user typed these by hand.
func BuildManualTransactions(entries []models.ManualBuy) ([]models.Transaction, []string) {
	var txs []models.Transaction
	var warnings []string

	for _, entry := range entries {
		symbol := strings.ToUpper(strings.TrimSpace(entry.Symbol))
		if symbol == "" {
			warnings = append(warnings, "Pominieto reczne kupno bez symbolu")
			continue
		}
		if entry.TradeDate.IsZero() {
			warnings = append(warnings, fmt.Sprintf("Pominieto %s: brak daty", symbol))
			continue
		}
		if !entry.Quantity.IsPositive() || !entry.Price.IsPositive() {
			warnings = append(warnings, fmt.Sprintf("Pominieto %s: ilosc lub cena <= 0", symbol))
			continue
		}

		currency := strings.ToUpper(strings.TrimSpace(entry.Currency))
		if currency == "" {
			currency = "USD"
		}
		exchangeCountry := ""
		if currency == "USD" {
			exchangeCountry = "US"
		}

		rawID := fmt.Sprintf("MANUAL_%s_%s_%s_%s", symbol, entry.TradeDate, entry.Quantity, entry.Price)
		hash := sha256.Sum256([]byte(rawID))

		txs = append(txs, models.Transaction{
			ID:             hex.EncodeToString(hash[:])[:16],
			Broker:         models.BrokerManual,
			Symbol:         symbol,
			Description:    "Reczne kupno",
			TradeDate:      entry.TradeDate,
			SettlementDate: utils.SettlementDateForTrade(entry.TradeDate, exchangeCountry),
			Action:         models.ActionBuy,
			Quantity:       entry.Quantity,
			Price:          entry.Price,
			Currency:       currency,
			Commission:     entry.Commission,
		})
	}

	return txs, warnings
}
