package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ActionType classifies a normalized transaction.
type ActionType string

const (
	ActionBuy      ActionType = "BUY"
	ActionSell     ActionType = "SELL"
	ActionDividend ActionType = "DIVIDEND"
	ActionTaxWHT   ActionType = "TAX_WHT" // withholding tax deducted at source
)

// Broker labels. BrokerManual marks manually-entered historical buys.
const (
	BrokerManual = "MANUAL"
)

var ErrMalformedTransaction = errors.New("malformed transaction")

// Transaction is the normalized record every broker file is reduced to
// before it reaches the engine. Parsing and classification happen upstream;
// the engine treats these as immutable facts.
type Transaction struct {
	ID          string `json:"id,omitempty"`
	Broker      string `json:"broker"`
	Symbol      string `json:"symbol"`
	ISIN        string `json:"isin,omitempty"`
	Description string `json:"description,omitempty"`

	TradeDate      Date `json:"trade_date"`
	SettlementDate Date `json:"settlement_date"`

	Action             ActionType      `json:"action"`
	Quantity           decimal.Decimal `json:"quantity"`
	Price              decimal.Decimal `json:"price"` // per unit, original currency
	Currency           string          `json:"currency"`
	Commission         decimal.Decimal `json:"commission"`
	CommissionCurrency string          `json:"commission_currency,omitempty"`

	// Filled by the enrichment stage, never by callers.
	NBPRate       decimal.Decimal `json:"nbp_rate,omitempty"`
	NBPRateDate   Date            `json:"nbp_rate_date,omitempty"`
	AmountPLN     decimal.Decimal `json:"amount_pln,omitempty"`
	CommissionPLN decimal.Decimal `json:"commission_pln,omitempty"`
}

// Validate enforces the normalization contract. The upstream parsers own
// rejection of bad rows; a malformed record reaching the engine is a defect,
// so callers treat any error here as fatal rather than coercing.
func (t *Transaction) Validate() error {
	switch t.Action {
	case ActionBuy, ActionSell, ActionDividend, ActionTaxWHT:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrMalformedTransaction, t.Action)
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: missing symbol", ErrMalformedTransaction)
	}
	if strings.TrimSpace(t.Currency) == "" {
		return fmt.Errorf("%w: missing currency for %s", ErrMalformedTransaction, t.Symbol)
	}
	if t.TradeDate.IsZero() {
		return fmt.Errorf("%w: missing trade date for %s", ErrMalformedTransaction, t.Symbol)
	}
	if t.Action == ActionBuy || t.Action == ActionSell {
		if !t.Quantity.IsPositive() {
			return fmt.Errorf("%w: non-positive quantity %s for %s on %s",
				ErrMalformedTransaction, t.Quantity, t.Symbol, t.TradeDate)
		}
		if t.Price.IsNegative() {
			return fmt.Errorf("%w: negative price %s for %s on %s",
				ErrMalformedTransaction, t.Price, t.Symbol, t.TradeDate)
		}
		if t.SettlementDate.IsZero() {
			return fmt.Errorf("%w: missing settlement date for %s on %s",
				ErrMalformedTransaction, t.Symbol, t.TradeDate)
		}
	}
	return nil
}

// RateDate is the reference date for exchange-rate resolution: the
// settlement date for trades, the pay date for dividends and withholding.
func (t *Transaction) RateDate() Date {
	if !t.SettlementDate.IsZero() {
		return t.SettlementDate
	}
	return t.TradeDate
}

// GrossAmount is quantity × unit price in the original currency.
func (t *Transaction) GrossAmount() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// ManualBuy is a historical purchase entered by hand to close FIFO gaps
// when broker files from earlier years are missing.
type ManualBuy struct {
	Symbol     string          `json:"symbol"`
	TradeDate  Date            `json:"trade_date"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Commission decimal.Decimal `json:"commission"`
}
