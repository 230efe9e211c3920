package models

import "github.com/shopspring/decimal"

// Match is one FIFO pairing slice: a portion of a buy lot consumed by a
// portion of a sell. Append-only; never mutated after the matcher emits it.
type Match struct {
	Symbol   string          `json:"symbol"`
	ISIN     string          `json:"isin,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`

	BuyDate           Date            `json:"buy_date"`
	BuySettlementDate Date            `json:"buy_settlement_date"`
	BuyPrice          decimal.Decimal `json:"buy_price"`
	BuyCurrency       string          `json:"buy_currency"`
	BuyCommission     decimal.Decimal `json:"buy_commission"`
	BuyNBPRate        decimal.Decimal `json:"buy_nbp_rate"`
	BuyCostPLN        decimal.Decimal `json:"buy_cost_pln"`
	BuyBroker         string          `json:"buy_broker,omitempty"`

	SellDate           Date            `json:"sell_date"`
	SellSettlementDate Date            `json:"sell_settlement_date"`
	SellPrice          decimal.Decimal `json:"sell_price"`
	SellCurrency       string          `json:"sell_currency"`
	SellCommission     decimal.Decimal `json:"sell_commission"`
	SellNBPRate        decimal.Decimal `json:"sell_nbp_rate"`
	SellRevenuePLN     decimal.Decimal `json:"sell_revenue_pln"`
	SellBroker         string          `json:"sell_broker,omitempty"`

	ProfitPLN decimal.Decimal `json:"profit_pln"` // SellRevenuePLN - BuyCostPLN, exact to the cent

	// IsOrphan: no buy lot existed for this quantity; cost basis is zero.
	// IsShort: the sell predated the buy (short position closed by a cover).
	IsOrphan bool `json:"is_orphan"`
	IsShort  bool `json:"is_short"`
}

// OpenPosition is a buy lot with quantity still unconsumed when the
// transaction history ends.
type OpenPosition struct {
	Symbol   string          `json:"symbol"`
	ISIN     string          `json:"isin,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	BuyDate  Date            `json:"buy_date"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	Currency string          `json:"currency"`
	CostPLN  decimal.Decimal `json:"cost_pln"`
	NBPRate  decimal.Decimal `json:"nbp_rate"`
	Broker   string          `json:"broker,omitempty"`
}

// ShortPosition is sell quantity that exceeded every available lot and was
// still uncovered at end of history. It coexists with the corresponding
// orphan match: the orphan view carries the zero-cost tax treatment, this
// one the point-in-time short accounting.
type ShortPosition struct {
	Symbol     string          `json:"symbol"`
	ISIN       string          `json:"isin,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	SellDate   Date            `json:"sell_date"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	Currency   string          `json:"currency"`
	RevenuePLN decimal.Decimal `json:"revenue_pln"`
	NBPRate    decimal.Decimal `json:"nbp_rate"`
	Broker     string          `json:"broker,omitempty"`
}
