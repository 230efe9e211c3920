package models

import "github.com/shopspring/decimal"

// DividendRecord is the tax calculation for a single dividend event,
// paired with its withholding entry when one exists.
type DividendRecord struct {
	Symbol  string `json:"symbol"`
	ISIN    string `json:"isin,omitempty"`
	Country string `json:"country,omitempty"` // ISO alpha-2 from ISIN prefix; empty when underivable
	Broker  string `json:"broker,omitempty"`

	PayDate  Date   `json:"pay_date"`
	Currency string `json:"currency"`

	GrossAmount    decimal.Decimal `json:"gross_amount"`
	GrossAmountPLN decimal.Decimal `json:"gross_amount_pln"`
	NBPRate        decimal.Decimal `json:"nbp_rate"`

	WHTAmount    decimal.Decimal `json:"wht_amount"`
	WHTAmountPLN decimal.Decimal `json:"wht_amount_pln"`
	WHTNBPRate   decimal.Decimal `json:"wht_nbp_rate"`

	PolishTaxDue   decimal.Decimal `json:"polish_tax_due"`    // 19% of GrossAmountPLN
	TaxToPayPoland decimal.Decimal `json:"tax_to_pay_poland"` // max(0, PolishTaxDue - WHTAmountPLN)
}
