package models

import "github.com/shopspring/decimal"

// CapitalGainsSummary maps onto PIT-38 section C.
type CapitalGainsSummary struct {
	RevenuePLN decimal.Decimal `json:"revenue_pln"`
	CostsPLN   decimal.Decimal `json:"costs_pln"`
	ProfitPLN  decimal.Decimal `json:"profit_pln"`
	TaxDue     decimal.Decimal `json:"tax_due"` // whole PLN
	Matches    []Match         `json:"matches"`
}

// DividendSummary totals the tax-year dividend records.
type DividendSummary struct {
	TotalGrossPLN     decimal.Decimal  `json:"total_gross_pln"`
	TotalWHTPLN       decimal.Decimal  `json:"total_wht_pln"`
	TotalPolishTaxDue decimal.Decimal  `json:"total_polish_tax_due"`
	TotalToPayPLN     decimal.Decimal  `json:"total_to_pay_pln"`
	Items             []DividendRecord `json:"items"`
}

// CountryBreakdown is one PIT/ZG row: income attributed to a single country.
type CountryBreakdown struct {
	CountryCode       string          `json:"country_code"`
	CountryName       string          `json:"country_name"`
	CapitalGainsPLN   decimal.Decimal `json:"capital_gains_pln"`
	DividendIncomePLN decimal.Decimal `json:"dividend_income_pln"`
	TaxPaidAbroadPLN  decimal.Decimal `json:"tax_paid_abroad_pln"`
}

// TaxReport is the complete engine output for one tax year.
type TaxReport struct {
	ID          string `json:"id"`
	GeneratedAt Date   `json:"generated_at"`
	TaxYear     int    `json:"tax_year"`

	CapitalGains CapitalGainsSummary `json:"capital_gains"`
	Dividends    DividendSummary     `json:"dividends"`
	PitZG        []CountryBreakdown  `json:"pit_zg"`

	OpenPositions      []OpenPosition  `json:"open_positions"`
	OpenShortPositions []ShortPosition `json:"open_short_positions"`

	Warnings []string `json:"warnings"`

	Portfolio *PortfolioReport `json:"portfolio,omitempty"`
}

// YearSummary is one row of the lifetime year-by-year table.
type YearSummary struct {
	Year                 int             `json:"year"`
	RevenuePLN           decimal.Decimal `json:"revenue_pln"`
	CostsPLN             decimal.Decimal `json:"costs_pln"`
	ProfitPLN            decimal.Decimal `json:"profit_pln"`
	Tax19PLN             decimal.Decimal `json:"tax_19_pln"`
	DividendsGrossPLN    decimal.Decimal `json:"dividends_gross_pln"`
	DividendsWHTPLN      decimal.Decimal `json:"dividends_wht_pln"`
	DividendsTaxToPayPLN decimal.Decimal `json:"dividends_tax_to_pay_pln"`
	NumTrades            int             `json:"num_trades"`
}

// SymbolLifetimeSummary aggregates one symbol's full history across all
// contributing brokers.
type SymbolLifetimeSummary struct {
	Symbol              string          `json:"symbol"`
	TotalBoughtQty      decimal.Decimal `json:"total_bought_qty"`
	TotalSoldQty        decimal.Decimal `json:"total_sold_qty"`
	RemainingQty        decimal.Decimal `json:"remaining_qty"`
	AvgBuyPrice         decimal.Decimal `json:"avg_buy_price"`
	Currency            string          `json:"currency"`
	TotalBuyCostPLN     decimal.Decimal `json:"total_buy_cost_pln"`
	TotalSellRevenuePLN decimal.Decimal `json:"total_sell_revenue_pln"`
	RealizedPnLPLN      decimal.Decimal `json:"realized_pnl_pln"`
	DividendsPLN        decimal.Decimal `json:"dividends_pln"`
	FirstTradeDate      Date            `json:"first_trade_date"`
	LastTradeDate       Date            `json:"last_trade_date"`
	TradesCount         int             `json:"trades_count"`
}

// PortfolioMetrics are portfolio-wide aggregates over the whole history.
type PortfolioMetrics struct {
	TotalInvestedPLN       decimal.Decimal `json:"total_invested_pln"`
	TotalRevenuePLN        decimal.Decimal `json:"total_revenue_pln"`
	TotalRealizedProfitPLN decimal.Decimal `json:"total_realized_profit_pln"`
	TotalCommissionsPLN    decimal.Decimal `json:"total_commissions_pln"`
	TotalDividendsGrossPLN decimal.Decimal `json:"total_dividends_gross_pln"`
	TotalWHTPaidPLN        decimal.Decimal `json:"total_wht_paid_pln"`

	TotalTrades     int `json:"total_trades"`
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades"`

	WinRatePercent       decimal.Decimal `json:"win_rate_percent"`
	AvgProfitPerTradePLN decimal.Decimal `json:"avg_profit_per_trade_pln"`
	AvgHoldingPeriodDays decimal.Decimal `json:"avg_holding_period_days"`

	AccountAgeDays      int  `json:"account_age_days"`
	FirstTradeDate      Date `json:"first_trade_date"`
	LastTradeDate       Date `json:"last_trade_date"`
	UniqueSymbolsTraded int  `json:"unique_symbols_traded"`
}

// PortfolioReport is the optional lifetime-portfolio block of a TaxReport.
type PortfolioReport struct {
	YearSummaries   []YearSummary           `json:"year_summaries"`
	SymbolSummaries []SymbolLifetimeSummary `json:"symbol_summaries"`
	Metrics         PortfolioMetrics        `json:"metrics"`
}
