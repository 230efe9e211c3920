package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/processors"
	"github.com/username/taxpilot/src/utils"
)

const (
	// Reports are cached by request content hash; identical uploads are
	// recomputed from cache for free.
	reportCacheKeyPrefix = "res_tax_report_"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	// Earliest supported tax year; records predate neither Polish capital
	// gains tax in its current form nor any broker file we accept.
	minTaxYear = 2000
)

var (
	ErrInvalidTaxYear        = errors.New("invalid tax year")
	ErrNegativePriorYearLoss = errors.New("prior-year loss cannot be negative")
	ErrNoTransactions        = errors.New("no transactions provided")
)

var (
	taxRate     = decimal.RequireFromString("0.19")
	lossHalving = decimal.RequireFromString("0.5")
)

// ReportRequest is the complete engine input: a normalized transaction
// feed, optional manual buys, the target tax year and an optional
// prior-year loss to deduct.
type ReportRequest struct {
	Transactions     []models.Transaction `json:"transactions"`
	ManualBuys       []models.ManualBuy   `json:"manual_buys,omitempty"`
	TaxYear          int                  `json:"tax_year"`
	PriorYearLoss    decimal.Decimal      `json:"prior_year_loss,omitempty"`
	IncludePortfolio bool                 `json:"include_portfolio,omitempty"`
}

type reportServiceImpl struct {
	enricher         *processors.TransactionProcessor
	fifo             FifoMatcher
	dividendCalc     processors.DividendCalculator
	portfolioService PortfolioService
	reportCache      *cache.Cache
}

func NewReportService(
	enricher *processors.TransactionProcessor,
	fifo FifoMatcher,
	dividendCalc processors.DividendCalculator,
	portfolioService PortfolioService,
	reportCache *cache.Cache,
) ReportService {
	return &reportServiceImpl{
		enricher:         enricher,
		fifo:             fifo,
		dividendCalc:     dividendCalc,
		portfolioService: portfolioService,
		reportCache:      reportCache,
	}
}

// GenerateReport runs the full pipeline: validate -> merge manual buys ->
// rate-enrich -> FIFO match -> tax-year aggregation -> PIT/ZG -> optional
// lifetime portfolio. Nothing is persisted; the engine is a pure function
// of its request, cached only by content hash.
func (s *reportServiceImpl) GenerateReport(ctx context.Context, req *ReportRequest) (*models.TaxReport, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	cacheKey, err := utils.HashJSON(req)
	if err == nil {
		if cached, found := s.reportCache.Get(reportCacheKeyPrefix + cacheKey); found {
			logger.L.Debug("Report cache hit", "key", cacheKey)
			return cached.(*models.TaxReport), nil
		}
	} else {
		logger.L.Warn("Failed to hash report request for caching", "error", err)
	}

	startTime := time.Now()
	logger.L.Info("Generating tax report",
		"taxYear", req.TaxYear,
		"transactions", len(req.Transactions),
		"manualBuys", len(req.ManualBuys))

	var warnings []string

	manualTxs, manualWarnings := processors.BuildManualTransactions(req.ManualBuys)
	warnings = append(warnings, manualWarnings...)

	// Manual buys lead the stream; the matcher's stable re-sort keeps them
	// ahead of parsed records on date ties.
	all := make([]models.Transaction, 0, len(manualTxs)+len(req.Transactions))
	all = append(all, manualTxs...)
	all = append(all, req.Transactions...)

	enriched, enrichWarnings, err := s.enricher.Process(ctx, all)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, enrichWarnings...)

	// Enrichment warnings mean legs were dropped over unresolved rates,
	// which can be transient (network, rate not yet published). Such a
	// report must not be cached: an identical retry after the rates
	// become available has to recompute.
	degraded := len(enrichWarnings) > 0

	fifoResult, err := s.fifo.Process(ctx, enriched)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, fifoResult.Warnings...)

	yearMatches := filterMatchesToYear(fifoResult.Matches, req.TaxYear)
	capitalGains, lossWarnings := buildCapitalGains(yearMatches, req.PriorYearLoss)
	warnings = append(warnings, lossWarnings...)

	var yearDivTxs, allDivTxs []models.Transaction
	for _, tx := range enriched {
		if tx.Action != models.ActionDividend && tx.Action != models.ActionTaxWHT {
			continue
		}
		allDivTxs = append(allDivTxs, tx)
		if tx.TradeDate.Year() == req.TaxYear {
			yearDivTxs = append(yearDivTxs, tx)
		}
	}
	yearDividends := s.dividendCalc.Calculate(yearDivTxs)

	report := &models.TaxReport{
		ID:                 uuid.NewString(),
		GeneratedAt:        models.Today(),
		TaxYear:            req.TaxYear,
		CapitalGains:       capitalGains,
		Dividends:          buildDividendSummary(yearDividends),
		PitZG:              buildCountryBreakdown(yearMatches, yearDividends),
		OpenPositions:      fifoResult.OpenPositions,
		OpenShortPositions: fifoResult.ShortPositions,
		Warnings:           warnings,
	}

	if req.IncludePortfolio {
		allDividends := s.dividendCalc.Calculate(allDivTxs)
		report.Portfolio = s.portfolioService.Compute(fifoResult.Matches, allDividends, fifoResult.OpenPositions)
	}

	if cacheKey != "" && !degraded {
		s.reportCache.Set(reportCacheKeyPrefix+cacheKey, report, DefaultCacheExpiration)
	}

	logger.L.Info("Tax report generated",
		"taxYear", req.TaxYear,
		"matches", len(report.CapitalGains.Matches),
		"dividends", len(report.Dividends.Items),
		"warnings", len(report.Warnings),
		"durationMs", time.Since(startTime).Milliseconds())
	return report, nil
}

// validateRequest enforces the configuration contract before any matching
// begins. These are fatal: a wrong tax year or negative loss poisons every
// figure downstream.
func (s *reportServiceImpl) validateRequest(req *ReportRequest) error {
	currentYear := time.Now().Year()
	if req.TaxYear < minTaxYear || req.TaxYear > currentYear {
		return fmt.Errorf("%w: %d (supported range %d-%d)", ErrInvalidTaxYear, req.TaxYear, minTaxYear, currentYear)
	}
	if req.PriorYearLoss.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativePriorYearLoss, req.PriorYearLoss)
	}
	if len(req.Transactions) == 0 && len(req.ManualBuys) == 0 {
		return ErrNoTransactions
	}
	return nil
}

// filterMatchesToYear keeps the matches whose tax event falls in the
// requested year: the sell settlement date for regular trades, the buy
// (cover) settlement date for closed shorts.
func filterMatchesToYear(matches []models.Match, taxYear int) []models.Match {
	var out []models.Match
	for _, m := range matches {
		eventYear := m.SellSettlementDate.Year()
		if m.IsShort {
			eventYear = m.BuySettlementDate.Year()
		}
		if eventYear == taxYear {
			out = append(out, m)
		}
	}
	return out
}

func buildCapitalGains(matches []models.Match, priorYearLoss decimal.Decimal) (models.CapitalGainsSummary, []string) {
	var warnings []string

	revenue := decimal.Zero
	costs := decimal.Zero
	for _, m := range matches {
		revenue = revenue.Add(m.SellRevenuePLN)
		costs = costs.Add(m.BuyCostPLN)
	}
	profit := revenue.Sub(costs)

	// Prior-year loss deduction: at most 50% of the supplied loss, and
	// never more than the profit itself (art. 9 ust. 3 updof).
	taxable := profit
	if priorYearLoss.IsPositive() && profit.IsPositive() {
		deduction := utils.MinDecimal(utils.RoundMoney(priorYearLoss.Mul(lossHalving)), profit)
		taxable = profit.Sub(deduction)
		warnings = append(warnings, fmt.Sprintf(
			"Odliczono strate z lat ubieglych: %s PLN (50%% z %s PLN)", deduction, priorYearLoss))
	}

	return models.CapitalGainsSummary{
		RevenuePLN: utils.RoundMoney(revenue),
		CostsPLN:   utils.RoundMoney(costs),
		ProfitPLN:  utils.RoundMoney(profit),
		TaxDue:     utils.RoundWholePLN(utils.ClampToZero(taxable).Mul(taxRate)),
		Matches:    matches,
	}, warnings
}

func buildDividendSummary(records []models.DividendRecord) models.DividendSummary {
	summary := models.DividendSummary{Items: records}
	for _, d := range records {
		summary.TotalGrossPLN = summary.TotalGrossPLN.Add(d.GrossAmountPLN)
		summary.TotalWHTPLN = summary.TotalWHTPLN.Add(d.WHTAmountPLN)
		summary.TotalPolishTaxDue = summary.TotalPolishTaxDue.Add(d.PolishTaxDue)
		summary.TotalToPayPLN = summary.TotalToPayPLN.Add(d.TaxToPayPoland)
	}
	return summary
}

// buildCountryBreakdown assembles the PIT/ZG rows: capital gains grouped
// by the security's country of income, dividend income and foreign tax
// grouped by ISIN country. Dividends without a derivable country stay out
// of the rows; their amounts still count in the aggregate summary.
func buildCountryBreakdown(matches []models.Match, dividends []models.DividendRecord) []models.CountryBreakdown {
	type countryAgg struct {
		gains    decimal.Decimal
		divGross decimal.Decimal
		whtPaid  decimal.Decimal
	}
	byCountry := make(map[string]*countryAgg)
	get := func(code string) *countryAgg {
		if agg, ok := byCountry[code]; ok {
			return agg
		}
		agg := &countryAgg{}
		byCountry[code] = agg
		return agg
	}

	for _, m := range matches {
		if m.ProfitPLN.IsZero() {
			continue
		}
		country := utils.CountryFromISIN(m.ISIN)
		if country == "" {
			country = utils.CountryFromSymbol(m.Symbol)
		}
		agg := get(country)
		agg.gains = agg.gains.Add(m.ProfitPLN)
	}

	for _, d := range dividends {
		if d.Country == "" {
			continue
		}
		agg := get(d.Country)
		agg.divGross = agg.divGross.Add(d.GrossAmountPLN)
		agg.whtPaid = agg.whtPaid.Add(d.WHTAmountPLN)
	}

	codes := make([]string, 0, len(byCountry))
	for code := range byCountry {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([]models.CountryBreakdown, 0, len(codes))
	for _, code := range codes {
		agg := byCountry[code]
		rows = append(rows, models.CountryBreakdown{
			CountryCode:       code,
			CountryName:       utils.CountryName(code),
			CapitalGainsPLN:   utils.RoundMoney(agg.gains),
			DividendIncomePLN: utils.RoundMoney(agg.divGross),
			TaxPaidAbroadPLN:  utils.RoundMoney(agg.whtPaid),
		})
	}
	return rows
}
