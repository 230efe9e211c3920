package services

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/utils"
)

// portfolioServiceImpl computes the lifetime-portfolio report from the
// complete (tax-year-unfiltered) matching output.
type portfolioServiceImpl struct{}

func NewPortfolioService() PortfolioService {
	return &portfolioServiceImpl{}
}

func (s *portfolioServiceImpl) Compute(
	matches []models.Match,
	dividends []models.DividendRecord,
	openPositions []models.OpenPosition,
) *models.PortfolioReport {
	return &models.PortfolioReport{
		YearSummaries:   buildYearSummaries(matches, dividends),
		SymbolSummaries: buildSymbolSummaries(matches, dividends, openPositions),
		Metrics:         buildMetrics(matches, dividends),
	}
}

func buildYearSummaries(matches []models.Match, dividends []models.DividendRecord) []models.YearSummary {
	type yearAgg struct {
		revenue, costs             decimal.Decimal
		divGross, divWHT, divToPay decimal.Decimal
		numTrades                  int
	}
	byYear := make(map[int]*yearAgg)
	get := func(year int) *yearAgg {
		if agg, ok := byYear[year]; ok {
			return agg
		}
		agg := &yearAgg{}
		byYear[year] = agg
		return agg
	}

	for _, m := range matches {
		agg := get(m.SellDate.Year())
		agg.revenue = agg.revenue.Add(m.SellRevenuePLN)
		agg.costs = agg.costs.Add(m.BuyCostPLN)
		agg.numTrades++
	}
	for _, d := range dividends {
		agg := get(d.PayDate.Year())
		agg.divGross = agg.divGross.Add(d.GrossAmountPLN)
		agg.divWHT = agg.divWHT.Add(d.WHTAmountPLN)
		agg.divToPay = agg.divToPay.Add(d.TaxToPayPoland)
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	summaries := make([]models.YearSummary, 0, len(years))
	for _, year := range years {
		agg := byYear[year]
		profit := agg.revenue.Sub(agg.costs)
		summaries = append(summaries, models.YearSummary{
			Year:                 year,
			RevenuePLN:           utils.RoundMoney(agg.revenue),
			CostsPLN:             utils.RoundMoney(agg.costs),
			ProfitPLN:            utils.RoundMoney(profit),
			Tax19PLN:             utils.ClampToZero(utils.RoundMoney(profit.Mul(taxRate))),
			DividendsGrossPLN:    utils.RoundMoney(agg.divGross),
			DividendsWHTPLN:      utils.RoundMoney(agg.divWHT),
			DividendsTaxToPayPLN: utils.RoundMoney(agg.divToPay),
			NumTrades:            agg.numTrades,
		})
	}
	return summaries
}

func buildSymbolSummaries(
	matches []models.Match,
	dividends []models.DividendRecord,
	openPositions []models.OpenPosition,
) []models.SymbolLifetimeSummary {
	type symbolAgg struct {
		boughtQty, soldQty, remainingQty decimal.Decimal
		matchedCostPLN, openCostPLN      decimal.Decimal
		sellRevenuePLN                   decimal.Decimal
		dividendsPLN                     decimal.Decimal
		weightedPriceSum, weightedQtySum decimal.Decimal
		currency                         string
		dates                            []models.Date
		tradesCount                      int
	}
	bySymbol := make(map[string]*symbolAgg)
	get := func(symbol string) *symbolAgg {
		if agg, ok := bySymbol[symbol]; ok {
			return agg
		}
		agg := &symbolAgg{}
		bySymbol[symbol] = agg
		return agg
	}

	for _, m := range matches {
		agg := get(m.Symbol)
		agg.soldQty = agg.soldQty.Add(m.Quantity)
		agg.boughtQty = agg.boughtQty.Add(m.Quantity)
		agg.matchedCostPLN = agg.matchedCostPLN.Add(m.BuyCostPLN)
		agg.sellRevenuePLN = agg.sellRevenuePLN.Add(m.SellRevenuePLN)
		agg.currency = m.BuyCurrency
		agg.dates = append(agg.dates, m.BuyDate, m.SellDate)
		agg.tradesCount++
		agg.weightedPriceSum = agg.weightedPriceSum.Add(m.BuyPrice.Mul(m.Quantity))
		agg.weightedQtySum = agg.weightedQtySum.Add(m.Quantity)
	}

	for _, op := range openPositions {
		agg := get(op.Symbol)
		agg.remainingQty = agg.remainingQty.Add(op.Quantity)
		agg.boughtQty = agg.boughtQty.Add(op.Quantity)
		agg.openCostPLN = agg.openCostPLN.Add(op.CostPLN)
		agg.currency = op.Currency
		agg.dates = append(agg.dates, op.BuyDate)
		agg.weightedPriceSum = agg.weightedPriceSum.Add(op.BuyPrice.Mul(op.Quantity))
		agg.weightedQtySum = agg.weightedQtySum.Add(op.Quantity)
	}

	for _, d := range dividends {
		agg := get(d.Symbol)
		agg.dividendsPLN = agg.dividendsPLN.Add(d.GrossAmountPLN)
		agg.dates = append(agg.dates, d.PayDate)
	}

	summaries := make([]models.SymbolLifetimeSummary, 0, len(bySymbol))
	for symbol, agg := range bySymbol {
		if len(agg.dates) == 0 {
			continue
		}
		sort.Slice(agg.dates, func(i, j int) bool { return agg.dates[i].Before(agg.dates[j]) })

		avgPrice := decimal.Zero
		if agg.weightedQtySum.IsPositive() {
			avgPrice = utils.RoundMoney(agg.weightedPriceSum.Div(agg.weightedQtySum))
		}
		currency := agg.currency
		if currency == "" {
			currency = "USD"
		}

		summaries = append(summaries, models.SymbolLifetimeSummary{
			Symbol:              symbol,
			TotalBoughtQty:      agg.boughtQty,
			TotalSoldQty:        agg.soldQty,
			RemainingQty:        agg.remainingQty,
			AvgBuyPrice:         avgPrice,
			Currency:            currency,
			TotalBuyCostPLN:     utils.RoundMoney(agg.matchedCostPLN.Add(agg.openCostPLN)),
			TotalSellRevenuePLN: utils.RoundMoney(agg.sellRevenuePLN),
			RealizedPnLPLN:      utils.RoundMoney(agg.sellRevenuePLN.Sub(agg.matchedCostPLN)),
			DividendsPLN:        utils.RoundMoney(agg.dividendsPLN),
			FirstTradeDate:      agg.dates[0],
			LastTradeDate:       agg.dates[len(agg.dates)-1],
			TradesCount:         agg.tradesCount,
		})
	}

	// Best performers first.
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].RealizedPnLPLN.Equal(summaries[j].RealizedPnLPLN) {
			return summaries[i].RealizedPnLPLN.GreaterThan(summaries[j].RealizedPnLPLN)
		}
		return summaries[i].Symbol < summaries[j].Symbol
	})
	return summaries
}

func buildMetrics(matches []models.Match, dividends []models.DividendRecord) models.PortfolioMetrics {
	invested := decimal.Zero
	revenue := decimal.Zero
	commissions := decimal.Zero
	winning, losing := 0, 0
	holdingDaysSum, holdingCount := 0, 0

	symbols := make(map[string]struct{})
	var allDates []models.Date

	for _, m := range matches {
		invested = invested.Add(m.BuyCostPLN)
		revenue = revenue.Add(m.SellRevenuePLN)
		commissions = commissions.Add(m.BuyCommission.Mul(m.BuyNBPRate)).Add(m.SellCommission.Mul(m.SellNBPRate))
		symbols[m.Symbol] = struct{}{}
		allDates = append(allDates, m.BuyDate, m.SellDate)

		switch m.ProfitPLN.Sign() {
		case 1:
			winning++
		case -1:
			losing++
		}

		if days := m.SellDate.DaysSince(m.BuyDate); days >= 0 {
			holdingDaysSum += days
			holdingCount++
		}
	}

	divGross := decimal.Zero
	whtPaid := decimal.Zero
	for _, d := range dividends {
		divGross = divGross.Add(d.GrossAmountPLN)
		whtPaid = whtPaid.Add(d.WHTAmountPLN)
		allDates = append(allDates, d.PayDate)
	}

	total := len(matches)
	profit := revenue.Sub(invested)

	winRate := decimal.Zero
	avgProfit := decimal.Zero
	if total > 0 {
		totalDec := decimal.NewFromInt(int64(total))
		winRate = utils.RoundMoney(decimal.NewFromInt(int64(winning)).Div(totalDec).Mul(decimal.NewFromInt(100)))
		avgProfit = utils.RoundMoney(profit.Div(totalDec))
	}

	avgHolding := decimal.Zero
	if holdingCount > 0 {
		avgHolding = decimal.NewFromInt(int64(holdingDaysSum)).Div(decimal.NewFromInt(int64(holdingCount))).Round(1)
	}

	var firstTrade, lastTrade models.Date
	accountAge := 0
	if len(allDates) > 0 {
		sort.Slice(allDates, func(i, j int) bool { return allDates[i].Before(allDates[j]) })
		firstTrade = allDates[0]
		lastTrade = allDates[len(allDates)-1]
		accountAge = models.Today().DaysSince(firstTrade)
	}

	return models.PortfolioMetrics{
		TotalInvestedPLN:       utils.RoundMoney(invested),
		TotalRevenuePLN:        utils.RoundMoney(revenue),
		TotalRealizedProfitPLN: utils.RoundMoney(profit),
		TotalCommissionsPLN:    utils.RoundMoney(commissions),
		TotalDividendsGrossPLN: utils.RoundMoney(divGross),
		TotalWHTPaidPLN:        utils.RoundMoney(whtPaid),
		TotalTrades:            total,
		WinningTrades:          winning,
		LosingTrades:           losing,
		BreakevenTrades:        total - winning - losing,
		WinRatePercent:         winRate,
		AvgProfitPerTradePLN:   avgProfit,
		AvgHoldingPeriodDays:   avgHolding,
		AccountAgeDays:         accountAge,
		FirstTradeDate:         firstTrade,
		LastTradeDate:          lastTrade,
		UniqueSymbolsTraded:    len(symbols),
	}
}
