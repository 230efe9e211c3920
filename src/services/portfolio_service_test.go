package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/taxpilot/src/models"
)

func winningMatch() models.Match {
	return models.Match{
		Symbol:         "AAPL",
		Quantity:       dec("5"),
		BuyDate:        models.NewDate(2022, time.February, 1),
		BuyPrice:       dec("40"),
		BuyCurrency:    "USD",
		BuyCommission:  dec("2"),
		BuyNBPRate:     dec("4.00"),
		BuyCostPLN:     dec("1000.00"),
		SellDate:       models.NewDate(2022, time.December, 1),
		SellCommission: dec("3"),
		SellNBPRate:    dec("4.00"),
		SellRevenuePLN: dec("1500.00"),
		ProfitPLN:      dec("500.00"),
	}
}

func losingMatch() models.Match {
	return models.Match{
		Symbol:         "MSFT",
		Quantity:       dec("4"),
		BuyDate:        models.NewDate(2023, time.January, 10),
		BuyPrice:       dec("62.50"),
		BuyCurrency:    "USD",
		BuyNBPRate:     dec("4.00"),
		BuyCostPLN:     dec("1000.00"),
		SellDate:       models.NewDate(2023, time.June, 1),
		SellNBPRate:    dec("4.00"),
		SellRevenuePLN: dec("800.00"),
		ProfitPLN:      dec("-200.00"),
	}
}

func aaplDividend() models.DividendRecord {
	return models.DividendRecord{
		Symbol:         "AAPL",
		Country:        "US",
		PayDate:        models.NewDate(2023, time.March, 15),
		GrossAmountPLN: dec("400.00"),
		WHTAmountPLN:   dec("60.00"),
		TaxToPayPoland: dec("16.00"),
	}
}

func TestPortfolioCompute_YearSummaries(t *testing.T) {
	report := NewPortfolioService().Compute(
		[]models.Match{winningMatch(), losingMatch()},
		[]models.DividendRecord{aaplDividend()},
		nil,
	)

	require.Len(t, report.YearSummaries, 2)

	y2022 := report.YearSummaries[0]
	assert.Equal(t, 2022, y2022.Year)
	assert.True(t, dec("1500.00").Equal(y2022.RevenuePLN))
	assert.True(t, dec("1000.00").Equal(y2022.CostsPLN))
	assert.True(t, dec("500.00").Equal(y2022.ProfitPLN))
	assert.True(t, dec("95.00").Equal(y2022.Tax19PLN))
	assert.Equal(t, 1, y2022.NumTrades)

	y2023 := report.YearSummaries[1]
	assert.Equal(t, 2023, y2023.Year)
	assert.True(t, dec("-200.00").Equal(y2023.ProfitPLN))
	assert.True(t, y2023.Tax19PLN.IsZero(), "loss years owe nothing")
	assert.True(t, dec("400.00").Equal(y2023.DividendsGrossPLN))
	assert.True(t, dec("60.00").Equal(y2023.DividendsWHTPLN))
	assert.True(t, dec("16.00").Equal(y2023.DividendsTaxToPayPLN))
}

func TestPortfolioCompute_SymbolSummaries(t *testing.T) {
	open := models.OpenPosition{
		Symbol:   "AAPL",
		Quantity: dec("5"),
		BuyDate:  models.NewDate(2023, time.February, 1),
		BuyPrice: dec("44"),
		Currency: "USD",
		CostPLN:  dec("1100.00"),
	}

	report := NewPortfolioService().Compute(
		[]models.Match{winningMatch(), losingMatch()},
		[]models.DividendRecord{aaplDividend()},
		[]models.OpenPosition{open},
	)

	require.Len(t, report.SymbolSummaries, 2)

	// Sorted best realized result first.
	aapl := report.SymbolSummaries[0]
	require.Equal(t, "AAPL", aapl.Symbol)
	assert.True(t, dec("10").Equal(aapl.TotalBoughtQty))
	assert.True(t, dec("5").Equal(aapl.TotalSoldQty))
	assert.True(t, dec("5").Equal(aapl.RemainingQty))
	assert.True(t, dec("2100.00").Equal(aapl.TotalBuyCostPLN), "matched and open cost together")
	assert.True(t, dec("500.00").Equal(aapl.RealizedPnLPLN), "open cost stays out of realized P&L")
	assert.True(t, dec("42").Equal(aapl.AvgBuyPrice))
	assert.True(t, dec("400.00").Equal(aapl.DividendsPLN))
	assert.True(t, aapl.FirstTradeDate.Equal(models.NewDate(2022, time.February, 1)))

	msft := report.SymbolSummaries[1]
	assert.Equal(t, "MSFT", msft.Symbol)
	assert.True(t, dec("-200.00").Equal(msft.RealizedPnLPLN))
	assert.True(t, msft.RemainingQty.IsZero())
}

func TestPortfolioCompute_Metrics(t *testing.T) {
	report := NewPortfolioService().Compute(
		[]models.Match{winningMatch(), losingMatch()},
		[]models.DividendRecord{aaplDividend()},
		nil,
	)

	m := report.Metrics
	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.Equal(t, 0, m.BreakevenTrades)
	assert.True(t, dec("50.00").Equal(m.WinRatePercent))

	assert.True(t, dec("2000.00").Equal(m.TotalInvestedPLN))
	assert.True(t, dec("2300.00").Equal(m.TotalRevenuePLN))
	assert.True(t, dec("300.00").Equal(m.TotalRealizedProfitPLN))
	assert.True(t, dec("150.00").Equal(m.AvgProfitPerTradePLN))

	// (2 + 3) USD of commissions on the AAPL trade at rate 4.00.
	assert.True(t, dec("20.00").Equal(m.TotalCommissionsPLN))

	assert.True(t, dec("400.00").Equal(m.TotalDividendsGrossPLN))
	assert.True(t, dec("60.00").Equal(m.TotalWHTPaidPLN))

	assert.Equal(t, 2, m.UniqueSymbolsTraded)
	assert.True(t, m.FirstTradeDate.Equal(models.NewDate(2022, time.February, 1)))
	assert.True(t, m.LastTradeDate.Equal(models.NewDate(2023, time.June, 1)))
	assert.Greater(t, m.AccountAgeDays, 0)

	// AAPL held 303 days, MSFT 142; the average rounds to one place.
	assert.True(t, dec("222.5").Equal(m.AvgHoldingPeriodDays), "avg holding %s", m.AvgHoldingPeriodDays)
}

func TestPortfolioCompute_Empty(t *testing.T) {
	report := NewPortfolioService().Compute(nil, nil, nil)

	assert.Empty(t, report.YearSummaries)
	assert.Empty(t, report.SymbolSummaries)
	assert.Equal(t, 0, report.Metrics.TotalTrades)
	assert.True(t, report.Metrics.WinRatePercent.IsZero())
	assert.Equal(t, 0, report.Metrics.AccountAgeDays)
}
