package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/taxpilot/src/models"
)

func dividendTx(symbol, isin string, day models.Date, amount, rate string) models.Transaction {
	return models.Transaction{
		Broker:    "BROKER_A",
		Symbol:    symbol,
		ISIN:      isin,
		TradeDate: day,
		Action:    models.ActionDividend,
		Quantity:  dec("1"),
		Price:     dec(amount),
		Currency:  "USD",
		NBPRate:   dec(rate),
	}
}

func whtTx(symbol string, day models.Date, amount, rate string) models.Transaction {
	return models.Transaction{
		Broker:    "BROKER_A",
		Symbol:    symbol,
		TradeDate: day,
		Action:    models.ActionTaxWHT,
		Quantity:  dec("1"),
		Price:     dec(amount),
		Currency:  "USD",
		NBPRate:   dec(rate),
	}
}

func TestDividendCalculate_WithWithholding(t *testing.T) {
	payDate := models.NewDate(2023, time.March, 15)
	records := NewDividendProcessor().Calculate([]models.Transaction{
		dividendTx("AAPL", "US0378331005", payDate, "100", "4.00"),
		whtTx("AAPL", payDate, "-15", "4.00"),
	})

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "US", r.Country)
	assert.True(t, dec("400.00").Equal(r.GrossAmountPLN))
	assert.True(t, dec("15").Equal(r.WHTAmount), "withholding is stored as a positive amount")
	assert.True(t, dec("60.00").Equal(r.WHTAmountPLN))
	assert.True(t, dec("76.00").Equal(r.PolishTaxDue))
	assert.True(t, dec("16.00").Equal(r.TaxToPayPoland))
}

func TestDividendCalculate_NoWithholding(t *testing.T) {
	records := NewDividendProcessor().Calculate([]models.Transaction{
		dividendTx("VWCE.DE", "IE00BK5BQT80", models.NewDate(2023, time.April, 5), "50", "4.50"),
	})

	require.Len(t, records, 1)
	r := records[0]
	assert.True(t, r.WHTAmount.IsZero())
	assert.True(t, dec("225.00").Equal(r.GrossAmountPLN))
	assert.True(t, dec("42.75").Equal(r.PolishTaxDue))
	assert.True(t, dec("42.75").Equal(r.TaxToPayPoland))
}

func TestDividendCalculate_WithholdingPairing(t *testing.T) {
	payDate := models.NewDate(2023, time.June, 1)

	tests := []struct {
		name    string
		whtDate models.Date
		paired  bool
	}{
		{"same day", payDate, true},
		{"three days later", payDate.AddDays(3), true},
		{"five days earlier", payDate.AddDays(-5), true},
		{"six days later is out of window", payDate.AddDays(6), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := NewDividendProcessor().Calculate([]models.Transaction{
				dividendTx("KO", "US1912161007", payDate, "100", "4.00"),
				whtTx("KO", tt.whtDate, "-15", "4.00"),
			})

			require.Len(t, records, 1)
			assert.Equal(t, tt.paired, !records[0].WHTAmountPLN.IsZero())
		})
	}
}

func TestDividendCalculate_ExactDateBeatsCloserSymbolMismatch(t *testing.T) {
	payDate := models.NewDate(2023, time.June, 1)
	records := NewDividendProcessor().Calculate([]models.Transaction{
		dividendTx("KO", "US1912161007", payDate, "100", "4.00"),
		whtTx("PEP", payDate, "-99", "4.00"), // other symbol, ignored
		whtTx("KO", payDate.AddDays(2), "-15", "4.00"),
	})

	require.Len(t, records, 1)
	assert.True(t, dec("60.00").Equal(records[0].WHTAmountPLN))
}

func TestDividendCalculate_ExcessWithholdingClampsToZero(t *testing.T) {
	// 30% treaty-less withholding exceeds the Polish 19%; nothing more is
	// due but nothing is refunded either.
	payDate := models.NewDate(2023, time.July, 10)
	records := NewDividendProcessor().Calculate([]models.Transaction{
		dividendTx("NOK", "FI0009000681", payDate, "100", "4.00"),
		whtTx("NOK", payDate, "-30", "4.00"),
	})

	require.Len(t, records, 1)
	r := records[0]
	assert.True(t, dec("120.00").Equal(r.WHTAmountPLN))
	assert.True(t, dec("76.00").Equal(r.PolishTaxDue))
	assert.True(t, r.TaxToPayPoland.IsZero())
}

func TestDividendCalculate_MissingISINLeavesCountryEmpty(t *testing.T) {
	records := NewDividendProcessor().Calculate([]models.Transaction{
		dividendTx("MYSTERY", "", models.NewDate(2023, time.August, 1), "10", "4.00"),
	})

	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Country)
}

func TestDividendCalculate_IgnoresTradeActions(t *testing.T) {
	buy := tradeTx(models.ActionBuy, "AAPL", models.NewDate(2023, time.January, 2), "10", "150", "6300.00")
	records := NewDividendProcessor().Calculate([]models.Transaction{buy})
	assert.Empty(t, records)
}

func TestDividendCalculate_PreservesInputOrder(t *testing.T) {
	d1 := dividendTx("AAPL", "US0378331005", models.NewDate(2023, time.February, 16), "24", "4.00")
	d2 := dividendTx("MSFT", "US5949181045", models.NewDate(2023, time.March, 9), "68", "4.00")

	records := NewDividendProcessor().Calculate([]models.Transaction{d1, d2})
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, "MSFT", records[1].Symbol)
}
