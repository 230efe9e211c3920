package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/utils"
)

var polishTaxRate = decimal.RequireFromString("0.19")

// dividendProcessorImpl implements the DividendCalculator interface.
type dividendProcessorImpl struct{}

// NewDividendProcessor creates a new instance of DividendCalculator.
func NewDividendProcessor() DividendCalculator {
	return &dividendProcessorImpl{}
}

// Calculate pairs DIVIDEND transactions with their withholding entries and
// computes the Polish tax position per dividend event. Input must already
// be rate-enriched; both legs convert with their own resolved rate.
func (p *dividendProcessorImpl) Calculate(transactions []models.Transaction) []models.DividendRecord {
	var dividends, whtEntries []models.Transaction
	for _, t := range transactions {
		switch t.Action {
		case models.ActionDividend:
			dividends = append(dividends, t)
		case models.ActionTaxWHT:
			whtEntries = append(whtEntries, t)
		}
	}

	records := make([]models.DividendRecord, 0, len(dividends))
	for _, div := range dividends {
		grossPLN := utils.RoundMoney(div.GrossAmount().Mul(div.NBPRate))

		whtAmount := decimal.Zero
		whtPLN := decimal.Zero
		whtRate := decimal.NewFromInt(1)
		if wht := findMatchingWHT(div, whtEntries); wht != nil {
			whtAmount = wht.GrossAmount().Abs()
			whtRate = wht.NBPRate
			whtPLN = utils.RoundMoney(whtAmount.Mul(whtRate))
		}

		polishTaxDue := utils.RoundMoney(grossPLN.Mul(polishTaxRate))
		toPay := utils.ClampToZero(polishTaxDue.Sub(whtPLN))

		records = append(records, models.DividendRecord{
			Symbol:         div.Symbol,
			ISIN:           div.ISIN,
			Country:        utils.CountryFromISIN(div.ISIN),
			Broker:         div.Broker,
			PayDate:        div.TradeDate,
			Currency:       div.Currency,
			GrossAmount:    div.GrossAmount(),
			GrossAmountPLN: grossPLN,
			NBPRate:        div.NBPRate,
			WHTAmount:      whtAmount,
			WHTAmountPLN:   whtPLN,
			WHTNBPRate:     whtRate,
			PolishTaxDue:   polishTaxDue,
			TaxToPayPoland: toPay,
		})
	}
	return records
}

// findMatchingWHT locates the withholding entry for a dividend: same
// symbol, same pay date, else the closest entry within a 5-day window
// (brokers book the tax line a few days after the distribution).
func findMatchingWHT(dividend models.Transaction, whtEntries []models.Transaction) *models.Transaction {
	var best *models.Transaction
	bestDistance := 0

	for i := range whtEntries {
		wht := &whtEntries[i]
		if wht.Symbol != dividend.Symbol {
			continue
		}
		if wht.TradeDate.Equal(dividend.TradeDate) {
			return wht
		}
		distance := wht.TradeDate.DaysSince(dividend.TradeDate)
		if distance < 0 {
			distance = -distance
		}
		if distance <= 5 && (best == nil || distance < bestDistance) {
			best = wht
			bestDistance = distance
		}
	}
	return best
}
