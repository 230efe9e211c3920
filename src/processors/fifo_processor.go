package processors

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/utils"
	"golang.org/x/sync/errgroup"
)

// FifoResult is the complete output of one matching run.
type FifoResult struct {
	Matches        []models.Match
	OpenPositions  []models.OpenPosition
	ShortPositions []models.ShortPosition
	Warnings       []string
}

// FifoProcessor reconciles sells against buy lots in strict FIFO order.
// Lots are pooled globally across brokers per symbol; broker identity
// rides along as metadata and never influences matching order. Sells
// with no available lot are queued as shorts and may be covered by later
// buys; whatever survives to end of history becomes an orphan match plus
// a short position.
type FifoProcessor struct{}

func NewFifoProcessor() *FifoProcessor {
	return &FifoProcessor{}
}

// Process re-sorts the stream by (trade date, ingestion order) and runs
// the per-symbol queues. Symbols are independent, so they are matched in
// parallel; the merged output is deterministic regardless of scheduling.
func (p *FifoProcessor) Process(ctx context.Context, txs []models.Transaction) (*FifoResult, error) {
	events := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		tx := txs[i]
		if tx.Action != models.ActionBuy && tx.Action != models.ActionSell {
			continue
		}
		// The enricher validates upstream, but the matcher must not trust
		// its callers: a malformed event would corrupt queue state.
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		events = append(events, tx)
	}

	// Stable sort keeps ingestion order as the tie-break for same-day events.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TradeDate.Before(events[j].TradeDate)
	})

	bySymbol := make(map[string][]models.Transaction)
	var symbols []string
	for _, tx := range events {
		if _, seen := bySymbol[tx.Symbol]; !seen {
			symbols = append(symbols, tx.Symbol)
		}
		bySymbol[tx.Symbol] = append(bySymbol[tx.Symbol], tx)
	}
	sort.Strings(symbols)

	perSymbol := make([]symbolResult, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perSymbol[i] = matchSymbol(symbol, bySymbol[symbol])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FifoResult{}
	for _, sr := range perSymbol {
		result.Matches = append(result.Matches, sr.matches...)
		result.OpenPositions = append(result.OpenPositions, sr.openPositions...)
		result.ShortPositions = append(result.ShortPositions, sr.shortPositions...)
		result.Warnings = append(result.Warnings, sr.warnings...)
	}
	return result, nil
}

type symbolResult struct {
	matches        []models.Match
	openPositions  []models.OpenPosition
	shortPositions []models.ShortPosition
	warnings       []string
}

// sideLedger tracks the unconsumed remainder of one transaction side: a
// buy lot's cost or a sell's revenue, plus its commission. Slices take a
// pro-rata share of the running remainder instead of rounding
// independently, so the side's total is conserved to the cent no matter
// how it is cut up.
type sideLedger struct {
	tx            *models.Transaction
	remainingQty  decimal.Decimal
	remainingPLN  decimal.Decimal
	remainingComm decimal.Decimal // original currency
}

func newBuyLedger(tx *models.Transaction) *sideLedger {
	return &sideLedger{
		tx:            tx,
		remainingQty:  tx.Quantity,
		remainingPLN:  tx.AmountPLN.Add(tx.CommissionPLN),
		remainingComm: tx.Commission,
	}
}

func newSellLedger(tx *models.Transaction) *sideLedger {
	return &sideLedger{
		tx:            tx,
		remainingQty:  tx.Quantity,
		remainingPLN:  tx.AmountPLN.Sub(tx.CommissionPLN),
		remainingComm: tx.Commission,
	}
}

// take consumes qty units and returns that slice's PLN amount and
// commission share. The final slice takes the remainder exactly.
func (l *sideLedger) take(qty decimal.Decimal) (pln, comm decimal.Decimal) {
	if qty.Equal(l.remainingQty) {
		pln, comm = l.remainingPLN, l.remainingComm
		l.remainingPLN = decimal.Zero
		l.remainingComm = decimal.Zero
	} else {
		pln = utils.RoundMoney(l.remainingPLN.Mul(qty).Div(l.remainingQty))
		comm = utils.RoundMoney(l.remainingComm.Mul(qty).Div(l.remainingQty))
		l.remainingPLN = l.remainingPLN.Sub(pln)
		l.remainingComm = l.remainingComm.Sub(comm)
	}
	l.remainingQty = l.remainingQty.Sub(qty)
	return pln, comm
}

func (l *sideLedger) exhausted() bool {
	return !l.remainingQty.IsPositive()
}

func matchSymbol(symbol string, txs []models.Transaction) symbolResult {
	var res symbolResult
	var lots []*sideLedger   // open buy lots, oldest first
	var shorts []*sideLedger // uncovered sells, oldest first

	for i := range txs {
		tx := &txs[i]
		switch tx.Action {
		case models.ActionBuy:
			ledger := newBuyLedger(tx)

			// Cover pending shorts before opening a new lot.
			for !ledger.exhausted() && len(shorts) > 0 {
				short := shorts[0]
				qty := decimal.Min(ledger.remainingQty, short.remainingQty)
				buyCost, buyComm := ledger.take(qty)
				sellRevenue, sellComm := short.take(qty)

				match := buildMatch(symbol, qty, tx, short.tx, buyCost, buyComm, sellRevenue, sellComm)
				match.IsShort = true
				res.matches = append(res.matches, match)

				if short.exhausted() {
					shorts = shorts[1:]
				}
			}

			if !ledger.exhausted() {
				lots = append(lots, ledger)
			}

		case models.ActionSell:
			ledger := newSellLedger(tx)

			for !ledger.exhausted() && len(lots) > 0 {
				lot := lots[0]
				qty := decimal.Min(ledger.remainingQty, lot.remainingQty)
				buyCost, buyComm := lot.take(qty)
				sellRevenue, sellComm := ledger.take(qty)

				res.matches = append(res.matches,
					buildMatch(symbol, qty, lot.tx, tx, buyCost, buyComm, sellRevenue, sellComm))

				if lot.exhausted() {
					lots = lots[1:]
				}
			}

			if !ledger.exhausted() {
				shorts = append(shorts, ledger)
			}
		}
	}

	// Shorts never covered are data gaps or true open shorts; Polish tax
	// law taxes the sell revenue even without proof of purchase. Both
	// views are emitted until the position is resolved by later data.
	for _, short := range shorts {
		res.matches = append(res.matches, buildOrphanMatch(symbol, short))
		res.shortPositions = append(res.shortPositions, models.ShortPosition{
			Symbol:     symbol,
			ISIN:       short.tx.ISIN,
			Quantity:   short.remainingQty,
			SellDate:   short.tx.TradeDate,
			SellPrice:  short.tx.Price,
			Currency:   short.tx.Currency,
			RevenuePLN: short.remainingPLN,
			NBPRate:    short.tx.NBPRate,
			Broker:     short.tx.Broker,
		})
		res.warnings = append(res.warnings, fmt.Sprintf(
			"BRAK KUPNA: Nie znaleziono zakupu dla %s (sprzedaz %s szt. dnia %s). "+
				"Uwzgledniono z kosztem 0 PLN - wgraj pliki z wczesniejszych lat lub dodaj brakujace kupno recznie.",
			symbol, short.remainingQty, short.tx.TradeDate))
	}

	for _, lot := range lots {
		res.openPositions = append(res.openPositions, models.OpenPosition{
			Symbol:   symbol,
			ISIN:     lot.tx.ISIN,
			Quantity: lot.remainingQty,
			BuyDate:  lot.tx.TradeDate,
			BuyPrice: lot.tx.Price,
			Currency: lot.tx.Currency,
			CostPLN:  lot.remainingPLN,
			NBPRate:  lot.tx.NBPRate,
			Broker:   lot.tx.Broker,
		})
	}

	return res
}

func buildMatch(symbol string, qty decimal.Decimal, buyTx, sellTx *models.Transaction,
	buyCost, buyComm, sellRevenue, sellComm decimal.Decimal) models.Match {

	isin := sellTx.ISIN
	if isin == "" {
		isin = buyTx.ISIN
	}

	return models.Match{
		Symbol:   symbol,
		ISIN:     isin,
		Quantity: qty,

		BuyDate:           buyTx.TradeDate,
		BuySettlementDate: buyTx.SettlementDate,
		BuyPrice:          buyTx.Price,
		BuyCurrency:       buyTx.Currency,
		BuyCommission:     buyComm,
		BuyNBPRate:        buyTx.NBPRate,
		BuyCostPLN:        buyCost,
		BuyBroker:         buyTx.Broker,

		SellDate:           sellTx.TradeDate,
		SellSettlementDate: sellTx.SettlementDate,
		SellPrice:          sellTx.Price,
		SellCurrency:       sellTx.Currency,
		SellCommission:     sellComm,
		SellNBPRate:        sellTx.NBPRate,
		SellRevenuePLN:     sellRevenue,
		SellBroker:         sellTx.Broker,

		ProfitPLN: sellRevenue.Sub(buyCost),
	}
}

// buildOrphanMatch emits the zero-cost tax view of an uncovered sell.
// The buy side carries the sell's dates and currency since no buy exists.
func buildOrphanMatch(symbol string, short *sideLedger) models.Match {
	tx := short.tx
	return models.Match{
		Symbol:   symbol,
		ISIN:     tx.ISIN,
		Quantity: short.remainingQty,

		BuyDate:           tx.TradeDate,
		BuySettlementDate: tx.SettlementDate,
		BuyPrice:          decimal.Zero,
		BuyCurrency:       tx.Currency,
		BuyCommission:     decimal.Zero,
		BuyNBPRate:        decimal.Zero,
		BuyCostPLN:        decimal.Zero,

		SellDate:           tx.TradeDate,
		SellSettlementDate: tx.SettlementDate,
		SellPrice:          tx.Price,
		SellCurrency:       tx.Currency,
		SellCommission:     short.remainingComm,
		SellNBPRate:        tx.NBPRate,
		SellRevenuePLN:     short.remainingPLN,
		SellBroker:         tx.Broker,

		ProfitPLN: short.remainingPLN,
		IsOrphan:  true,
	}
}
