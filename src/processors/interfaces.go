package processors

import "github.com/username/taxpilot/src/models"

// DividendCalculator computes per-dividend Polish tax records from
// rate-enriched transactions.
type DividendCalculator interface {
	Calculate(transactions []models.Transaction) []models.DividendRecord
}
