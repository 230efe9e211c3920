package services

import (
	"context"

	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/processors"
)

// ReportService is the engine's front door: a pure function from one
// transaction set plus configuration to a complete tax report.
type ReportService interface {
	GenerateReport(ctx context.Context, req *ReportRequest) (*models.TaxReport, error)
}

// PortfolioService computes the lifetime-portfolio block from the full,
// tax-year-unfiltered matching output.
type PortfolioService interface {
	Compute(matches []models.Match, dividends []models.DividendRecord, openPositions []models.OpenPosition) *models.PortfolioReport
}

// FifoMatcher is implemented by processors.FifoProcessor.
type FifoMatcher interface {
	Process(ctx context.Context, txs []models.Transaction) (*processors.FifoResult, error)
}
