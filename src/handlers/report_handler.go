package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/models"
	"github.com/username/taxpilot/src/services"
	"github.com/username/taxpilot/src/utils"
)

type ReportHandler struct {
	reportService   services.ReportService
	maxRequestBytes int64
}

func NewReportHandler(reportService services.ReportService, maxRequestBytes int64) *ReportHandler {
	return &ReportHandler{
		reportService:   reportService,
		maxRequestBytes: maxRequestBytes,
	}
}

// HandleGenerateReport accepts a normalized transaction feed plus report
// configuration and returns the full tax report. The engine holds no
// session state: everything needed travels in the request.
func (h *ReportHandler) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)

	var req services.ReportRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	report, err := h.reportService.GenerateReport(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTaxYear),
			errors.Is(err, services.ErrNegativePriorYearLoss),
			errors.Is(err, services.ErrNoTransactions),
			errors.Is(err, models.ErrMalformedTransaction):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.L.Error("Report generation failed", "taxYear", req.TaxYear, "error", err)
			utils.SendJSONError(w, "report generation failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Failed to encode report response", "reportID", report.ID, "error", err)
	}
}

// HandleHealth is the liveness probe.
func (h *ReportHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
