package handler

import (
	"net/http"

	"github.com/wsms/warehouse-backend/internal/warehouse/service"
	"github.com/wsms/warehouse-backend/pkg/httputil"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// ReportHandler handles stock report endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// StockSummary compares on-hand stock against distributed stock per product
func (h *ReportHandler) StockSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.StockSummary(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summaries)
}

// GroupedStock sums active stock per product
func (h *ReportHandler) GroupedStock(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.GroupedStock(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, totals)
}
