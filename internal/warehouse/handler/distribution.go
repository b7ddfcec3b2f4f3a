package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wsms/warehouse-backend/internal/warehouse/service"
	"github.com/wsms/warehouse-backend/pkg/httputil"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// DistributionHandler handles distribution record endpoints
type DistributionHandler struct {
	service *service.DistributionService
	logger  *logger.Logger
}

// NewDistributionHandler creates a new distribution handler
func NewDistributionHandler(svc *service.DistributionService, log *logger.Logger) *DistributionHandler {
	return &DistributionHandler{
		service: svc,
		logger:  log,
	}
}

// List lists distribution records. Retired records are included with
// ?include_retired=true.
func (h *DistributionHandler) List(w http.ResponseWriter, r *http.Request) {
	includeRetired := r.URL.Query().Get("include_retired") == "true"

	records, err := h.service.List(r.Context(), includeRetired)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, records)
}

// Get gets a distribution record by ID
func (h *DistributionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}

// Create fulfils a distribution request. The response carries a warning when
// the anchor batch ends up low on stock.
func (h *DistributionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchID  string `json:"batch_id" validate:"required,max=64"`
		Quantity int    `json:"quantity" validate:"required,gte=1"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	record, warning, err := h.service.Create(r.Context(), req.BatchID, req.Quantity)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithWarning(w, http.StatusCreated, record, warning)
}

// Update amends an active record's quantity
func (h *DistributionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Quantity int `json:"quantity" validate:"required,gte=1"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	record, err := h.service.Amend(r.Context(), id, req.Quantity)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}

// Retire flips an active record inactive without restoring stock
func (h *DistributionHandler) Retire(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.service.Retire(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}

// Delete removes a retired record. Deleting an active record is rejected.
func (h *DistributionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
