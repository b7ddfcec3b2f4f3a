package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/internal/warehouse/service"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/httputil"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// BatchHandler handles batch endpoints
type BatchHandler struct {
	service *service.BatchService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.BatchService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

type batchRequest struct {
	ID            string `json:"id" validate:"required,max=64"`
	BarcodeNo     string `json:"barcode_no" validate:"required,max=100"`
	ProductName   string `json:"product_name" validate:"required,max=255"`
	ProductDetail string `json:"product_detail"`
	Quantity      int    `json:"quantity" validate:"gte=0,lte=1000"`
	ExpiryDate    string `json:"expiry_date" validate:"required,datetime=2006-01-02"`
}

// List lists batches. Archived batches are included with ?include_archived=true.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	if product := r.URL.Query().Get("product"); product != "" {
		batches, err := h.service.ListByProduct(r.Context(), product, includeArchived)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, batches)
		return
	}

	batches, err := h.service.List(r.Context(), includeArchived)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// GetByBarcode looks up the earliest-expiry batch carrying a barcode
func (h *BatchHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	barcodeNo := chi.URLParam(r, "barcode")

	batch, err := h.service.GetByBarcode(r.Context(), barcodeNo)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Create takes in a new batch
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid expiry date"))
		return
	}

	batch := &repository.ProductBatch{
		ID:            req.ID,
		BarcodeNo:     req.BarcodeNo,
		ProductName:   req.ProductName,
		ProductDetail: req.ProductDetail,
		Quantity:      req.Quantity,
		ExpiryDate:    expiry,
	}

	if err := h.service.Create(r.Context(), batch); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Update updates an active batch
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req batchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	req.ID = id

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid expiry date"))
		return
	}

	batch := &repository.ProductBatch{
		ID:            id,
		BarcodeNo:     req.BarcodeNo,
		ProductName:   req.ProductName,
		ProductDetail: req.ProductDetail,
		Quantity:      req.Quantity,
		ExpiryDate:    expiry,
	}

	if err := h.service.Update(r.Context(), batch); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Archive archives a batch
func (h *BatchHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.service.Archive(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Reactivate reactivates an archived batch
func (h *BatchHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Quantity   int    `json:"quantity" validate:"required,gte=1,lte=1000"`
		ExpiryDate string `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid expiry date"))
		return
	}

	batch, err := h.service.Reactivate(r.Context(), id, req.Quantity, expiry)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}
