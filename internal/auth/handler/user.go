package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wsms/warehouse-backend/internal/auth/service"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/httputil"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: svc,
		logger:  log,
	}
}

// List lists users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, users)
}

// Get gets a user by ID
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Create creates a new user
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username" validate:"required,min=3,max=100"`
		Password  string `json:"password" validate:"required,min=8"`
		FirstName string `json:"first_name" validate:"max=100"`
		LastName  string `json:"last_name" validate:"max=100"`
		Birthdate string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
		Contact   string `json:"contact" validate:"max=100"`
		Role      string `json:"role" validate:"omitempty,oneof=Admin Supervisor"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	input := &service.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}
	if req.Birthdate != "" {
		birthdate, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid birthdate"))
			return
		}
		input.Birthdate = &birthdate
	}
	if req.Contact != "" {
		input.Contact = &req.Contact
	}

	user, err := h.service.Create(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, user)
}

// Update updates a user's profile
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		FirstName string `json:"first_name" validate:"max=100"`
		LastName  string `json:"last_name" validate:"max=100"`
		Birthdate string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
		Contact   string `json:"contact" validate:"max=100"`
		Role      string `json:"role" validate:"omitempty,oneof=Admin Supervisor"`
		Status    string `json:"status" validate:"omitempty,oneof=Active Inactive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if req.Birthdate != "" {
		birthdate, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid birthdate"))
			return
		}
		user.Birthdate = &birthdate
	}
	if req.Contact != "" {
		user.Contact = &req.Contact
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Status != "" {
		user.Status = req.Status
	}

	if err := h.service.Update(r.Context(), user); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// ChangePassword replaces a user's password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), id, req.Password); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Deactivate sets a user's status to inactive
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
