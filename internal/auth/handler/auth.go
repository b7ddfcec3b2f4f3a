package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/wsms/warehouse-backend/internal/auth/jwt"
	"github.com/wsms/warehouse-backend/internal/auth/service"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/httputil"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

const refreshCookieName = "wsms_refresh"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service *service.AuthService
	secure  bool
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler. secure controls the Secure flag
// on the refresh cookie and should be true outside development.
func NewAuthHandler(svc *service.AuthService, secure bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		secure:  secure,
		logger:  log,
	}
}

type loginResponse struct {
	Tokens *jwt.TokenPair `json:"tokens"`
	User   interface{}    `json:"user"`
}

// Login handles user login. The refresh token additionally travels in an
// HttpOnly cookie for browser clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	tokens, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	httputil.JSON(w, http.StatusOK, loginResponse{Tokens: tokens, User: user})
}

// Refresh exchanges a refresh token (body or cookie) for a fresh pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = httputil.DecodeJSON(r, &req)

	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		httputil.Error(w, errors.Unauthorized("missing refresh token"))
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	httputil.JSON(w, http.StatusOK, tokens)
}

// Logout clears the refresh cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})

	httputil.NoContent(w)
}

// Me returns the current user's information
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(claimsContextKey).(*jwt.Claims)
	if !ok {
		httputil.Error(w, errors.Unauthorized("not authenticated"))
		return
	}

	user, err := h.service.CurrentUser(r.Context(), claims)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

type contextKey string

const claimsContextKey contextKey = "jwt_claims"

// Authenticator validates the bearer token and loads the caller into the
// request context
func Authenticator(svc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Error(w, errors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httputil.Error(w, errors.Unauthorized("invalid authorization header"))
				return
			}

			claims, err := svc.ValidateAccess(parts[1])
			if err != nil {
				httputil.Error(w, err)
				return
			}

			ctx := httputil.WithUserContext(r.Context(), claims.UserID, claims.Username, claims.Role)
			ctx = context.WithValue(ctx, claimsContextKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not in the allowed set
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := httputil.GetUserRole(r.Context())
			if !allowed[role] {
				httputil.Error(w, errors.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
