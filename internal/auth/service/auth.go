package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/wsms/warehouse-backend/internal/auth/jwt"
	"github.com/wsms/warehouse-backend/internal/auth/repository"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtManager *jwt.Manager
	logger     *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *repository.UserRepository,
	jwtManager *jwt.Manager,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		logger:     log,
	}
}

// Login validates credentials and issues a token pair. Failed lookups and
// wrong passwords return the same error so usernames cannot be probed.
func (s *AuthService) Login(ctx context.Context, username, password string) (*jwt.TokenPair, *repository.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, errors.InvalidCredentials()
	}

	if user.Status != repository.StatusActive {
		return nil, nil, errors.Unauthorized("account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn().Str("username", username).Msg("failed login attempt")
		return nil, nil, errors.InvalidCredentials()
	}

	tokens, err := s.jwtManager.GenerateTokenPair(&jwt.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.FullName(),
		Role:     user.Role,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user logged in")

	return tokens, user, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.TokenInvalid()
	}

	if user.Status != repository.StatusActive {
		return nil, errors.Unauthorized("account is inactive")
	}

	return s.jwtManager.GenerateTokenPair(&jwt.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.FullName(),
		Role:     user.Role,
	})
}

// ValidateAccess validates an access token and returns its claims
func (s *AuthService) ValidateAccess(tokenString string) (*jwt.Claims, error) {
	return s.jwtManager.ValidateAccessToken(tokenString)
}

// CurrentUser loads the user behind a set of claims
func (s *AuthService) CurrentUser(ctx context.Context, claims *jwt.Claims) (*repository.User, error) {
	return s.userRepo.GetByID(ctx, claims.UserID)
}
