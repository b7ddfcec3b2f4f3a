package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wsms/warehouse-backend/internal/auth/repository"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// UserService handles user management business logic
type UserService struct {
	userRepo *repository.UserRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, log *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   log,
	}
}

// CreateUserInput holds the fields for creating a user
type CreateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Birthdate *time.Time
	Contact   *string
	Role      string
}

// Create creates a new user with a bcrypt-hashed password
func (s *UserService) Create(ctx context.Context, input *CreateUserInput) (*repository.User, error) {
	if len(input.Password) < 8 {
		return nil, errors.BadRequest("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &repository.User{
		Username:     input.Username,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Birthdate:    input.Birthdate,
		Contact:      input.Contact,
		Role:         input.Role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user created")

	return user, nil
}

// Get gets a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*repository.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// List lists users
func (s *UserService) List(ctx context.Context) ([]*repository.User, error) {
	return s.userRepo.List(ctx)
}

// Update updates a user's profile fields
func (s *UserService) Update(ctx context.Context, user *repository.User) error {
	return s.userRepo.Update(ctx, user)
}

// ChangePassword replaces a user's password
func (s *UserService) ChangePassword(ctx context.Context, id, password string) error {
	if len(password) < 8 {
		return errors.BadRequest("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, id, string(hash))
}

// Deactivate sets a user's status to inactive. Accounts are never deleted,
// the paper trail keeps its author.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if err := s.userRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", id).Msg("user deactivated")
	return nil
}
