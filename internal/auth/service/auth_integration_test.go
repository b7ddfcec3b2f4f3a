package service_test

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wsms/warehouse-backend/internal/auth/jwt"
	"github.com/wsms/warehouse-backend/internal/auth/repository"
	"github.com/wsms/warehouse-backend/internal/auth/service"
	"github.com/wsms/warehouse-backend/pkg/config"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error

	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		panic("failed to create integration suite: " + err.Error())
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func newAuthServices(t *testing.T) (*service.AuthService, *service.UserService) {
	t.Helper()
	testutil.SkipIfShort(t)
	suite.ResetTables(t, context.Background())

	userRepo := repository.NewUserRepository(suite.DB)
	jwtManager := jwt.NewManager(&config.JWTConfig{
		Secret:        "integration-test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "wsms",
	})

	return service.NewAuthService(userRepo, jwtManager, suite.Logger),
		service.NewUserService(userRepo, suite.Logger)
}

func TestLogin(t *testing.T) {
	authSvc, userSvc := newAuthServices(t)
	ctx := context.Background()

	user, err := userSvc.Create(ctx, &service.CreateUserInput{
		Username:  "mreyes",
		Password:  "correct-horse-battery",
		FirstName: "Mia",
		LastName:  "Reyes",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.RoleSupervisor, user.Role, "role defaults to supervisor")
	assert.Equal(t, repository.StatusActive, user.Status)

	t.Run("valid credentials", func(t *testing.T) {
		tokens, loggedIn, err := authSvc.Login(ctx, "mreyes", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, user.ID, loggedIn.ID)

		claims, err := authSvc.ValidateAccess(tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "mreyes", claims.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := authSvc.Login(ctx, "mreyes", "wrong")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
	})

	t.Run("unknown username", func(t *testing.T) {
		_, _, err := authSvc.Login(ctx, "ghost", "whatever")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
	})

	t.Run("inactive account", func(t *testing.T) {
		require.NoError(t, userSvc.Deactivate(ctx, user.ID))

		_, _, err := authSvc.Login(ctx, "mreyes", "correct-horse-battery")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	})
}

func TestRefresh(t *testing.T) {
	authSvc, userSvc := newAuthServices(t)
	ctx := context.Background()

	_, err := userSvc.Create(ctx, &service.CreateUserInput{
		Username: "jcruz",
		Password: "another-long-password",
	})
	require.NoError(t, err)

	tokens, _, err := authSvc.Login(ctx, "jcruz", "another-long-password")
	require.NoError(t, err)

	fresh, err := authSvc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	_, err = authSvc.Refresh(ctx, "garbage-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestUserManagement(t *testing.T) {
	_, userSvc := newAuthServices(t)
	ctx := context.Background()

	t.Run("duplicate username rejected", func(t *testing.T) {
		_, err := userSvc.Create(ctx, &service.CreateUserInput{Username: "dupe", Password: "password123"})
		require.NoError(t, err)

		_, err = userSvc.Create(ctx, &service.CreateUserInput{Username: "dupe", Password: "password456"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConflict))
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := userSvc.Create(ctx, &service.CreateUserInput{Username: "shorty", Password: "short"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})

	t.Run("change password", func(t *testing.T) {
		user, err := userSvc.Create(ctx, &service.CreateUserInput{Username: "rotate", Password: "original-pass"})
		require.NoError(t, err)

		require.NoError(t, userSvc.ChangePassword(ctx, user.ID, "rotated-pass-99"))

		authSvc := service.NewAuthService(repository.NewUserRepository(suite.DB), jwt.NewManager(&config.JWTConfig{
			Secret: "integration-test-secret", AccessExpiry: time.Minute, RefreshExpiry: time.Hour, Issuer: "wsms",
		}), suite.Logger)

		_, _, err = authSvc.Login(ctx, "rotate", "original-pass")
		require.Error(t, err)

		_, _, err = authSvc.Login(ctx, "rotate", "rotated-pass-99")
		require.NoError(t, err)
	})
}
