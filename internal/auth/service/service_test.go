package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/leadwayhq/leadway/internal/auth/domain"
	"github.com/leadwayhq/leadway/internal/auth/repository"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Account{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo, sessionRepo := repository.New(db)
	fc := clock.NewFakeClock(time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))

	return &Service{
		log:         zap.NewNop(),
		repo:        repo,
		sessionRepo: sessionRepo,
		genID:       node,
		clock:       fc,
		sessionTTL:  24 * time.Hour,
	}, fc
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Email:    "not-an-email",
		Password: "longenough",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Email:    "user@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	account, err := svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Email:    "User@Example.com",
		Password: "longenough",
	})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", account.Email)
	assert.Equal(t, "user", account.Name)

	_, err = svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Email:    "user@example.com",
		Password: "longenough",
	})
	assert.ErrorIs(t, err, domain.ErrAccountExists)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, fc := newTestService(t)

	_, err := svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Name:     "Jo",
		Email:    "jo@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "wrong password",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.RawToken)

	session, err := svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, session.AccountID)

	// Past the TTL the session is expired.
	fc.Advance(25 * time.Hour)
	_, err = svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Email:    "jo@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), result.RawToken))

	_, err = svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)
}

func TestAuthenticateUnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = svc.Authenticate(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)

	account, err := svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Email:    "jo@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(context.Background(), account.ID.String(), "evenlonger1"))

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "longenough",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "evenlonger1",
	})
	assert.NoError(t, err)
}
