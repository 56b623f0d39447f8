package usecase

import (
	"context"
	"errors"
	"testing"

	"filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokenService struct {
	claims *repository.Claims
	err    error
}

func (s *stubTokenService) GenerateToken(ctx context.Context, userID, email string) (string, error) {
	return "token", nil
}

func (s *stubTokenService) ValidateToken(ctx context.Context, token string) (*repository.Claims, error) {
	return s.claims, s.err
}

func TestAuthenticatePutsUIDInContext(t *testing.T) {
	guard := NewGuard(&stubTokenService{claims: &repository.Claims{UserID: "uid-1"}})

	ctx, uid, err := guard.Authenticate(context.Background(), "bearer-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	assert.Equal(t, "uid-1", ctx.Value(contextkeys.UserIDKey))
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	guard := NewGuard(&stubTokenService{err: errors.New("bad signature")})

	_, _, err := guard.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRequireOwner(t *testing.T) {
	guard := NewGuard(&stubTokenService{})

	assert.NoError(t, guard.RequireOwner("uid-1", "uid-1"))
	assert.ErrorIs(t, guard.RequireOwner("uid-1", "uid-2"), ErrNotOwner)
	assert.ErrorIs(t, guard.RequireOwner("", ""), ErrNotOwner)
}
