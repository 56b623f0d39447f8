package usecase

import (
	"context"
	"errors"

	"filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/shared/contextkeys"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrNotOwner     = errors.New("acting identity does not own the target resource")
)

// GuardInterface defines the authentication/authorization guard contract. API
// handlers run it before calling into the core, so every usecase below this
// layer receives an already trusted uid.
type GuardInterface interface {
	Authenticate(ctx context.Context, bearerToken string) (context.Context, string, error)
	RequireOwner(actingUID, ownerUID string) error
}

// Guard verifies bearer credentials and checks resource ownership.
type Guard struct {
	tokenSvc repository.TokenService
}

// NewGuard creates a new authentication guard
func NewGuard(tokenSvc repository.TokenService) *Guard {
	return &Guard{tokenSvc: tokenSvc}
}

// Authenticate validates a bearer token and returns a context carrying the
// trusted uid alongside the uid itself.
func (g *Guard) Authenticate(ctx context.Context, bearerToken string) (context.Context, string, error) {
	claims, err := g.tokenSvc.ValidateToken(ctx, bearerToken)
	if err != nil {
		return ctx, "", ErrTokenInvalid
	}

	ctx = context.WithValue(ctx, contextkeys.UserIDKey, claims.UserID)
	return ctx, claims.UserID, nil
}

// RequireOwner asserts that the acting identity owns the target resource.
func (g *Guard) RequireOwner(actingUID, ownerUID string) error {
	if actingUID == "" || actingUID != ownerUID {
		return ErrNotOwner
	}
	return nil
}

// Ensure Guard implements GuardInterface
var _ GuardInterface = (*Guard)(nil)
