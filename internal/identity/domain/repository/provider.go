package repository

import (
	"context"
	"errors"

	"filmlog-backend/internal/identity/domain/model"
)

// Coded failures the provider surfaces. Callers translate these into the
// application error taxonomy; anything else is treated as the provider being
// unavailable.
var (
	ErrEmailTaken       = errors.New("email is already registered")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrWeakPassword     = errors.New("password does not meet strength requirements")
	ErrIdentityNotFound = errors.New("identity not found")
)

// IdentityUpdate carries the mutable identity-record fields. Nil means "leave
// unchanged".
type IdentityUpdate struct {
	Email       *string
	DisplayName *string
}

// IdentityProvider defines the external identity service collaborator. The
// provider is outside the document store's transaction boundary, which is why
// account provisioning compensates instead of committing atomically.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password, displayName string) (*model.Identity, error)
	GetIdentity(ctx context.Context, id string) (*model.Identity, error)
	UpdateIdentity(ctx context.Context, id string, update IdentityUpdate) error
	DeleteIdentity(ctx context.Context, id string) error
}
