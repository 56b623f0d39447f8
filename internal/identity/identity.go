package identity

import (
	"fmt"

	"filmlog-backend/internal/identity/adapter/persistence/mongodb"
	"filmlog-backend/internal/identity/adapter/security"
	"filmlog-backend/internal/identity/config"
	"filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/identity/usecase"

	"go.mongodb.org/mongo-driver/mongo"
)

// Module bundles the identity provider and the authentication guard.
type Module struct {
	provider repository.IdentityProvider
	tokenSvc repository.TokenService
	guard    usecase.GuardInterface
	config   *config.Config
}

// NewModule creates a new identity module instance
func NewModule(db *mongo.Database, cfg *config.Config) (*Module, error) {
	provider, err := mongodb.NewMongoIdentityProvider(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity provider: %w", err)
	}

	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	return &Module{
		provider: provider,
		tokenSvc: tokenSvc,
		guard:    usecase.NewGuard(tokenSvc),
		config:   cfg,
	}, nil
}

// Provider returns the identity provider collaborator
func (m *Module) Provider() repository.IdentityProvider {
	return m.provider
}

// TokenService returns the token service
func (m *Module) TokenService() repository.TokenService {
	return m.tokenSvc
}

// Guard returns the authentication/authorization guard
func (m *Module) Guard() usecase.GuardInterface {
	return m.guard
}
