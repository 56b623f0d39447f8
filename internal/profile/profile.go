package profile

import (
	"fmt"

	identityrepo "filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/profile/adapter/persistence/mongodb"
	"filmlog-backend/internal/profile/domain/repository"
	"filmlog-backend/internal/profile/usecase"
	"filmlog-backend/internal/review"
	"filmlog-backend/internal/shared/eventbus"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

// Module bundles profile provisioning, editing, and propagation.
type Module struct {
	profiles     repository.ProfileRepository
	txRunner     repository.TxRunner
	provisioning usecase.ProvisioningUsecaseInterface
	propagator   *usecase.PropagationUsecase
	profileUC    usecase.ProfileUsecaseInterface
}

// NewModule wires the profile usecases. The review repositories are shared
// because propagation and stats reach into review and comment documents.
func NewModule(
	db *mongo.Database,
	provider identityrepo.IdentityProvider,
	reviewRepos *review.Repositories,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) (*Module, error) {
	profiles, err := mongodb.NewProfileRepository(db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile repository: %w", err)
	}
	txRunner, err := mongodb.NewStoreTxRunner(db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction runner: %w", err)
	}

	ledger := usecase.NewReservationLedger()
	propagator := usecase.NewPropagationUsecase(profiles, reviewRepos.Reviews,
		reviewRepos.Comments, reviewRepos.Batch, log)

	return &Module{
		profiles:     profiles,
		txRunner:     txRunner,
		provisioning: usecase.NewProvisioningUsecase(provider, txRunner, profiles, ledger, bus, log),
		propagator:   propagator,
		profileUC: usecase.NewProfileUsecase(profiles, txRunner, ledger, provider,
			propagator, reviewRepos.Reviews, reviewRepos.Likes, bus, log),
	}, nil
}

// Repo returns the profile repository, shared with the feed reader
func (m *Module) Repo() repository.ProfileRepository {
	return m.profiles
}

// Provisioning returns the account provisioning usecase
func (m *Module) Provisioning() usecase.ProvisioningUsecaseInterface {
	return m.provisioning
}

// Propagator returns the counter and denormalized-field propagator
func (m *Module) Propagator() *usecase.PropagationUsecase {
	return m.propagator
}

// Profiles returns the profile read/edit usecase
func (m *Module) Profiles() usecase.ProfileUsecaseInterface {
	return m.profileUC
}
