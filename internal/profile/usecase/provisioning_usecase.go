package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	identitymodel "filmlog-backend/internal/identity/domain/model"
	identityrepo "filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/profile/domain/model"
	"filmlog-backend/internal/profile/domain/repository"
	apperrors "filmlog-backend/internal/shared/errors"
	"filmlog-backend/internal/shared/eventbus"
	"filmlog-backend/internal/shared/logger"

	"github.com/google/uuid"
)

// Attempts at generating a non-colliding display name during social login
// before giving up.
const maxGeneratedNameAttempts = 3

// ProvisioningUsecaseInterface defines account provisioning operations
type ProvisioningUsecaseInterface interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*model.Profile, error)
	EnsureSocialAccount(ctx context.Context, uid, email string) (*model.Profile, bool, error)
}

// CreateAccountRequest carries the registration input
type CreateAccountRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// ProvisioningUsecase creates accounts spanning the identity provider and the
// document store. The provider sits outside the store's transaction boundary,
// so the store write failing after the identity was created is compensated by
// deleting the identity again.
type ProvisioningUsecase struct {
	provider identityrepo.IdentityProvider
	txRunner repository.TxRunner
	profiles repository.ProfileRepository
	ledger   *ReservationLedger
	bus      eventbus.EventBusInterface
	logger   logger.Logger
}

// NewProvisioningUsecase creates a new provisioning usecase
func NewProvisioningUsecase(
	provider identityrepo.IdentityProvider,
	txRunner repository.TxRunner,
	profiles repository.ProfileRepository,
	ledger *ReservationLedger,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *ProvisioningUsecase {
	return &ProvisioningUsecase{
		provider: provider,
		txRunner: txRunner,
		profiles: profiles,
		ledger:   ledger,
		bus:      bus,
		logger:   log.WithComponent("provisioning_usecase"),
	}
}

// CreateAccount registers a password account. The identity record is created
// first; the profile and its display-name reservation are then committed in
// one store transaction. If that transaction fails the identity is deleted so
// no orphaned identity survives.
func (uc *ProvisioningUsecase) CreateAccount(ctx context.Context, req CreateAccountRequest) (*model.Profile, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, apperrors.NewValidationError("display name is required")
	}

	identity, err := uc.provider.CreateIdentity(ctx, req.Email, req.Password, displayName)
	if err != nil {
		return nil, uc.mapProviderError(err)
	}

	now := time.Now()
	profile := &model.Profile{
		UID:           identity.ID,
		DisplayName:   displayName,
		Provider:      identitymodel.ProviderPassword,
		ActivityLevel: model.TierNovice,
		ReviewCount:   0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.writeReservedProfile(ctx, profile); err != nil {
		uc.compensate(ctx, identity.ID, err)
		if errors.Is(err, repository.ErrNameTaken) {
			return nil, apperrors.NewConflictError("display name is already in use").
				WithCode("NAME_TAKEN").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to persist profile").WithCause(err)
	}

	uc.logger.Infof("Account provisioned: uid=%s provider=%s", profile.UID, profile.Provider)
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeProfileCreated,
		eventbus.ChangedPaths{Paths: []string{"profiles/" + profile.UID}},
		"provisioning_usecase",
	))
	return profile, nil
}

// EnsureSocialAccount resolves the profile backing a social login, creating it
// on first login. Generated display names retry on collision a bounded number
// of times. Returns whether a new profile was created.
func (uc *ProvisioningUsecase) EnsureSocialAccount(ctx context.Context, uid, email string) (*model.Profile, bool, error) {
	existing, err := uc.profiles.Get(ctx, uid)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, false, apperrors.NewUnavailableError("failed to load profile").WithCause(err)
	}

	var profile *model.Profile
	for attempt := 0; attempt < maxGeneratedNameAttempts; attempt++ {
		now := time.Now()
		candidate := &model.Profile{
			UID:           uid,
			DisplayName:   generatedDisplayName(),
			Provider:      identitymodel.ProviderSocial,
			ActivityLevel: model.TierNovice,
			ReviewCount:   0,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = uc.writeReservedProfile(ctx, candidate)
		if err == nil {
			profile = candidate
			break
		}
		if errors.Is(err, repository.ErrNameTaken) {
			uc.logger.Debugf("Generated name %s collided, retrying", candidate.DisplayName)
			continue
		}
		return nil, false, apperrors.NewUnavailableError("failed to persist profile").WithCause(err)
	}
	if profile == nil {
		return nil, false, apperrors.NewConflictError("could not generate an unused display name").WithCause(err)
	}

	// The provider already holds the identity record for a social login; the
	// generated name is mirrored onto it best effort.
	name := profile.DisplayName
	if err := uc.provider.UpdateIdentity(ctx, uid, identityrepo.IdentityUpdate{DisplayName: &name}); err != nil {
		uc.logger.Warnf("Failed to mirror display name to identity provider for %s: %v", uid, err)
	}

	uc.logger.Infof("Social account provisioned: uid=%s name=%s", uid, profile.DisplayName)
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeProfileCreated,
		eventbus.ChangedPaths{Paths: []string{"profiles/" + uid}},
		"provisioning_usecase",
	))
	return profile, true, nil
}

// writeReservedProfile commits the profile document and its display-name
// reservation in a single transaction.
func (uc *ProvisioningUsecase) writeReservedProfile(ctx context.Context, profile *model.Profile) error {
	return uc.txRunner.RunTransaction(ctx, func(tx repository.Tx) error {
		if err := uc.ledger.Reserve(tx, profile.DisplayName, profile.UID); err != nil {
			return err
		}
		return tx.PutProfile(profile)
	})
}

// compensate deletes the identity created before the failed store write. A
// failed compensation leaves a dangling identity with no profile, which is an
// inconsistency only an operator can repair, so it is logged at the highest
// severity while the original failure still reaches the caller.
func (uc *ProvisioningUsecase) compensate(ctx context.Context, identityID string, cause error) {
	if err := uc.provider.DeleteIdentity(ctx, identityID); err != nil {
		uc.logger.WithFields(map[string]interface{}{
			"identity_id":        identityID,
			"compensation_error": err.Error(),
			"original_error":     cause.Error(),
		}).Errorf("FATAL INCONSISTENCY: identity %s has no profile and could not be deleted", identityID)
		return
	}
	uc.logger.Infof("Compensated identity %s after failed profile write", identityID)
}

func (uc *ProvisioningUsecase) mapProviderError(err error) error {
	switch {
	case errors.Is(err, identityrepo.ErrEmailTaken):
		return apperrors.NewConflictError("email is already registered").
			WithCode("EMAIL_TAKEN").WithCause(err)
	case errors.Is(err, identityrepo.ErrInvalidEmail):
		return apperrors.NewValidationError("invalid email format").WithCause(err)
	case errors.Is(err, identityrepo.ErrWeakPassword):
		return apperrors.NewValidationError("password does not meet strength requirements").WithCause(err)
	default:
		return apperrors.NewUnavailableError("identity provider unavailable").WithCause(err)
	}
}

func generatedDisplayName() string {
	return "user" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Ensure ProvisioningUsecase implements ProvisioningUsecaseInterface
var _ ProvisioningUsecaseInterface = (*ProvisioningUsecase)(nil)
