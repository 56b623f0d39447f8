package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	identitymodel "filmlog-backend/internal/identity/domain/model"
	identityrepo "filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/profile/domain/model"
	apperrors "filmlog-backend/internal/shared/errors"
	"filmlog-backend/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvisioningFixture() (*ProvisioningUsecase, *memStore, *fakeIdentityProvider, *fakeBus) {
	store := newMemStore()
	provider := newFakeIdentityProvider()
	bus := &fakeBus{}
	uc := NewProvisioningUsecase(provider, store, &memProfileRepo{store: store},
		NewReservationLedger(), bus, logger.NewLogger())
	return uc, store, provider, bus
}

func TestCreateAccountSuccess(t *testing.T) {
	uc, store, provider, _ := newProvisioningFixture()

	profile, err := uc.CreateAccount(context.Background(), CreateAccountRequest{
		Email:       "ana@example.com",
		Password:    "correct-horse",
		DisplayName: "ana",
	})
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "ana", profile.DisplayName)
	assert.Equal(t, identitymodel.ProviderPassword, profile.Provider)
	assert.Equal(t, model.TierNovice, profile.ActivityLevel)

	res := store.reservations["ana"]
	require.NotNil(t, res, "display name must be reserved")
	assert.Equal(t, profile.UID, res.OwnerID)
	assert.NotNil(t, store.profiles[profile.UID])
	assert.Empty(t, provider.deletedIDs())
}

func TestCreateAccountRejectsEmptyDisplayName(t *testing.T) {
	uc, _, provider, _ := newProvisioningFixture()

	_, err := uc.CreateAccount(context.Background(), CreateAccountRequest{
		Email:       "ana@example.com",
		Password:    "correct-horse",
		DisplayName: "   ",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, provider.nextID, "no identity must be created")
}

func TestCreateAccountNameConflictCompensates(t *testing.T) {
	uc, store, provider, _ := newProvisioningFixture()
	store.reservations["ana"] = &model.NameReservation{
		Value: "ana", OwnerID: "someone-else", ReservedAt: time.Now(),
	}

	_, err := uc.CreateAccount(context.Background(), CreateAccountRequest{
		Email:       "ana@example.com",
		Password:    "correct-horse",
		DisplayName: "ana",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// The identity created in step one must be rolled back.
	assert.Equal(t, []string{"identity-1"}, provider.deletedIDs())
	assert.Empty(t, store.profiles)
}

func TestCreateAccountStoreFailureCompensates(t *testing.T) {
	uc, store, provider, _ := newProvisioningFixture()
	store.failPutProfile = true

	_, err := uc.CreateAccount(context.Background(), CreateAccountRequest{
		Email:       "ana@example.com",
		Password:    "correct-horse",
		DisplayName: "ana",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, []string{"identity-1"}, provider.deletedIDs())
	assert.Empty(t, store.reservations, "aborted transaction must leave no reservation")
}

func TestCreateAccountCompensationFailureSurfacesOriginalError(t *testing.T) {
	uc, store, provider, _ := newProvisioningFixture()
	store.failPutProfile = true
	provider.deleteErr = errors.New("provider offline")

	_, err := uc.CreateAccount(context.Background(), CreateAccountRequest{
		Email:       "ana@example.com",
		Password:    "correct-horse",
		DisplayName: "ana",
	})
	require.Error(t, err)

	// The compensation failure must not mask the original write failure.
	assert.True(t, apperrors.IsUnavailable(err))
	assert.NotContains(t, err.Error(), "provider offline")
}

func TestCreateAccountEmailTaken(t *testing.T) {
	uc, _, _, _ := newProvisioningFixture()

	_, err := uc.CreateAccount(context.Background(), CreateAccountRequest{
		Email: "ana@example.com", Password: "correct-horse", DisplayName: "ana",
	})
	require.NoError(t, err)

	_, err = uc.CreateAccount(context.Background(), CreateAccountRequest{
		Email: "ana@example.com", Password: "correct-horse", DisplayName: "ana2",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestConcurrentProvisioningSameName(t *testing.T) {
	uc, store, provider, _ := newProvisioningFixture()

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, results[n] = uc.CreateAccount(context.Background(), CreateAccountRequest{
				Email:       string(rune('a'+n)) + "@example.com",
				Password:    "correct-horse",
				DisplayName: "highlander",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsConflict(err))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one attempt may win the name")
	assert.Len(t, store.profiles, 1)
	assert.Len(t, provider.deletedIDs(), attempts-1, "every loser must be compensated")
}

func TestEnsureSocialAccountReturnsExisting(t *testing.T) {
	uc, store, _, _ := newProvisioningFixture()
	store.profiles["uid-1"] = &model.Profile{UID: "uid-1", DisplayName: "ana"}

	profile, created, err := uc.EnsureSocialAccount(context.Background(), "uid-1", "ana@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ana", profile.DisplayName)
}

func TestEnsureSocialAccountCreatesProfile(t *testing.T) {
	uc, store, provider, _ := newProvisioningFixture()

	profile, created, err := uc.EnsureSocialAccount(context.Background(), "uid-9", "new@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, identitymodel.ProviderSocial, profile.Provider)
	assert.True(t, len(profile.DisplayName) > len("user"), "a display name must be generated")

	require.NotNil(t, store.reservations[profile.DisplayName])
	update, ok := provider.updates["uid-9"]
	require.True(t, ok, "generated name must be mirrored to the provider")
	assert.Equal(t, profile.DisplayName, *update.DisplayName)
}

func TestEnsureSocialAccountSurvivesProviderMirrorFailure(t *testing.T) {
	uc, _, provider, _ := newProvisioningFixture()
	provider.updateErr = identityrepo.ErrIdentityNotFound

	_, created, err := uc.EnsureSocialAccount(context.Background(), "uid-9", "new@example.com")
	require.NoError(t, err, "mirror failures are best effort")
	assert.True(t, created)
}
