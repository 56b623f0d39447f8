package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	identityrepo "filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/profile/domain/model"
	"filmlog-backend/internal/profile/domain/repository"
	reviewmodel "filmlog-backend/internal/review/domain/model"
	reviewrepo "filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	apperrors "filmlog-backend/internal/shared/errors"
	"filmlog-backend/internal/shared/eventbus"
	"filmlog-backend/internal/shared/logger"
)

// ProfileUsecaseInterface defines profile read and edit operations
type ProfileUsecaseInterface interface {
	GetProfile(ctx context.Context, uid string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, uid string, req UpdateProfileRequest) (*model.Profile, error)
	ProfileStats(ctx context.Context, uid string) (*ProfileStats, error)
}

// UpdateProfileRequest carries the editable profile fields. Nil means "leave
// unchanged".
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Biography   *string `json:"biography,omitempty"`
	PhotoKey    *string `json:"photoKey,omitempty"`
}

// ProfileStats is the aggregate view of a user's standing
type ProfileStats struct {
	UID           string             `json:"uid"`
	DisplayName   string             `json:"displayName"`
	ReviewCount   int64              `json:"reviewCount"`
	ActivityLevel model.ActivityTier `json:"activityLevel"`
	LikesGiven    int64              `json:"likesGiven"`
}

// ProfileUsecase implements profile reads and edits. Renames swap the
// display-name reservation and the profile document in one transaction, then
// push the new identity onto denormalized copies in the background.
type ProfileUsecase struct {
	profiles   repository.ProfileRepository
	txRunner   repository.TxRunner
	ledger     *ReservationLedger
	provider   identityrepo.IdentityProvider
	propagator PropagationUsecaseInterface
	reviews    reviewrepo.ReviewRepository
	likes      reviewrepo.LikeRepository
	bus        eventbus.EventBusInterface
	logger     logger.Logger
}

// NewProfileUsecase creates a new profile usecase
func NewProfileUsecase(
	profiles repository.ProfileRepository,
	txRunner repository.TxRunner,
	ledger *ReservationLedger,
	provider identityrepo.IdentityProvider,
	propagator PropagationUsecaseInterface,
	reviews reviewrepo.ReviewRepository,
	likes reviewrepo.LikeRepository,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *ProfileUsecase {
	return &ProfileUsecase{
		profiles:   profiles,
		txRunner:   txRunner,
		ledger:     ledger,
		provider:   provider,
		propagator: propagator,
		reviews:    reviews,
		likes:      likes,
		bus:        bus,
		logger:     log.WithComponent("profile_usecase"),
	}
}

// GetProfile loads a profile by uid
func (uc *ProfileUsecase) GetProfile(ctx context.Context, uid string) (*model.Profile, error) {
	profile, err := uc.profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperrors.NewNotFoundError("profile").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to load profile").WithCause(err)
	}
	return profile, nil
}

// UpdateProfile applies a partial edit. A display-name change goes through the
// reservation ledger transactionally; identity changes then propagate to the
// user's reviews and comments without blocking the response.
func (uc *ProfileUsecase) UpdateProfile(ctx context.Context, uid string, req UpdateProfileRequest) (*model.Profile, error) {
	current, err := uc.profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperrors.NewNotFoundError("profile").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to load profile").WithCause(err)
	}

	rename := false
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, apperrors.NewValidationError("display name cannot be empty")
		}
		req.DisplayName = &name
		rename = name != current.DisplayName
	}
	photoChanged := req.PhotoKey != nil && *req.PhotoKey != current.PhotoKey

	updated := *current
	if req.DisplayName != nil {
		updated.DisplayName = *req.DisplayName
	}
	if req.Biography != nil {
		updated.Biography = *req.Biography
	}
	if req.PhotoKey != nil {
		updated.PhotoKey = *req.PhotoKey
	}
	updated.UpdatedAt = time.Now()

	if rename {
		err = uc.txRunner.RunTransaction(ctx, func(tx repository.Tx) error {
			if err := uc.ledger.Swap(tx, current.DisplayName, updated.DisplayName, uid); err != nil {
				return err
			}
			return tx.PutProfile(&updated)
		})
		if err != nil {
			if errors.Is(err, repository.ErrNameTaken) {
				return nil, apperrors.NewConflictError("display name is already in use").
					WithCode("NAME_TAKEN").WithCause(err)
			}
			return nil, apperrors.NewUnavailableError("failed to rename profile").WithCause(err)
		}

		name := updated.DisplayName
		if err := uc.provider.UpdateIdentity(ctx, uid, identityrepo.IdentityUpdate{DisplayName: &name}); err != nil {
			uc.logger.Warnf("Failed to mirror display name to identity provider for %s: %v", uid, err)
		}
	} else {
		err = uc.profiles.Update(ctx, uid, repository.ProfileUpdate{
			Biography: req.Biography,
			PhotoKey:  req.PhotoKey,
		})
		if err != nil {
			return nil, apperrors.NewUnavailableError("failed to update profile").WithCause(err)
		}
	}

	if rename || photoChanged {
		go uc.propagator.PropagateIdentity(context.Background(), uid, updated.DisplayName, updated.PhotoKey)
	}

	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeProfileUpdated,
		eventbus.ChangedPaths{Paths: []string{"profiles/" + uid}},
		"profile_usecase",
	))
	return &updated, nil
}

// ProfileStats computes the aggregate standing of a user. Likes pointing at
// deleted reviews are excluded from the count and cleaned up in the
// background, so the stored like set converges toward the live review set.
func (uc *ProfileUsecase) ProfileStats(ctx context.Context, uid string) (*ProfileStats, error) {
	profile, err := uc.profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperrors.NewNotFoundError("profile").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to load profile").WithCause(err)
	}

	likes, err := uc.likes.ByUser(ctx, uid)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to load likes").WithCause(err)
	}

	live, orphaned, err := uc.partitionLikes(ctx, likes)
	if err != nil {
		return nil, err
	}
	if len(orphaned) > 0 {
		go uc.cleanupOrphanedLikes(context.Background(), uid, orphaned)
	}

	return &ProfileStats{
		UID:           profile.UID,
		DisplayName:   profile.DisplayName,
		ReviewCount:   profile.ReviewCount,
		ActivityLevel: profile.ActivityLevel,
		LikesGiven:    live,
	}, nil
}

// partitionLikes splits the user's likes into those whose review still exists
// and the like doc ids of the rest. Existence checks run concurrently, one
// goroutine per "value in set" chunk.
func (uc *ProfileUsecase) partitionLikes(ctx context.Context, likes []reviewmodel.Like) (int64, []string, error) {
	if len(likes) == 0 {
		return 0, nil, nil
	}

	reviewIDs := make([]string, 0, len(likes))
	for _, like := range likes {
		reviewIDs = append(reviewIDs, like.ReviewID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		existing = make(map[string]bool, len(reviewIDs))
		firstErr error
	)
	for _, chunk := range chunkStrings(reviewIDs, database.MaxInFanOut) {
		wg.Add(1)
		go func(ids []string) {
			defer wg.Done()
			found, err := uc.reviews.ExistingIDs(ctx, ids)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, id := range found {
				existing[id] = true
			}
		}(chunk)
	}
	wg.Wait()
	if firstErr != nil {
		return 0, nil, apperrors.NewUnavailableError("failed to resolve liked reviews").WithCause(firstErr)
	}

	var live int64
	var orphaned []string
	for _, like := range likes {
		if existing[like.ReviewID] {
			live++
		} else {
			orphaned = append(orphaned, like.ID)
		}
	}
	return live, orphaned, nil
}

// cleanupOrphanedLikes deletes like documents whose review is gone. Best
// effort; a failure leaves them for the next stats read.
func (uc *ProfileUsecase) cleanupOrphanedLikes(ctx context.Context, uid string, likeIDs []string) {
	deleted := 0
	for _, id := range likeIDs {
		if err := uc.likes.Delete(ctx, id); err != nil {
			uc.logger.Warnf("Orphaned like cleanup for %s stopped at %d/%d: %v", uid, deleted, len(likeIDs), err)
			return
		}
		deleted++
	}
	uc.logger.Infof("Cleaned up %d orphaned likes for %s", deleted, uid)
}

// Ensure ProfileUsecase implements ProfileUsecaseInterface
var _ ProfileUsecaseInterface = (*ProfileUsecase)(nil)
