package usecase

import (
	"context"

	"filmlog-backend/internal/profile/domain/model"
	"filmlog-backend/internal/profile/domain/repository"
	reviewrepo "filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	apperrors "filmlog-backend/internal/shared/errors"
	"filmlog-backend/internal/shared/logger"
)

// PropagationUsecaseInterface defines counter recomputation and denormalized
// field propagation operations
type PropagationUsecaseInterface interface {
	RecomputeActivity(ctx context.Context, uid string) (model.ActivityTier, error)
	PropagateIdentity(ctx context.Context, uid, displayName, photoKey string)
}

// PropagationUsecase keeps the denormalized profile fields scattered across
// review and comment documents in sync with their source of truth. Fan-outs
// run detached from the triggering request: a failed propagation is logged and
// left for the next trigger to repair, never surfaced to the caller.
type PropagationUsecase struct {
	profiles repository.ProfileRepository
	reviews  reviewrepo.ReviewRepository
	comments reviewrepo.CommentRepository
	batch    reviewrepo.BatchWriter
	logger   logger.Logger
}

// NewPropagationUsecase creates a new propagation usecase
func NewPropagationUsecase(
	profiles repository.ProfileRepository,
	reviews reviewrepo.ReviewRepository,
	comments reviewrepo.CommentRepository,
	batch reviewrepo.BatchWriter,
	log logger.Logger,
) *PropagationUsecase {
	return &PropagationUsecase{
		profiles: profiles,
		reviews:  reviews,
		comments: comments,
		batch:    batch,
		logger:   log.WithComponent("propagation_usecase"),
	}
}

// RecomputeActivity re-counts the user's reviews with the store's count
// aggregate, derives the activity tier, and stores both on the profile. When
// the tier changed, the new label is fanned out to the user's comments in the
// background.
func (uc *PropagationUsecase) RecomputeActivity(ctx context.Context, uid string) (model.ActivityTier, error) {
	count, err := uc.reviews.Count(ctx, uid)
	if err != nil {
		return "", apperrors.NewUnavailableError("failed to count reviews").WithCause(err)
	}
	tier := model.TierForReviewCount(count)

	current, err := uc.profiles.Get(ctx, uid)
	if err != nil {
		return "", apperrors.NewUnavailableError("failed to load profile").WithCause(err)
	}

	if err := uc.profiles.SetActivity(ctx, uid, count, tier); err != nil {
		return "", apperrors.NewUnavailableError("failed to store activity").WithCause(err)
	}

	if current.ActivityLevel != tier {
		uc.logger.Infof("Activity tier for %s changed %s -> %s at %d reviews",
			uid, current.ActivityLevel, tier, count)
		// Detached from the request lifecycle; the triggering write already
		// succeeded.
		go uc.propagateTier(context.Background(), uid, tier)
	}
	return tier, nil
}

// propagateTier rewrites the denormalized activity label on every comment the
// user authored. Failures are logged only.
func (uc *PropagationUsecase) propagateTier(ctx context.Context, uid string, tier model.ActivityTier) {
	refs, err := uc.comments.RefsByAuthor(ctx, uid)
	if err != nil {
		uc.logger.Errorf("Tier propagation for %s aborted: %v", uid, err)
		return
	}

	ops := make([]reviewrepo.WriteOp, 0, len(refs))
	for _, ref := range refs {
		ops = append(ops, reviewrepo.WriteOp{
			Kind:       reviewrepo.WriteOpUpdate,
			Collection: reviewrepo.CollectionComments,
			DocID:      ref.CommentID,
			Set:        map[string]interface{}{"activity_level": tier},
		})
	}

	uc.applyChunked(ctx, "tier propagation", uid, ops)
}

// PropagateIdentity rewrites the display name and photo denormalized onto the
// user's reviews and comments. Called in the background after a profile edit;
// failures are logged only.
func (uc *PropagationUsecase) PropagateIdentity(ctx context.Context, uid, displayName, photoKey string) {
	var ops []reviewrepo.WriteOp

	reviewIDs, err := uc.reviews.IDsByAuthor(ctx, uid)
	if err != nil {
		uc.logger.Errorf("Identity propagation for %s aborted: %v", uid, err)
		return
	}
	for _, id := range reviewIDs {
		ops = append(ops, reviewrepo.WriteOp{
			Kind:       reviewrepo.WriteOpUpdate,
			Collection: reviewrepo.CollectionReviews,
			DocID:      id,
			Set: map[string]interface{}{
				"user.display_name": displayName,
				"user.photo_key":    photoKey,
			},
		})
	}

	refs, err := uc.comments.RefsByAuthor(ctx, uid)
	if err != nil {
		uc.logger.Errorf("Identity propagation for %s aborted: %v", uid, err)
		return
	}
	for _, ref := range refs {
		ops = append(ops, reviewrepo.WriteOp{
			Kind:       reviewrepo.WriteOpUpdate,
			Collection: reviewrepo.CollectionComments,
			DocID:      ref.CommentID,
			Set: map[string]interface{}{
				"display_name": displayName,
				"photo_key":    photoKey,
			},
		})
	}

	uc.applyChunked(ctx, "identity propagation", uid, ops)
}

// applyChunked commits the operations in sequential batches under the store's
// per-request write limit.
func (uc *PropagationUsecase) applyChunked(ctx context.Context, what, uid string, ops []reviewrepo.WriteOp) {
	if len(ops) == 0 {
		return
	}

	chunks := chunkOps(ops, database.MaxBatchWrites)
	for i, chunk := range chunks {
		if err := uc.batch.Apply(ctx, chunk); err != nil {
			uc.logger.Errorf("%s for %s failed on batch %d/%d: %v", what, uid, i+1, len(chunks), err)
			return
		}
	}
	uc.logger.Debugf("%s for %s touched %d documents in %d batches", what, uid, len(ops), len(chunks))
}

func chunkOps(ops []reviewrepo.WriteOp, size int) [][]reviewrepo.WriteOp {
	var chunks [][]reviewrepo.WriteOp
	for len(ops) > 0 {
		n := size
		if len(ops) < n {
			n = len(ops)
		}
		chunks = append(chunks, ops[:n])
		ops = ops[n:]
	}
	return chunks
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for len(values) > 0 {
		n := size
		if len(values) < n {
			n = len(values)
		}
		chunks = append(chunks, values[:n])
		values = values[n:]
	}
	return chunks
}

// Ensure PropagationUsecase implements PropagationUsecaseInterface
var _ PropagationUsecaseInterface = (*PropagationUsecase)(nil)
