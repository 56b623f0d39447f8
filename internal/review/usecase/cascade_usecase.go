package usecase

import (
	"context"

	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	apperrors "filmlog-backend/internal/shared/errors"
	"filmlog-backend/internal/shared/logger"
)

// CascadeUsecaseInterface defines aggregate deletion operations
type CascadeUsecaseInterface interface {
	DeleteReviewAggregate(ctx context.Context, reviewID string) (int, error)
}

// CascadeUsecase deletes a review together with its comment and like
// subcollections. Deletes are batched under the store's per-request limit and
// committed sequentially; every delete is idempotent, so a crash between
// batches leaves a state the next attempt converges from.
type CascadeUsecase struct {
	reviews  repository.ReviewRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	batch    repository.BatchWriter
	logger   logger.Logger
}

// NewCascadeUsecase creates a new cascade usecase
func NewCascadeUsecase(
	reviews repository.ReviewRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	batch repository.BatchWriter,
	log logger.Logger,
) *CascadeUsecase {
	return &CascadeUsecase{
		reviews:  reviews,
		comments: comments,
		likes:    likes,
		batch:    batch,
		logger:   log.WithComponent("cascade_usecase"),
	}
}

// DeleteReviewAggregate removes the review document and every comment and
// like under it, returning the number of documents deleted. A batch failure
// aborts the operation; batches already committed stay deleted, which the
// caller surfaces as a partial cascade.
func (uc *CascadeUsecase) DeleteReviewAggregate(ctx context.Context, reviewID string) (int, error) {
	commentIDs, err := uc.comments.IDsByReview(ctx, reviewID)
	if err != nil {
		return 0, apperrors.NewUnavailableError("failed to enumerate comments").WithCause(err)
	}
	likeIDs, err := uc.likes.IDsByReview(ctx, reviewID)
	if err != nil {
		return 0, apperrors.NewUnavailableError("failed to enumerate likes").WithCause(err)
	}

	ops := make([]repository.WriteOp, 0, len(commentIDs)+len(likeIDs)+1)
	for _, id := range commentIDs {
		ops = append(ops, repository.WriteOp{
			Kind:       repository.WriteOpDelete,
			Collection: repository.CollectionComments,
			DocID:      id,
		})
	}
	for _, id := range likeIDs {
		ops = append(ops, repository.WriteOp{
			Kind:       repository.WriteOpDelete,
			Collection: repository.CollectionLikes,
			DocID:      id,
		})
	}
	// Root last: children never outlive the review even on a partial run.
	ops = append(ops, repository.WriteOp{
		Kind:       repository.WriteOpDelete,
		Collection: repository.CollectionReviews,
		DocID:      reviewID,
	})

	chunks := chunkOps(ops, database.MaxBatchWrites)
	for i, chunk := range chunks {
		if err := uc.batch.Apply(ctx, chunk); err != nil {
			uc.logger.Errorf("Cascade delete of %s failed on batch %d/%d", reviewID, i+1, len(chunks))
			return 0, apperrors.NewInternalError("cascade delete partially applied").
				WithCode("PARTIAL_CASCADE").
				WithDetail("committed_batches", i).
				WithDetail("total_batches", len(chunks)).
				WithCause(err)
		}
	}

	uc.logger.Infof("Cascade delete of %s removed %d documents in %d batches",
		reviewID, len(ops), len(chunks))
	return len(ops), nil
}

func chunkOps(ops []repository.WriteOp, size int) [][]repository.WriteOp {
	var chunks [][]repository.WriteOp
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

// Ensure CascadeUsecase implements CascadeUsecaseInterface
var _ CascadeUsecaseInterface = (*CascadeUsecase)(nil)
