package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	profilemodel "filmlog-backend/internal/profile/domain/model"
	profilerepo "filmlog-backend/internal/profile/domain/repository"
	"filmlog-backend/internal/review/domain/model"
	"filmlog-backend/internal/review/domain/repository"
	apperrors "filmlog-backend/internal/shared/errors"
	"filmlog-backend/internal/shared/eventbus"
	"filmlog-backend/internal/shared/logger"

	"github.com/google/uuid"
)

// ActivityRecomputer re-derives the author's review count and activity tier
// after a write that changed the count.
type ActivityRecomputer interface {
	RecomputeActivity(ctx context.Context, uid string) (profilemodel.ActivityTier, error)
}

// ReviewUsecaseInterface defines review write and social operations
type ReviewUsecaseInterface interface {
	CreateReview(ctx context.Context, authorID string, req CreateReviewRequest) (*model.Review, error)
	GetReview(ctx context.Context, id string) (*model.Review, error)
	DeleteReview(ctx context.Context, callerID, reviewID string) error
	Like(ctx context.Context, reviewID, userID string) error
	Unlike(ctx context.Context, reviewID, userID string) error
	AddComment(ctx context.Context, reviewID, authorID, content string) (*model.Comment, error)
}

// CreateReviewRequest carries the review creation input
type CreateReviewRequest struct {
	MovieID    string `json:"movieId"`
	MovieTitle string `json:"movieTitle"`
	Title      string `json:"title"`
	Rating     int    `json:"rating"`
	Content    string `json:"content"`
}

// ReviewUsecase implements review writes and the like/comment interactions.
// Writes that change an author's review count trigger an activity
// recomputation before returning.
type ReviewUsecase struct {
	reviews    repository.ReviewRepository
	comments   repository.CommentRepository
	likes      repository.LikeRepository
	profiles   profilerepo.ProfileRepository
	cascade    CascadeUsecaseInterface
	recomputer ActivityRecomputer
	bus        eventbus.EventBusInterface
	logger     logger.Logger
}

// NewReviewUsecase creates a new review usecase
func NewReviewUsecase(
	reviews repository.ReviewRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	profiles profilerepo.ProfileRepository,
	cascade CascadeUsecaseInterface,
	recomputer ActivityRecomputer,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *ReviewUsecase {
	return &ReviewUsecase{
		reviews:    reviews,
		comments:   comments,
		likes:      likes,
		profiles:   profiles,
		cascade:    cascade,
		recomputer: recomputer,
		bus:        bus,
		logger:     log.WithComponent("review_usecase"),
	}
}

// CreateReview persists a new review carrying a snapshot of its author, then
// recomputes the author's activity tier.
func (uc *ReviewUsecase) CreateReview(ctx context.Context, authorID string, req CreateReviewRequest) (*model.Review, error) {
	if strings.TrimSpace(req.MovieID) == "" {
		return nil, apperrors.NewValidationError("movie id is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.NewValidationError("review content is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5")
	}

	author, err := uc.profiles.Get(ctx, authorID)
	if err != nil {
		if errors.Is(err, profilerepo.ErrProfileNotFound) {
			return nil, apperrors.NewNotFoundError("profile").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to load author profile").WithCause(err)
	}

	now := time.Now()
	zero := int64(0)
	review := &model.Review{
		ID: uuid.New().String(),
		User: model.UserSnapshot{
			UID:           author.UID,
			DisplayName:   author.DisplayName,
			PhotoKey:      author.PhotoKey,
			ActivityLevel: string(author.ActivityLevel),
		},
		Details: model.ReviewDetails{
			MovieID:    req.MovieID,
			MovieTitle: req.MovieTitle,
			Title:      req.Title,
			Rating:     req.Rating,
			Content:    req.Content,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		LikeCount: &zero,
	}

	if err := uc.reviews.Create(ctx, review); err != nil {
		return nil, apperrors.NewUnavailableError("failed to create review").WithCause(err)
	}

	if _, err := uc.recomputer.RecomputeActivity(ctx, authorID); err != nil {
		uc.logger.Warnf("Activity recomputation after creating review %s failed: %v", review.ID, err)
	}

	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeReviewCreated,
		eventbus.ChangedPaths{Paths: []string{"reviews/" + review.ID, "profiles/" + authorID}},
		"review_usecase",
	))
	return review, nil
}

// GetReview loads a single review by id
func (uc *ReviewUsecase) GetReview(ctx context.Context, id string) (*model.Review, error) {
	review, err := uc.reviews.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperrors.NewNotFoundError("review").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to load review").WithCause(err)
	}
	return review, nil
}

// DeleteReview cascades the review and its subcollections away, then
// recomputes the author's activity tier. Only the author may delete.
func (uc *ReviewUsecase) DeleteReview(ctx context.Context, callerID, reviewID string) error {
	review, err := uc.reviews.Get(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return apperrors.NewNotFoundError("review").WithCause(err)
		}
		return apperrors.NewUnavailableError("failed to load review").WithCause(err)
	}
	if review.User.UID != callerID {
		return apperrors.NewForbiddenError("only the author can delete a review")
	}

	if _, err := uc.cascade.DeleteReviewAggregate(ctx, reviewID); err != nil {
		return err
	}

	if _, err := uc.recomputer.RecomputeActivity(ctx, review.User.UID); err != nil {
		uc.logger.Warnf("Activity recomputation after deleting review %s failed: %v", reviewID, err)
	}

	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeReviewDeleted,
		eventbus.ChangedPaths{Paths: []string{"reviews/" + reviewID, "profiles/" + review.User.UID}},
		"review_usecase",
	))
	return nil
}

// Like records a like and bumps the review's counter. Liking twice is a
// no-op and leaves the counter untouched.
func (uc *ReviewUsecase) Like(ctx context.Context, reviewID, userID string) error {
	if _, err := uc.reviews.Get(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return apperrors.NewNotFoundError("review").WithCause(err)
		}
		return apperrors.NewUnavailableError("failed to load review").WithCause(err)
	}

	created, err := uc.likes.Set(ctx, reviewID, userID)
	if err != nil {
		return apperrors.NewUnavailableError("failed to set like").WithCause(err)
	}
	if !created {
		return nil
	}

	if err := uc.reviews.IncrementLikeCount(ctx, reviewID, 1); err != nil {
		return apperrors.NewUnavailableError("failed to adjust like count").WithCause(err)
	}

	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeReviewLiked,
		eventbus.ChangedPaths{Paths: []string{"reviews/" + reviewID}},
		"review_usecase",
	))
	return nil
}

// Unlike removes a like and decrements the counter when the like existed
func (uc *ReviewUsecase) Unlike(ctx context.Context, reviewID, userID string) error {
	existed, err := uc.likes.Unset(ctx, reviewID, userID)
	if err != nil {
		return apperrors.NewUnavailableError("failed to unset like").WithCause(err)
	}
	if !existed {
		return nil
	}

	if err := uc.reviews.IncrementLikeCount(ctx, reviewID, -1); err != nil {
		// The review may have been cascade-deleted between the unset and the
		// decrement; its counter is gone with it.
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil
		}
		return apperrors.NewUnavailableError("failed to adjust like count").WithCause(err)
	}

	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeReviewLiked,
		eventbus.ChangedPaths{Paths: []string{"reviews/" + reviewID}},
		"review_usecase",
	))
	return nil
}

// AddComment appends a comment to a review, carrying the author snapshot the
// propagator keeps in sync afterwards.
func (uc *ReviewUsecase) AddComment(ctx context.Context, reviewID, authorID, content string) (*model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("comment content is required")
	}

	if _, err := uc.reviews.Get(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperrors.NewNotFoundError("review").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to load review").WithCause(err)
	}

	author, err := uc.profiles.Get(ctx, authorID)
	if err != nil {
		if errors.Is(err, profilerepo.ErrProfileNotFound) {
			return nil, apperrors.NewNotFoundError("profile").WithCause(err)
		}
		return nil, apperrors.NewUnavailableError("failed to load author profile").WithCause(err)
	}

	now := time.Now()
	comment := &model.Comment{
		ID:            uuid.New().String(),
		ReviewID:      reviewID,
		AuthorID:      author.UID,
		DisplayName:   author.DisplayName,
		PhotoKey:      author.PhotoKey,
		ActivityLevel: string(author.ActivityLevel),
		Content:       content,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.comments.Add(ctx, comment); err != nil {
		return nil, apperrors.NewUnavailableError("failed to add comment").WithCause(err)
	}

	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeCommentAdded,
		eventbus.ChangedPaths{Paths: []string{"reviews/" + reviewID}},
		"review_usecase",
	))
	return comment, nil
}

// Ensure ReviewUsecase implements ReviewUsecaseInterface
var _ ReviewUsecaseInterface = (*ReviewUsecase)(nil)
