package repository

import (
	"context"
	"errors"

	"filmlog-backend/internal/review/domain/model"
)

var ErrReviewNotFound = errors.New("review not found")

// Store collection names used when composing batched write operations.
const (
	CollectionReviews  = "reviews"
	CollectionComments = "review_comments"
	CollectionLikes    = "review_likes"
)

// ReviewListQuery selects a window of reviews ordered by creation time
// descending.
type ReviewListQuery struct {
	AuthorID string
	Offset   int
	Limit    int
}

// ReviewRepository defines persistence operations for review aggregate roots.
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	Get(ctx context.Context, id string) (*model.Review, error)
	List(ctx context.Context, q ReviewListQuery) ([]*model.Review, error)

	// Count runs the store's count aggregate, optionally scoped to an author.
	Count(ctx context.Context, authorID string) (int64, error)

	// ExistingIDs filters the given ids down to those whose review document
	// still exists. At most database.MaxInFanOut ids per call.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)

	// IDsByAuthor returns every review id authored by the user.
	IDsByAuthor(ctx context.Context, authorID string) ([]string, error)

	// IncrementLikeCount atomically adjusts the top-level like counter.
	IncrementLikeCount(ctx context.Context, id string, delta int64) error
}

// CommentRepository defines persistence operations for review comments.
type CommentRepository interface {
	Add(ctx context.Context, comment *model.Comment) error

	// IDsByReview returns every comment id under a review (unbounded read;
	// the set is bounded by product semantics, not corpus size).
	IDsByReview(ctx context.Context, reviewID string) ([]string, error)

	// RefsByAuthor returns refs of every comment authored by the user across
	// all reviews, ordered by creation time.
	RefsByAuthor(ctx context.Context, authorID string) ([]model.CommentRef, error)
}

// LikeRepository defines persistence operations for review likes.
type LikeRepository interface {
	// Set records the like; it is idempotent and reports whether a new like
	// document was created.
	Set(ctx context.Context, reviewID, userID string) (bool, error)

	// Unset removes the like; it reports whether a like document existed.
	Unset(ctx context.Context, reviewID, userID string) (bool, error)

	IDsByReview(ctx context.Context, reviewID string) ([]string, error)
	ByUser(ctx context.Context, userID string) ([]model.Like, error)
	Delete(ctx context.Context, likeID string) error
}

// WriteOpKind discriminates batched write operations.
type WriteOpKind string

const (
	WriteOpDelete WriteOpKind = "delete"
	WriteOpUpdate WriteOpKind = "update"
)

// WriteOp is a single operation inside a batched write, addressing a document
// by collection and id.
type WriteOp struct {
	Kind       WriteOpKind
	Collection string
	DocID      string
	Set        map[string]interface{}
}

// BatchWriter commits a batch of writes in one store request. Implementations
// reject batches larger than database.MaxBatchWrites; deleting an absent
// document is a no-op so that batched deletes stay idempotent.
type BatchWriter interface {
	Apply(ctx context.Context, ops []WriteOp) error
}
