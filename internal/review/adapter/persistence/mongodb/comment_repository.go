package mongodb

import (
	"context"
	"fmt"

	"filmlog-backend/internal/review/domain/model"
	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentRepository implements repository.CommentRepository using MongoDB
type CommentRepository struct {
	comments *mongo.Collection
	logger   logger.Logger
}

// NewCommentRepository creates a new MongoDB comment repository
func NewCommentRepository(db *mongo.Database, log logger.Logger) (*CommentRepository, error) {
	repo := &CommentRepository{
		comments: db.Collection(repository.CollectionComments),
		logger:   log.WithComponent("comment_repository"),
	}

	ctx := context.Background()

	reviewIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "review_id", Value: 1}},
	}
	if _, err := repo.comments.Indexes().CreateOne(ctx, reviewIndex); err != nil {
		return nil, fmt.Errorf("failed to create review index: %w", err)
	}

	authorIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: 1}},
	}
	if _, err := repo.comments.Indexes().CreateOne(ctx, authorIndex); err != nil {
		return nil, fmt.Errorf("failed to create author index: %w", err)
	}

	return repo, nil
}

// Add inserts a new comment document
func (r *CommentRepository) Add(ctx context.Context, comment *model.Comment) error {
	if _, err := r.comments.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// IDsByReview returns every comment id under a review
func (r *CommentRepository) IDsByReview(ctx context.Context, reviewID string) ([]string, error) {
	cursor, err := r.comments.Find(ctx, bson.M{"review_id": reviewID},
		options.Find().SetProjection(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode comment ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// RefsByAuthor returns refs of every comment authored by the user, ordered by
// creation time.
func (r *CommentRepository) RefsByAuthor(ctx context.Context, authorID string) ([]model.CommentRef, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"id": 1, "review_id": 1})

	cursor, err := r.comments.Find(ctx, bson.M{"author_id": authorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments by author: %w", err)
	}
	defer cursor.Close(ctx)

	var refs []model.CommentRef
	if err := cursor.All(ctx, &refs); err != nil {
		return nil, fmt.Errorf("failed to decode comment refs: %w", err)
	}
	return refs, nil
}

// Ensure CommentRepository implements repository.CommentRepository
var _ repository.CommentRepository = (*CommentRepository)(nil)
