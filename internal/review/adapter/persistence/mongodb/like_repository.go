package mongodb

import (
	"context"
	"fmt"
	"time"

	"filmlog-backend/internal/review/domain/model"
	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LikeRepository implements repository.LikeRepository using MongoDB
type LikeRepository struct {
	likes  *mongo.Collection
	logger logger.Logger
}

// NewLikeRepository creates a new MongoDB like repository
func NewLikeRepository(db *mongo.Database, log logger.Logger) (*LikeRepository, error) {
	repo := &LikeRepository{
		likes:  db.Collection(repository.CollectionLikes),
		logger: log.WithComponent("like_repository"),
	}

	ctx := context.Background()

	idIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := repo.likes.Indexes().CreateOne(ctx, idIndex); err != nil {
		return nil, fmt.Errorf("failed to create id index: %w", err)
	}

	userIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}
	if _, err := repo.likes.Indexes().CreateOne(ctx, userIndex); err != nil {
		return nil, fmt.Errorf("failed to create user index: %w", err)
	}

	return repo, nil
}

// Set records a like; inserting the deterministic doc id twice is a no-op
func (r *LikeRepository) Set(ctx context.Context, reviewID, userID string) (bool, error) {
	like := &model.Like{
		ID:        model.LikeDocID(reviewID, userID),
		ReviewID:  reviewID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if _, err := r.likes.InsertOne(ctx, like); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to set like: %w", err)
	}
	return true, nil
}

// Unset removes a like, reporting whether it existed
func (r *LikeRepository) Unset(ctx context.Context, reviewID, userID string) (bool, error) {
	result, err := r.likes.DeleteOne(ctx, bson.M{"id": model.LikeDocID(reviewID, userID)})
	if err != nil {
		return false, fmt.Errorf("failed to unset like: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// IDsByReview returns every like document id under a review
func (r *LikeRepository) IDsByReview(ctx context.Context, reviewID string) ([]string, error) {
	cursor, err := r.likes.Find(ctx, bson.M{"review_id": reviewID},
		options.Find().SetProjection(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query likes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode like ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// ByUser returns every like record created by the user
func (r *LikeRepository) ByUser(ctx context.Context, userID string) ([]model.Like, error) {
	cursor, err := r.likes.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query likes by user: %w", err)
	}
	defer cursor.Close(ctx)

	var likes []model.Like
	if err := cursor.All(ctx, &likes); err != nil {
		return nil, fmt.Errorf("failed to decode likes: %w", err)
	}
	return likes, nil
}

// Delete removes a like document by id; absent documents are a no-op
func (r *LikeRepository) Delete(ctx context.Context, likeID string) error {
	if _, err := r.likes.DeleteOne(ctx, bson.M{"id": likeID}); err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

// Ensure LikeRepository implements repository.LikeRepository
var _ repository.LikeRepository = (*LikeRepository)(nil)
