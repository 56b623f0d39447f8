package mongodb

import (
	"context"
	"fmt"

	"filmlog-backend/internal/review/domain/model"
	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReviewRepository implements repository.ReviewRepository using MongoDB
type ReviewRepository struct {
	reviews *mongo.Collection
	logger  logger.Logger
}

// NewReviewRepository creates a new MongoDB review repository
func NewReviewRepository(db *mongo.Database, log logger.Logger) (*ReviewRepository, error) {
	repo := &ReviewRepository{
		reviews: db.Collection(repository.CollectionReviews),
		logger:  log.WithComponent("review_repository"),
	}

	ctx := context.Background()

	idIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := repo.reviews.Indexes().CreateOne(ctx, idIndex); err != nil {
		return nil, fmt.Errorf("failed to create id index: %w", err)
	}

	feedIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user.uid", Value: 1}, {Key: "review.created_at", Value: -1}},
	}
	if _, err := repo.reviews.Indexes().CreateOne(ctx, feedIndex); err != nil {
		return nil, fmt.Errorf("failed to create feed index: %w", err)
	}

	return repo, nil
}

// Create inserts a new review document
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	if _, err := r.reviews.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Get retrieves a review document by id
func (r *ReviewRepository) Get(ctx context.Context, id string) (*model.Review, error) {
	var review model.Review
	err := r.reviews.FindOne(ctx, bson.M{"id": id}).Decode(&review)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// List returns a window of reviews ordered by creation time descending,
// using the store's native offset/limit pagination.
func (r *ReviewRepository) List(ctx context.Context, q repository.ReviewListQuery) ([]*model.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "review.created_at", Value: -1}})
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.reviews.Find(ctx, r.authorFilter(q.AuthorID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []*model.Review
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, nil
}

// Count runs the store's count aggregate over the review collection
func (r *ReviewRepository) Count(ctx context.Context, authorID string) (int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: r.authorFilter(authorID)}},
		bson.D{{Key: "$count", Value: "total"}},
	}

	cursor, err := r.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to execute count aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, fmt.Errorf("failed to decode count result: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, fmt.Errorf("cursor error during count aggregate: %w", err)
	}
	return result.Total, nil
}

// ExistingIDs filters ids down to those with a live review document. At most
// database.MaxInFanOut ids per call.
func (r *ReviewRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > database.MaxInFanOut {
		return nil, fmt.Errorf("in-query fan-out %d exceeds limit of %d", len(ids), database.MaxInFanOut)
	}

	cursor, err := r.reviews.Find(ctx, bson.M{"id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query review ids: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode review ids: %w", err)
	}

	existing := make([]string, 0, len(docs))
	for _, doc := range docs {
		existing = append(existing, doc.ID)
	}
	return existing, nil
}

// IDsByAuthor returns every review id authored by the user
func (r *ReviewRepository) IDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	cursor, err := r.reviews.Find(ctx, bson.M{"user.uid": authorID},
		options.Find().SetProjection(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews by author: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode review ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// IncrementLikeCount atomically adjusts the top-level like counter
func (r *ReviewRepository) IncrementLikeCount(ctx context.Context, id string, delta int64) error {
	result, err := r.reviews.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$inc": bson.M{"top_like_count": delta}})
	if err != nil {
		return fmt.Errorf("failed to increment like count: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrReviewNotFound
	}
	return nil
}

func (r *ReviewRepository) authorFilter(authorID string) bson.M {
	if authorID == "" {
		return bson.M{}
	}
	return bson.M{"user.uid": authorID}
}

// Ensure ReviewRepository implements repository.ReviewRepository
var _ repository.ReviewRepository = (*ReviewRepository)(nil)
