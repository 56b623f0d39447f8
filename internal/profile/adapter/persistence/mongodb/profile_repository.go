package mongodb

import (
	"context"
	"fmt"
	"time"

	"filmlog-backend/internal/profile/domain/model"
	"filmlog-backend/internal/profile/domain/repository"
	"filmlog-backend/internal/shared/database"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileRepository implements repository.ProfileRepository using MongoDB
type ProfileRepository struct {
	profiles *mongo.Collection
	logger   logger.Logger
}

// NewProfileRepository creates a new MongoDB profile repository
func NewProfileRepository(db *mongo.Database, log logger.Logger) (*ProfileRepository, error) {
	repo := &ProfileRepository{
		profiles: db.Collection("profiles"),
		logger:   log.WithComponent("profile_repository"),
	}

	uidIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := repo.profiles.Indexes().CreateOne(context.Background(), uidIndex); err != nil {
		return nil, fmt.Errorf("failed to create uid index: %w", err)
	}

	return repo, nil
}

// Get retrieves a profile document by uid
func (r *ProfileRepository) Get(ctx context.Context, uid string) (*model.Profile, error) {
	var profile model.Profile
	err := r.profiles.FindOne(ctx, bson.M{"uid": uid}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// GetMany resolves one "uid in set" query. The store caps the fan-out of such
// queries, so the id list must not exceed database.MaxInFanOut.
func (r *ProfileRepository) GetMany(ctx context.Context, uids []string) ([]*model.Profile, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > database.MaxInFanOut {
		return nil, fmt.Errorf("in-query fan-out %d exceeds limit of %d", len(uids), database.MaxInFanOut)
	}

	cursor, err := r.profiles.Find(ctx, bson.M{"uid": bson.M{"$in": uids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []*model.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	return profiles, nil
}

// Update applies the non-nil fields of the update to a profile document
func (r *ProfileRepository) Update(ctx context.Context, uid string, update repository.ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if update.DisplayName != nil {
		set["display_name"] = *update.DisplayName
	}
	if update.Biography != nil {
		set["biography"] = *update.Biography
	}
	if update.PhotoKey != nil {
		set["photo_key"] = *update.PhotoKey
	}

	result, err := r.profiles.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrProfileNotFound
	}
	return nil
}

// SetActivity stores the recomputed review count and activity tier
func (r *ProfileRepository) SetActivity(ctx context.Context, uid string, reviewCount int64, tier model.ActivityTier) error {
	result, err := r.profiles.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": bson.M{
		"review_count":   reviewCount,
		"activity_level": tier,
		"updated_at":     time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to set activity: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrProfileNotFound
	}
	return nil
}

// Ensure ProfileRepository implements repository.ProfileRepository
var _ repository.ProfileRepository = (*ProfileRepository)(nil)
