package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"filmlog-backend/internal/identity/config"
	"filmlog-backend/internal/identity/domain/model"
	"filmlog-backend/internal/identity/domain/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Password validation constants
const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// MongoIdentityProvider implements the IdentityProvider interface using
// MongoDB. It stands in for the hosted identity service in self-contained
// deployments; the usecases only ever see the IdentityProvider contract.
type MongoIdentityProvider struct {
	identities *mongo.Collection
	bcryptCost int
}

// NewMongoIdentityProvider creates a MongoDB-backed identity provider
func NewMongoIdentityProvider(db *mongo.Database, cfg *config.Config) (*MongoIdentityProvider, error) {
	provider := &MongoIdentityProvider{
		identities: db.Collection("identities"),
		bcryptCost: cfg.BcryptCost,
	}

	ctx := context.Background()

	emailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := provider.identities.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return nil, fmt.Errorf("failed to create email index: %w", err)
	}

	idIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := provider.identities.Indexes().CreateOne(ctx, idIndex); err != nil {
		return nil, fmt.Errorf("failed to create id index: %w", err)
	}

	return provider, nil
}

// CreateIdentity creates a new identity record with a hashed credential
func (p *MongoIdentityProvider) CreateIdentity(ctx context.Context, email, password, displayName string) (*model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	count, err := p.identities.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing identity: %w", err)
	}
	if count > 0 {
		return nil, repository.ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	identity := &model.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hashedPassword),
		Provider:     model.ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := p.identities.InsertOne(ctx, identity); err != nil {
		// The unique email index closes the check-then-insert race.
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	identity.PasswordHash = ""
	return identity, nil
}

// GetIdentity retrieves an identity record by id
func (p *MongoIdentityProvider) GetIdentity(ctx context.Context, id string) (*model.Identity, error) {
	var identity model.Identity
	err := p.identities.FindOne(ctx, bson.M{"id": id}).Decode(&identity)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	identity.PasswordHash = ""
	return &identity, nil
}

// UpdateIdentity updates the mutable fields of an identity record
func (p *MongoIdentityProvider) UpdateIdentity(ctx context.Context, id string, update repository.IdentityUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if err := validateEmail(email); err != nil {
			return err
		}
		set["email"] = email
	}
	if update.DisplayName != nil {
		set["display_name"] = strings.TrimSpace(*update.DisplayName)
	}

	result, err := p.identities.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("failed to update identity: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrIdentityNotFound
	}
	return nil
}

// DeleteIdentity removes an identity record. Deleting an absent identity is a
// no-op so that saga compensation can be retried safely.
func (p *MongoIdentityProvider) DeleteIdentity(ctx context.Context, id string) error {
	if _, err := p.identities.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || !emailRegex.MatchString(email) {
		return repository.ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return repository.ErrWeakPassword
	}
	return nil
}

// Ensure MongoIdentityProvider implements IdentityProvider
var _ repository.IdentityProvider = (*MongoIdentityProvider)(nil)
