package mongodb

import (
	"context"
	"fmt"

	"filmlog-backend/internal/profile/domain/model"
	"filmlog-backend/internal/profile/domain/repository"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoreTxRunner implements repository.TxRunner over MongoDB sessions. It is
// the only atomicity boundary in the system: the reservation check/write and
// the profile write it guards commit or abort together.
type StoreTxRunner struct {
	client       *mongo.Client
	profiles     *mongo.Collection
	reservations *mongo.Collection
	logger       logger.Logger
}

// NewStoreTxRunner creates a transaction runner over the profile and
// reservation collections.
func NewStoreTxRunner(db *mongo.Database, log logger.Logger) (*StoreTxRunner, error) {
	runner := &StoreTxRunner{
		client:       db.Client(),
		profiles:     db.Collection("profiles"),
		reservations: db.Collection("name_reservations"),
		logger:       log.WithComponent("store_tx"),
	}

	valueIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "value", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := runner.reservations.Indexes().CreateOne(context.Background(), valueIndex); err != nil {
		return nil, fmt.Errorf("failed to create reservation index: %w", err)
	}

	return runner, nil
}

// RunTransaction executes fn inside a MongoDB transaction
func (r *StoreTxRunner) RunTransaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		r.logger.Errorf("Failed to start session: %v", err)
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	err = mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		tx := &storeTx{runner: r, ctx: sc}

		if err := fn(tx); err != nil {
			if abortErr := session.AbortTransaction(sc); abortErr != nil {
				r.logger.Errorf("Failed to abort transaction: %v", abortErr)
			}
			return err
		}

		if err := session.CommitTransaction(sc); err != nil {
			r.logger.Errorf("Failed to commit transaction: %v", err)
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})

	return err
}

// storeTx implements repository.Tx inside a session context
type storeTx struct {
	runner *StoreTxRunner
	ctx    mongo.SessionContext
}

// GetReservation reads a reservation inside the transaction, nil when absent
func (tx *storeTx) GetReservation(value string) (*model.NameReservation, error) {
	var reservation model.NameReservation
	err := tx.runner.reservations.FindOne(tx.ctx, bson.M{"value": value}).Decode(&reservation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reservation: %w", err)
	}
	return &reservation, nil
}

// PutReservation writes a reservation inside the transaction
func (tx *storeTx) PutReservation(reservation *model.NameReservation) error {
	if _, err := tx.runner.reservations.InsertOne(tx.ctx, reservation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrNameTaken
		}
		return fmt.Errorf("failed to write reservation: %w", err)
	}
	return nil
}

// DeleteReservation removes a reservation inside the transaction
func (tx *storeTx) DeleteReservation(value string) error {
	if _, err := tx.runner.reservations.DeleteOne(tx.ctx, bson.M{"value": value}); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

// PutProfile upserts a profile document inside the transaction
func (tx *storeTx) PutProfile(profile *model.Profile) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := tx.runner.profiles.ReplaceOne(tx.ctx, bson.M{"uid": profile.UID}, profile, opts); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// Ensure StoreTxRunner implements repository.TxRunner
var _ repository.TxRunner = (*StoreTxRunner)(nil)
