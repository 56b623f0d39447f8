package mongodb

import (
	"context"
	"fmt"

	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BatchWriter implements repository.BatchWriter using MongoDB bulk writes,
// grouped per target collection.
type BatchWriter struct {
	db     *mongo.Database
	logger logger.Logger
}

// NewBatchWriter creates a new MongoDB batch writer
func NewBatchWriter(db *mongo.Database, log logger.Logger) *BatchWriter {
	return &BatchWriter{
		db:     db,
		logger: log.WithComponent("batch_writer"),
	}
}

// Apply commits one batch of write operations. Batches over the store's
// per-request operation limit are rejected; callers chunk above this layer.
func (w *BatchWriter) Apply(ctx context.Context, ops []repository.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > database.MaxBatchWrites {
		return fmt.Errorf("batch of %d operations exceeds limit of %d", len(ops), database.MaxBatchWrites)
	}

	grouped := make(map[string][]mongo.WriteModel)
	for i, op := range ops {
		wm, err := toWriteModel(op)
		if err != nil {
			return fmt.Errorf("operation %d invalid: %w", i, err)
		}
		grouped[op.Collection] = append(grouped[op.Collection], wm)
	}

	for collection, models := range grouped {
		if _, err := w.db.Collection(collection).BulkWrite(ctx, models); err != nil {
			return fmt.Errorf("bulk write to %s failed: %w", collection, err)
		}
	}

	w.logger.Debugf("Batch of %d operations committed", len(ops))
	return nil
}

func toWriteModel(op repository.WriteOp) (mongo.WriteModel, error) {
	filter := bson.M{"id": op.DocID}

	switch op.Kind {
	case repository.WriteOpDelete:
		return mongo.NewDeleteOneModel().SetFilter(filter), nil
	case repository.WriteOpUpdate:
		if len(op.Set) == 0 {
			return nil, fmt.Errorf("update operation carries no fields")
		}
		return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(bson.M{"$set": op.Set}), nil
	default:
		return nil, fmt.Errorf("unsupported write operation kind: %s", op.Kind)
	}
}

// Ensure BatchWriter implements repository.BatchWriter
var _ repository.BatchWriter = (*BatchWriter)(nil)
