package cache

import (
	"context"
	"encoding/json"
	"time"

	"filmlog-backend/internal/shared/eventbus"
	"filmlog-backend/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// invalidationChannel is the Redis pub/sub channel external list-view caches
// subscribe to.
const invalidationChannel = "filmlog:cache:invalidations"

// InvalidationMessage is the wire payload published for every successful write.
type InvalidationMessage struct {
	EventType string    `json:"eventType"`
	Paths     []string  `json:"paths"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisInvalidator forwards write-path change notifications to Redis so that
// externally cached list views can be refreshed. Delivery is fire-and-forget:
// the triggering request never waits on it and failures are only logged.
type RedisInvalidator struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisInvalidator creates a Redis-backed cache invalidation publisher
func NewRedisInvalidator(client *redis.Client, log logger.Logger) *RedisInvalidator {
	return &RedisInvalidator{
		client: client,
		logger: log,
	}
}

// Register subscribes the invalidator to every write-path event type on the bus.
func (r *RedisInvalidator) Register(bus eventbus.EventBusInterface) {
	for _, eventType := range []string{
		eventbus.EventTypeProfileCreated,
		eventbus.EventTypeProfileUpdated,
		eventbus.EventTypeReviewCreated,
		eventbus.EventTypeReviewDeleted,
		eventbus.EventTypeReviewLiked,
		eventbus.EventTypeCommentAdded,
	} {
		bus.Subscribe(eventType, r.handleEvent)
	}
}

// handleEvent publishes the changed paths carried by a write-path event.
func (r *RedisInvalidator) handleEvent(ctx context.Context, event eventbus.Event) error {
	changed, ok := event.Data().(eventbus.ChangedPaths)
	if !ok {
		r.logger.Warn("Invalidation event carries no changed paths",
			zap.String("eventType", event.Type()))
		return nil
	}

	msg := InvalidationMessage{
		EventType: event.Type(),
		Paths:     changed.Paths,
		Source:    event.Source(),
		Timestamp: event.Timestamp(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("Failed to serialize invalidation message",
			zap.String("eventType", event.Type()),
			zap.Error(err))
		return err
	}

	if err := r.client.Publish(ctx, invalidationChannel, payload).Err(); err != nil {
		r.logger.Error("Failed to publish cache invalidation",
			zap.String("eventType", event.Type()),
			zap.Error(err))
		return err
	}

	r.logger.Debug("Cache invalidation published",
		zap.String("eventType", event.Type()),
		zap.Int("paths", len(changed.Paths)))
	return nil
}
