package database

import (
	"context"
	"fmt"
	"time"

	"filmlog-backend/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig holds configuration for the document store connection
type MongoConfig struct {
	URI               string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName      string        `env:"MONGODB_DATABASE" envDefault:"filmlog"`
	ConnectionTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"30s"`
	MaxPoolSize       uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"50"`
	MinPoolSize       uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"2"`
}

// LoadMongoConfig loads the document store configuration from the environment.
func LoadMongoConfig() (*MongoConfig, error) {
	cfg := &MongoConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load mongodb configuration: %w", err)
	}
	return cfg, nil
}

// Connect establishes and verifies the MongoDB connection used as the
// document store behind every persistence adapter.
func Connect(ctx context.Context, cfg *MongoConfig, log logger.Logger) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.WithComponent("database").Infof("MongoDB connection established (db=%s)", cfg.DatabaseName)
	return client, nil
}

// Database returns the application database handle for a connected client.
func Database(client *mongo.Client, cfg *MongoConfig) *mongo.Database {
	return client.Database(cfg.DatabaseName)
}

// Disconnect closes the client, logging instead of failing on shutdown errors.
func Disconnect(ctx context.Context, client *mongo.Client, log logger.Logger) {
	if err := client.Disconnect(ctx); err != nil {
		log.WithComponent("database").Errorf("Failed to disconnect MongoDB: %v", err)
	}
}
