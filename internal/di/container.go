package di

import (
	"context"
	"fmt"
	"sync"

	"filmlog-backend/internal/identity"
	identityconfig "filmlog-backend/internal/identity/config"
	"filmlog-backend/internal/profile"
	"filmlog-backend/internal/review"
	"filmlog-backend/internal/shared/cache"
	"filmlog-backend/internal/shared/database"
	"filmlog-backend/internal/shared/eventbus"
	"filmlog-backend/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// RedisConfig holds the cache invalidation publisher connection settings
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Container wires the application modules with proper lifecycle management
type Container struct {
	mu sync.Mutex

	// Module instances
	IdentityModule *identity.Module
	ProfileModule  *profile.Module
	ReviewModule   *review.Module

	// Shared infrastructure
	MongoClient *mongo.Client
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	EventBus    eventbus.EventBusInterface
	Logger      logger.Logger

	mongoCfg *database.MongoConfig
}

// NewContainer creates an empty DI container
func NewContainer(log logger.Logger) *Container {
	return &Container{Logger: log}
}

// InitializeInfrastructure connects the document store, the cache invalidation
// publisher, and the in-memory event bus.
func (c *Container) InitializeInfrastructure(ctx context.Context, redisCfg *RedisConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mongoCfg, err := database.LoadMongoConfig()
	if err != nil {
		return fmt.Errorf("failed to load mongo config: %w", err)
	}
	client, err := database.Connect(ctx, mongoCfg, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	c.mongoCfg = mongoCfg
	c.MongoClient = client
	c.MongoDB = database.Database(client, mongoCfg)

	c.EventBus = eventbus.NewEventBus(c.Logger)

	if redisCfg != nil {
		c.RedisClient = redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		invalidator := cache.NewRedisInvalidator(c.RedisClient, c.Logger)
		invalidator.Register(c.EventBus)
	}

	return nil
}

// InitializeModules wires the identity, profile, and review modules over the
// shared infrastructure.
func (c *Container) InitializeModules() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.MongoDB == nil {
		return fmt.Errorf("infrastructure must be initialized before modules")
	}

	identityCfg, err := identityconfig.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load identity config: %w", err)
	}
	identityModule, err := identity.NewModule(c.MongoDB, identityCfg)
	if err != nil {
		return fmt.Errorf("failed to create identity module: %w", err)
	}
	c.IdentityModule = identityModule

	reviewRepos, err := review.NewRepositories(c.MongoDB, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create review repositories: %w", err)
	}

	profileModule, err := profile.NewModule(c.MongoDB, identityModule.Provider(),
		reviewRepos, c.EventBus, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create profile module: %w", err)
	}
	c.ProfileModule = profileModule

	c.ReviewModule = review.NewModule(reviewRepos, profileModule.Repo(),
		profileModule.Propagator(), c.EventBus, c.Logger)

	c.Logger.Infof("Modules initialized")
	return nil
}

// Shutdown closes the shared connections
func (c *Container) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warnf("Failed to close redis client: %v", err)
		}
	}
	if c.MongoClient != nil {
		database.Disconnect(ctx, c.MongoClient, c.Logger)
	}
}
