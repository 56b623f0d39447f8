package review

import (
	"fmt"

	profilerepo "filmlog-backend/internal/profile/domain/repository"
	"filmlog-backend/internal/review/adapter/persistence/mongodb"
	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/review/usecase"
	"filmlog-backend/internal/shared/eventbus"
	"filmlog-backend/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories bundles the review persistence adapters. They are built before
// the module itself because the profile module's propagator also fans out over
// them.
type Repositories struct {
	Reviews  repository.ReviewRepository
	Comments repository.CommentRepository
	Likes    repository.LikeRepository
	Batch    repository.BatchWriter
}

// NewRepositories creates the MongoDB-backed review repositories
func NewRepositories(db *mongo.Database, log logger.Logger) (*Repositories, error) {
	reviews, err := mongodb.NewReviewRepository(db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create review repository: %w", err)
	}
	comments, err := mongodb.NewCommentRepository(db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment repository: %w", err)
	}
	likes, err := mongodb.NewLikeRepository(db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create like repository: %w", err)
	}

	return &Repositories{
		Reviews:  reviews,
		Comments: comments,
		Likes:    likes,
		Batch:    mongodb.NewBatchWriter(db, log),
	}, nil
}

// Module bundles the review feed, write, and cascade usecases.
type Module struct {
	repos   *Repositories
	cascade usecase.CascadeUsecaseInterface
	feed    usecase.FeedUsecaseInterface
	reviews usecase.ReviewUsecaseInterface
}

// NewModule wires the review usecases over the shared repositories
func NewModule(
	repos *Repositories,
	profiles profilerepo.ProfileRepository,
	recomputer usecase.ActivityRecomputer,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *Module {
	cascade := usecase.NewCascadeUsecase(repos.Reviews, repos.Comments, repos.Likes, repos.Batch, log)

	return &Module{
		repos:   repos,
		cascade: cascade,
		feed:    usecase.NewFeedUsecase(repos.Reviews, profiles, log),
		reviews: usecase.NewReviewUsecase(repos.Reviews, repos.Comments, repos.Likes,
			profiles, cascade, recomputer, bus, log),
	}
}

// Feed returns the paginated feed usecase
func (m *Module) Feed() usecase.FeedUsecaseInterface {
	return m.feed
}

// Reviews returns the review write usecase
func (m *Module) Reviews() usecase.ReviewUsecaseInterface {
	return m.reviews
}

// Cascade returns the aggregate deletion usecase
func (m *Module) Cascade() usecase.CascadeUsecaseInterface {
	return m.cascade
}
