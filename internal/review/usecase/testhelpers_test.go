package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	profilemodel "filmlog-backend/internal/profile/domain/model"
	profilerepo "filmlog-backend/internal/profile/domain/repository"
	"filmlog-backend/internal/review/domain/model"
	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	"filmlog-backend/internal/shared/eventbus"
)

// docStore is an in-memory stand-in for the three review collections. The
// batch writer applies deletes and updates against it so cascade tests observe
// real document removal.
type docStore struct {
	mu       sync.Mutex
	reviews  map[string]*model.Review
	comments map[string]*model.Comment
	likes    map[string]*model.Like
	batches  [][]repository.WriteOp
	failAt   int // 1-based batch index to fail, 0 disables
}

func newDocStore() *docStore {
	return &docStore{
		reviews:  make(map[string]*model.Review),
		comments: make(map[string]*model.Comment),
		likes:    make(map[string]*model.Like),
	}
}

func (s *docStore) appliedBatches() [][]repository.WriteOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]repository.WriteOp(nil), s.batches...)
}

// storeReviewRepo implements repository.ReviewRepository over the docStore.
type storeReviewRepo struct {
	store *docStore
}

func (r *storeReviewRepo) Create(ctx context.Context, review *model.Review) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *review
	r.store.reviews[review.ID] = &copied
	return nil
}

func (r *storeReviewRepo) Get(ctx context.Context, id string) (*model.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	review, ok := r.store.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	copied := *review
	return &copied, nil
}

func (r *storeReviewRepo) sorted(authorID string) []*model.Review {
	var out []*model.Review
	for _, review := range r.store.reviews {
		if authorID == "" || review.User.UID == authorID {
			copied := *review
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Details.CreatedAt.After(out[j].Details.CreatedAt)
	})
	return out
}

func (r *storeReviewRepo) List(ctx context.Context, q repository.ReviewListQuery) ([]*model.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.sorted(q.AuthorID)
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *storeReviewRepo) Count(ctx context.Context, authorID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.sorted(authorID))), nil
}

func (r *storeReviewRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > database.MaxInFanOut {
		return nil, fmt.Errorf("fan-out %d over limit", len(ids))
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []string
	for _, id := range ids {
		if _, ok := r.store.reviews[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *storeReviewRepo) IDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []string
	for id, review := range r.store.reviews {
		if review.User.UID == authorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *storeReviewRepo) IncrementLikeCount(ctx context.Context, id string, delta int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	review, ok := r.store.reviews[id]
	if !ok {
		return repository.ErrReviewNotFound
	}
	current := review.NormalizedLikeCount() + delta
	review.LikeCount = &current
	return nil
}

// storeCommentRepo implements repository.CommentRepository over the docStore.
type storeCommentRepo struct {
	store *docStore
}

func (r *storeCommentRepo) Add(ctx context.Context, comment *model.Comment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *comment
	r.store.comments[comment.ID] = &copied
	return nil
}

func (r *storeCommentRepo) IDsByReview(ctx context.Context, reviewID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []string
	for id, comment := range r.store.comments {
		if comment.ReviewID == reviewID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *storeCommentRepo) RefsByAuthor(ctx context.Context, authorID string) ([]model.CommentRef, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var refs []model.CommentRef
	for id, comment := range r.store.comments {
		if comment.AuthorID == authorID {
			refs = append(refs, model.CommentRef{ReviewID: comment.ReviewID, CommentID: id})
		}
	}
	return refs, nil
}

// storeLikeRepo implements repository.LikeRepository over the docStore.
type storeLikeRepo struct {
	store *docStore
}

func (r *storeLikeRepo) Set(ctx context.Context, reviewID, userID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := model.LikeDocID(reviewID, userID)
	if _, ok := r.store.likes[id]; ok {
		return false, nil
	}
	r.store.likes[id] = &model.Like{ID: id, ReviewID: reviewID, UserID: userID}
	return true, nil
}

func (r *storeLikeRepo) Unset(ctx context.Context, reviewID, userID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := model.LikeDocID(reviewID, userID)
	if _, ok := r.store.likes[id]; !ok {
		return false, nil
	}
	delete(r.store.likes, id)
	return true, nil
}

func (r *storeLikeRepo) IDsByReview(ctx context.Context, reviewID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []string
	for id, like := range r.store.likes {
		if like.ReviewID == reviewID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *storeLikeRepo) ByUser(ctx context.Context, userID string) ([]model.Like, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var likes []model.Like
	for _, like := range r.store.likes {
		if like.UserID == userID {
			likes = append(likes, *like)
		}
	}
	return likes, nil
}

func (r *storeLikeRepo) Delete(ctx context.Context, likeID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.likes, likeID)
	return nil
}

// storeBatchWriter applies deletes and updates against the docStore.
type storeBatchWriter struct {
	store *docStore
}

func (w *storeBatchWriter) Apply(ctx context.Context, ops []repository.WriteOp) error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if len(ops) > database.MaxBatchWrites {
		return fmt.Errorf("batch of %d over limit", len(ops))
	}
	if w.store.failAt > 0 && len(w.store.batches)+1 == w.store.failAt {
		return fmt.Errorf("batch rejected")
	}
	for _, op := range ops {
		if op.Kind != repository.WriteOpDelete {
			continue
		}
		switch op.Collection {
		case repository.CollectionReviews:
			delete(w.store.reviews, op.DocID)
		case repository.CollectionComments:
			delete(w.store.comments, op.DocID)
		case repository.CollectionLikes:
			delete(w.store.likes, op.DocID)
		}
	}
	w.store.batches = append(w.store.batches, append([]repository.WriteOp(nil), ops...))
	return nil
}

// fakeProfileRepo serves profiles from a map, recording fan-out chunks.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*profilemodel.Profile
	calls    [][]string
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*profilemodel.Profile)}
}

func (r *fakeProfileRepo) Get(ctx context.Context, uid string) (*profilemodel.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return nil, profilerepo.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProfileRepo) GetMany(ctx context.Context, uids []string) ([]*profilemodel.Profile, error) {
	if len(uids) > database.MaxInFanOut {
		return nil, fmt.Errorf("fan-out %d over limit", len(uids))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), uids...))
	var out []*profilemodel.Profile
	for _, uid := range uids {
		if p, ok := r.profiles[uid]; ok {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, uid string, update profilerepo.ProfileUpdate) error {
	return nil
}

func (r *fakeProfileRepo) SetActivity(ctx context.Context, uid string, count int64, tier profilemodel.ActivityTier) error {
	return nil
}

func (r *fakeProfileRepo) recordedCalls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

// fakeRecomputer records activity recomputation triggers.
type fakeRecomputer struct {
	mu   sync.Mutex
	uids []string
}

func (r *fakeRecomputer) RecomputeActivity(ctx context.Context, uid string) (profilemodel.ActivityTier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uids = append(r.uids, uid)
	return profilemodel.TierNovice, nil
}

// fakeBus records published events.
type fakeBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *fakeBus) Subscribe(eventType string, handler eventbus.Handler) {}
func (b *fakeBus) Unsubscribe(eventType string)                         {}
func (b *fakeBus) GetSubscriberCount(eventType string) int              { return 0 }

func (b *fakeBus) Publish(ctx context.Context, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBus) PublishAndForget(ctx context.Context, event eventbus.Event) {
	_ = b.Publish(ctx, event)
}

var _ repository.ReviewRepository = (*storeReviewRepo)(nil)
var _ repository.CommentRepository = (*storeCommentRepo)(nil)
var _ repository.LikeRepository = (*storeLikeRepo)(nil)
var _ repository.BatchWriter = (*storeBatchWriter)(nil)
var _ profilerepo.ProfileRepository = (*fakeProfileRepo)(nil)
var _ ActivityRecomputer = (*fakeRecomputer)(nil)
var _ eventbus.EventBusInterface = (*fakeBus)(nil)
