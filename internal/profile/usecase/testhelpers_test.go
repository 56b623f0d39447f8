package usecase

import (
	"context"
	"fmt"
	"sync"

	identitymodel "filmlog-backend/internal/identity/domain/model"
	identityrepo "filmlog-backend/internal/identity/domain/repository"
	"filmlog-backend/internal/profile/domain/model"
	"filmlog-backend/internal/profile/domain/repository"
	reviewmodel "filmlog-backend/internal/review/domain/model"
	reviewrepo "filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	"filmlog-backend/internal/shared/eventbus"
)

// memStore is an in-memory stand-in for the document store's transactional
// surface. RunTransaction serializes callers and discards staged writes when
// the function fails, mirroring abort semantics.
type memStore struct {
	mu             sync.Mutex
	reservations   map[string]*model.NameReservation
	profiles       map[string]*model.Profile
	failPutProfile bool
}

func newMemStore() *memStore {
	return &memStore{
		reservations: make(map[string]*model.NameReservation),
		profiles:     make(map[string]*model.Profile),
	}
}

func (s *memStore) RunTransaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:       s,
		putRes:      make(map[string]*model.NameReservation),
		deletedRes:  make(map[string]bool),
		putProfiles: make(map[string]*model.Profile),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for value := range tx.deletedRes {
		delete(s.reservations, value)
	}
	for value, res := range tx.putRes {
		s.reservations[value] = res
	}
	for uid, p := range tx.putProfiles {
		s.profiles[uid] = p
	}
	return nil
}

type memTx struct {
	store       *memStore
	putRes      map[string]*model.NameReservation
	deletedRes  map[string]bool
	putProfiles map[string]*model.Profile
}

func (tx *memTx) GetReservation(value string) (*model.NameReservation, error) {
	if res, ok := tx.putRes[value]; ok {
		return res, nil
	}
	if tx.deletedRes[value] {
		return nil, nil
	}
	return tx.store.reservations[value], nil
}

func (tx *memTx) PutReservation(res *model.NameReservation) error {
	tx.putRes[res.Value] = res
	return nil
}

func (tx *memTx) DeleteReservation(value string) error {
	delete(tx.putRes, value)
	tx.deletedRes[value] = true
	return nil
}

func (tx *memTx) PutProfile(p *model.Profile) error {
	if tx.store.failPutProfile {
		return fmt.Errorf("store write rejected")
	}
	copied := *p
	tx.putProfiles[p.UID] = &copied
	return nil
}

// memProfileRepo reads committed profiles from the backing memStore.
type memProfileRepo struct {
	store    *memStore
	getErr   error
	setCalls []setActivityCall
}

type setActivityCall struct {
	uid   string
	count int64
	tier  model.ActivityTier
}

func (r *memProfileRepo) Get(ctx context.Context, uid string) (*model.Profile, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.profiles[uid]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memProfileRepo) GetMany(ctx context.Context, uids []string) ([]*model.Profile, error) {
	if len(uids) > database.MaxInFanOut {
		return nil, fmt.Errorf("fan-out %d over limit", len(uids))
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*model.Profile
	for _, uid := range uids {
		if p, ok := r.store.profiles[uid]; ok {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memProfileRepo) Update(ctx context.Context, uid string, update repository.ProfileUpdate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.profiles[uid]
	if !ok {
		return repository.ErrProfileNotFound
	}
	if update.DisplayName != nil {
		p.DisplayName = *update.DisplayName
	}
	if update.Biography != nil {
		p.Biography = *update.Biography
	}
	if update.PhotoKey != nil {
		p.PhotoKey = *update.PhotoKey
	}
	return nil
}

func (r *memProfileRepo) SetActivity(ctx context.Context, uid string, count int64, tier model.ActivityTier) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.setCalls = append(r.setCalls, setActivityCall{uid: uid, count: count, tier: tier})
	if p, ok := r.store.profiles[uid]; ok {
		p.ReviewCount = count
		p.ActivityLevel = tier
	}
	return nil
}

// fakeIdentityProvider records provider interactions.
type fakeIdentityProvider struct {
	mu        sync.Mutex
	nextID    int
	emails    map[string]bool
	deleted   []string
	updates   map[string]identityrepo.IdentityUpdate
	createErr error
	deleteErr error
	updateErr error
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{
		emails:  make(map[string]bool),
		updates: make(map[string]identityrepo.IdentityUpdate),
	}
}

func (p *fakeIdentityProvider) CreateIdentity(ctx context.Context, email, password, displayName string) (*identitymodel.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.emails[email] {
		return nil, identityrepo.ErrEmailTaken
	}
	p.emails[email] = true
	p.nextID++
	return &identitymodel.Identity{
		ID:          fmt.Sprintf("identity-%d", p.nextID),
		Email:       email,
		DisplayName: displayName,
		Provider:    identitymodel.ProviderPassword,
	}, nil
}

func (p *fakeIdentityProvider) GetIdentity(ctx context.Context, id string) (*identitymodel.Identity, error) {
	return nil, identityrepo.ErrIdentityNotFound
}

func (p *fakeIdentityProvider) UpdateIdentity(ctx context.Context, id string, update identityrepo.IdentityUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updateErr != nil {
		return p.updateErr
	}
	p.updates[id] = update
	return nil
}

func (p *fakeIdentityProvider) DeleteIdentity(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *fakeIdentityProvider) deletedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}

// fakeReviewRepo serves counts, id lookups, and existence checks from maps.
type fakeReviewRepo struct {
	mu            sync.Mutex
	countByAuthor map[string]int64
	idsByAuthor   map[string][]string
	existing      map[string]bool
	existingCalls [][]string
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{
		countByAuthor: make(map[string]int64),
		idsByAuthor:   make(map[string][]string),
		existing:      make(map[string]bool),
	}
}

func (r *fakeReviewRepo) Create(ctx context.Context, review *reviewmodel.Review) error { return nil }

func (r *fakeReviewRepo) Get(ctx context.Context, id string) (*reviewmodel.Review, error) {
	return nil, reviewrepo.ErrReviewNotFound
}

func (r *fakeReviewRepo) List(ctx context.Context, q reviewrepo.ReviewListQuery) ([]*reviewmodel.Review, error) {
	return nil, nil
}

func (r *fakeReviewRepo) Count(ctx context.Context, authorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countByAuthor[authorID], nil
}

func (r *fakeReviewRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > database.MaxInFanOut {
		return nil, fmt.Errorf("fan-out %d over limit", len(ids))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.existingCalls = append(r.existingCalls, append([]string(nil), ids...))
	var out []string
	for _, id := range ids {
		if r.existing[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) IDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idsByAuthor[authorID], nil
}

func (r *fakeReviewRepo) IncrementLikeCount(ctx context.Context, id string, delta int64) error {
	return nil
}

// fakeCommentRepo serves comment refs by author.
type fakeCommentRepo struct {
	refsByAuthor map[string][]reviewmodel.CommentRef
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{refsByAuthor: make(map[string][]reviewmodel.CommentRef)}
}

func (r *fakeCommentRepo) Add(ctx context.Context, comment *reviewmodel.Comment) error { return nil }

func (r *fakeCommentRepo) IDsByReview(ctx context.Context, reviewID string) ([]string, error) {
	return nil, nil
}

func (r *fakeCommentRepo) RefsByAuthor(ctx context.Context, authorID string) ([]reviewmodel.CommentRef, error) {
	return r.refsByAuthor[authorID], nil
}

// fakeLikeRepo serves a fixed like list and records deletions.
type fakeLikeRepo struct {
	mu      sync.Mutex
	byUser  map[string][]reviewmodel.Like
	deleted []string
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{byUser: make(map[string][]reviewmodel.Like)}
}

func (r *fakeLikeRepo) Set(ctx context.Context, reviewID, userID string) (bool, error) {
	return true, nil
}

func (r *fakeLikeRepo) Unset(ctx context.Context, reviewID, userID string) (bool, error) {
	return true, nil
}

func (r *fakeLikeRepo) IDsByReview(ctx context.Context, reviewID string) ([]string, error) {
	return nil, nil
}

func (r *fakeLikeRepo) ByUser(ctx context.Context, userID string) ([]reviewmodel.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[userID], nil
}

func (r *fakeLikeRepo) Delete(ctx context.Context, likeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, likeID)
	return nil
}

func (r *fakeLikeRepo) deletedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

// fakeBatchWriter records applied batches and can fail a specific one.
type fakeBatchWriter struct {
	mu      sync.Mutex
	batches [][]reviewrepo.WriteOp
	failAt  int // 1-based batch index to fail, 0 disables
}

func newFakeBatchWriter() *fakeBatchWriter {
	return &fakeBatchWriter{}
}

func (w *fakeBatchWriter) Apply(ctx context.Context, ops []reviewrepo.WriteOp) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(ops) > database.MaxBatchWrites {
		return fmt.Errorf("batch of %d over limit", len(ops))
	}
	if w.failAt > 0 && len(w.batches)+1 == w.failAt {
		return fmt.Errorf("batch rejected")
	}
	w.batches = append(w.batches, append([]reviewrepo.WriteOp(nil), ops...))
	return nil
}

func (w *fakeBatchWriter) applied() [][]reviewrepo.WriteOp {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]reviewrepo.WriteOp(nil), w.batches...)
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

var _ repository.TxRunner = (*memStore)(nil)
var _ repository.ProfileRepository = (*memProfileRepo)(nil)
var _ identityrepo.IdentityProvider = (*fakeIdentityProvider)(nil)
var _ reviewrepo.ReviewRepository = (*fakeReviewRepo)(nil)
var _ reviewrepo.CommentRepository = (*fakeCommentRepo)(nil)
var _ reviewrepo.LikeRepository = (*fakeLikeRepo)(nil)
var _ reviewrepo.BatchWriter = (*fakeBatchWriter)(nil)
var _ eventbus.EventBusInterface = (*fakeBus)(nil)
