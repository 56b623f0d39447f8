package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	profilemodel "filmlog-backend/internal/profile/domain/model"
	profilerepo "filmlog-backend/internal/profile/domain/repository"
	"filmlog-backend/internal/review/domain/model"
	"filmlog-backend/internal/review/domain/repository"
	"filmlog-backend/internal/shared/database"
	apperrors "filmlog-backend/internal/shared/errors"
	"filmlog-backend/internal/shared/logger"
)

const (
	// DefaultPageSize applies when the caller does not pick a page size.
	DefaultPageSize = 10

	// SearchWindowSize caps how many recent reviews a free-text search scans.
	// The store has no text index, so search filters in application memory
	// over this bounded window.
	SearchWindowSize = 1000

	// FallbackDisplayName labels feed items whose author can no longer be
	// resolved and whose snapshot carries no name either.
	FallbackDisplayName = "Unknown user"
)

// FeedUsecaseInterface defines the paginated feed read operation
type FeedUsecaseInterface interface {
	FetchPage(ctx context.Context, q FeedQuery) (*FeedPage, error)
}

// FeedQuery selects one page of the review feed
type FeedQuery struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	AuthorID   string `json:"authorId,omitempty"`
	SearchText string `json:"searchText,omitempty"`
}

// FeedPage is one page of hydrated feed items
type FeedPage struct {
	Items      []model.ReviewView `json:"items"`
	TotalPages int                `json:"totalPages"`
}

// FeedUsecase reads the review feed. Plain pagination is pushed down to the
// store's offset/limit; free-text search scans a bounded window in memory.
// Both paths hydrate the page against live profiles before returning.
type FeedUsecase struct {
	reviews  repository.ReviewRepository
	profiles profilerepo.ProfileRepository
	logger   logger.Logger
}

// NewFeedUsecase creates a new feed usecase
func NewFeedUsecase(
	reviews repository.ReviewRepository,
	profiles profilerepo.ProfileRepository,
	log logger.Logger,
) *FeedUsecase {
	return &FeedUsecase{
		reviews:  reviews,
		profiles: profiles,
		logger:   log.WithComponent("feed_usecase"),
	}
}

// FetchPage returns the requested page of the feed plus the total page count
func (uc *FeedUsecase) FetchPage(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}

	if strings.TrimSpace(q.SearchText) != "" {
		return uc.fetchSearchPage(ctx, q)
	}
	return uc.fetchPlainPage(ctx, q)
}

// fetchPlainPage paginates with the store's native count plus offset/limit.
func (uc *FeedUsecase) fetchPlainPage(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	total, err := uc.reviews.Count(ctx, q.AuthorID)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to count reviews").WithCause(err)
	}

	reviews, err := uc.reviews.List(ctx, repository.ReviewListQuery{
		AuthorID: q.AuthorID,
		Offset:   (q.Page - 1) * q.PageSize,
		Limit:    q.PageSize,
	})
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list reviews").WithCause(err)
	}

	items, err := uc.hydrate(ctx, reviews)
	if err != nil {
		return nil, err
	}
	return &FeedPage{
		Items:      items,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

// fetchSearchPage filters a bounded window of recent reviews in memory, then
// pages over the matched set.
func (uc *FeedUsecase) fetchSearchPage(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	window, err := uc.reviews.List(ctx, repository.ReviewListQuery{
		AuthorID: q.AuthorID,
		Limit:    SearchWindowSize,
	})
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list reviews").WithCause(err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.SearchText))
	matched := make([]*model.Review, 0, len(window))
	for _, review := range window {
		if matchesSearch(review, needle) {
			matched = append(matched, review)
		}
	}

	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	items, err := uc.hydrate(ctx, matched[start:end])
	if err != nil {
		return nil, err
	}
	return &FeedPage{
		Items:      items,
		TotalPages: totalPages(int64(len(matched)), q.PageSize),
	}, nil
}

// matchesSearch reports whether the lowercase needle occurs in the movie
// title, review title, or review content.
func matchesSearch(review *model.Review, needle string) bool {
	return strings.Contains(strings.ToLower(review.Details.MovieTitle), needle) ||
		strings.Contains(strings.ToLower(review.Details.Title), needle) ||
		strings.Contains(strings.ToLower(review.Details.Content), needle)
}

// hydrate overlays live profile data onto the page's denormalized author
// snapshots. Profile lookups run concurrently, one goroutine per "value in
// set" chunk, and a missing profile falls back to the stored snapshot.
func (uc *FeedUsecase) hydrate(ctx context.Context, reviews []*model.Review) ([]model.ReviewView, error) {
	authors, err := uc.lookupAuthors(ctx, distinctAuthorIDs(reviews))
	if err != nil {
		return nil, err
	}

	items := make([]model.ReviewView, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, buildView(review, authors[review.User.UID]))
	}
	return items, nil
}

func distinctAuthorIDs(reviews []*model.Review) []string {
	seen := make(map[string]bool, len(reviews))
	var ids []string
	for _, review := range reviews {
		uid := review.User.UID
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		ids = append(ids, uid)
	}
	return ids
}

func (uc *FeedUsecase) lookupAuthors(ctx context.Context, ids []string) (map[string]*profilemodel.Profile, error) {
	authors := make(map[string]*profilemodel.Profile, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, chunk := range chunkStrings(ids, database.MaxInFanOut) {
		wg.Add(1)
		go func(uids []string) {
			defer wg.Done()
			profiles, err := uc.profiles.GetMany(ctx, uids)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, profile := range profiles {
				authors[profile.UID] = profile
			}
		}(chunk)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, apperrors.NewUnavailableError("failed to resolve authors").WithCause(firstErr)
	}
	return authors, nil
}

// buildView produces the wire item: live author data when available, the
// stored snapshot otherwise, normalized like count and RFC 3339 timestamps.
func buildView(review *model.Review, author *profilemodel.Profile) model.ReviewView {
	view := model.ReviewView{
		ID: review.ID,
		Author: model.AuthorView{
			UID:           review.User.UID,
			DisplayName:   review.User.DisplayName,
			PhotoKey:      review.User.PhotoKey,
			ActivityLevel: review.User.ActivityLevel,
		},
		MovieID:    review.Details.MovieID,
		MovieTitle: review.Details.MovieTitle,
		Title:      review.Details.Title,
		Rating:     review.Details.Rating,
		Content:    review.Details.Content,
		LikeCount:  review.NormalizedLikeCount(),
		CreatedAt:  review.Details.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  review.Details.UpdatedAt.Format(time.RFC3339),
	}

	if author != nil {
		view.Author.DisplayName = author.DisplayName
		view.Author.PhotoKey = author.PhotoKey
		view.Author.ActivityLevel = string(author.ActivityLevel)
	}
	if view.Author.DisplayName == "" {
		view.Author.DisplayName = FallbackDisplayName
	}
	return view
}

func totalPages(total int64, pageSize int) int {
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for len(values) > 0 {
		n := size
		if len(values) < n {
			n = len(values)
		}
		chunks = append(chunks, values[:n])
		values = values[n:]
	}
	return chunks
}

// Ensure FeedUsecase implements FeedUsecaseInterface
var _ FeedUsecaseInterface = (*FeedUsecase)(nil)
