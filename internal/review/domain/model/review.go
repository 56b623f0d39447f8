package model

import "time"

// UserSnapshot is the denormalized author snapshot written onto reviews at
// creation time. It drifts from the live profile until the propagator
// re-syncs it; readers overlay fresher data during hydration.
type UserSnapshot struct {
	UID           string `json:"uid" bson:"uid"`
	DisplayName   string `json:"displayName" bson:"display_name"`
	PhotoKey      string `json:"photoKey,omitempty" bson:"photo_key,omitempty"`
	ActivityLevel string `json:"activityLevel,omitempty" bson:"activity_level,omitempty"`
}

// ReviewDetails is the nested review payload. LikeCount here is the legacy
// location; the top-level field on Review supersedes it.
type ReviewDetails struct {
	MovieID    string    `json:"movieId" bson:"movie_id"`
	MovieTitle string    `json:"movieTitle" bson:"movie_title"`
	Title      string    `json:"title" bson:"title"`
	Rating     int       `json:"rating" bson:"rating"`
	Content    string    `json:"content" bson:"content"`
	LikeCount  int64     `json:"likeCount" bson:"like_count"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// Review is an aggregate root; its comments and likes live in subcollections
// deleted together with it.
type Review struct {
	ID      string        `json:"id" bson:"id"`
	User    UserSnapshot  `json:"user" bson:"user"`
	Details ReviewDetails `json:"review" bson:"review"`

	// LikeCount is the newer top-level counter. When present it wins over the
	// legacy nested field.
	LikeCount *int64 `json:"like_count,omitempty" bson:"top_like_count,omitempty"`
}

// NormalizedLikeCount resolves the like count across both historical
// representations, defaulting to 0.
func (r *Review) NormalizedLikeCount() int64 {
	if r.LikeCount != nil {
		return *r.LikeCount
	}
	return r.Details.LikeCount
}

// Comment is a subcollection document of a review, carrying the same
// denormalized author snapshot pattern as the review itself.
type Comment struct {
	ID            string    `json:"id" bson:"id"`
	ReviewID      string    `json:"reviewId" bson:"review_id"`
	AuthorID      string    `json:"authorId" bson:"author_id"`
	DisplayName   string    `json:"displayName" bson:"display_name"`
	PhotoKey      string    `json:"photoKey,omitempty" bson:"photo_key,omitempty"`
	ActivityLevel string    `json:"activityLevel,omitempty" bson:"activity_level,omitempty"`
	Content       string    `json:"content" bson:"content"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// Like is a subcollection document keyed by the liker id: its existence means
// "this user likes this review".
type Like struct {
	ID        string    `json:"id" bson:"id"`
	ReviewID  string    `json:"reviewId" bson:"review_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// LikeDocID builds the deterministic like document id for a (review, user)
// pair, which makes set/unset idempotent.
func LikeDocID(reviewID, userID string) string {
	return reviewID + "_" + userID
}

// CommentRef identifies a comment document for batched updates.
type CommentRef struct {
	ReviewID  string `bson:"review_id"`
	CommentID string `bson:"id"`
}

// AuthorView is the hydrated author block on a feed item.
type AuthorView struct {
	UID           string `json:"uid"`
	DisplayName   string `json:"displayName"`
	PhotoKey      string `json:"photoKey,omitempty"`
	ActivityLevel string `json:"activityLevel,omitempty"`
}

// ReviewView is the wire-portable feed item: hydrated author data, normalized
// like count, RFC 3339 timestamps.
type ReviewView struct {
	ID         string     `json:"id"`
	Author     AuthorView `json:"author"`
	MovieID    string     `json:"movieId"`
	MovieTitle string     `json:"movieTitle"`
	Title      string     `json:"title"`
	Rating     int        `json:"rating"`
	Content    string     `json:"content"`
	LikeCount  int64      `json:"likeCount"`
	CreatedAt  string     `json:"createdAt"`
	UpdatedAt  string     `json:"updatedAt"`
}
