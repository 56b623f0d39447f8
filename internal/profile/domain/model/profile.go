package model

import "time"

// ActivityTier is a coarse-grained label derived from a user's review count.
// It is denormalized onto reviews and comments for display, so changing it
// triggers a propagation fan-out.
type ActivityTier string

const (
	TierNovice    ActivityTier = "novice"
	TierReviewer  ActivityTier = "reviewer"
	TierCritic    ActivityTier = "critic"
	TierCinephile ActivityTier = "cinephile"
)

// Ascending review-count thresholds, one per tier.
var tierThresholds = []struct {
	min  int64
	tier ActivityTier
}{
	{0, TierNovice},
	{5, TierReviewer},
	{20, TierCritic},
	{50, TierCinephile},
}

// TierForReviewCount computes the activity tier for a review count.
func TierForReviewCount(count int64) ActivityTier {
	tier := TierNovice
	for _, t := range tierThresholds {
		if count >= t.min {
			tier = t.tier
		}
	}
	return tier
}

// Profile is the document-store record matching an identity. The two are
// created by the provisioning saga and must never exist independently in
// steady state.
type Profile struct {
	UID           string       `json:"uid" bson:"uid"`
	DisplayName   string       `json:"displayName" bson:"display_name"`
	Biography     string       `json:"biography,omitempty" bson:"biography,omitempty"`
	PhotoKey      string       `json:"photoKey,omitempty" bson:"photo_key,omitempty"`
	Provider      string       `json:"provider" bson:"provider"`
	ActivityLevel ActivityTier `json:"activityLevel" bson:"activity_level"`
	ReviewCount   int64        `json:"reviewCount" bson:"review_count"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" bson:"updated_at"`
}
