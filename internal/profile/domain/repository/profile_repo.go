package repository

import (
	"context"
	"errors"

	"filmlog-backend/internal/profile/domain/model"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNameTaken       = errors.New("display name is already in use")
)

// Tx is the narrow view of a single document-store transaction handed to the
// reservation ledger and the provisioning saga. Reads and writes through it
// are atomic with respect to concurrent transactions on the same documents.
type Tx interface {
	// GetReservation returns nil when no reservation exists for the value.
	GetReservation(value string) (*model.NameReservation, error)
	PutReservation(reservation *model.NameReservation) error
	DeleteReservation(value string) error
	PutProfile(profile *model.Profile) error
}

// TxRunner executes a function inside a document-store transaction. The
// transaction never commits when the function returns an error, so no partial
// state is left behind.
type TxRunner interface {
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// ProfileUpdate carries mutable profile fields. Nil means "leave unchanged".
type ProfileUpdate struct {
	DisplayName *string
	Biography   *string
	PhotoKey    *string
}

// ProfileRepository defines persistence operations for profile documents.
type ProfileRepository interface {
	Get(ctx context.Context, uid string) (*model.Profile, error)

	// GetMany resolves at most database.MaxInFanOut profiles in one "value in
	// set" query. Callers owning larger id lists must chunk.
	GetMany(ctx context.Context, uids []string) ([]*model.Profile, error)

	Update(ctx context.Context, uid string, update ProfileUpdate) error

	// SetActivity stores the recomputed review count and activity tier.
	SetActivity(ctx context.Context, uid string, reviewCount int64, tier model.ActivityTier) error
}
