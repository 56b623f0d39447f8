package usecase

import (
	"time"

	"filmlog-backend/internal/profile/domain/model"
	"filmlog-backend/internal/profile/domain/repository"
)

// ReservationLedger enforces display-name uniqueness through reservation
// documents keyed by the reserved value. All of its methods run inside the
// single document-store transaction the caller provides, so the existence
// check and the write are atomic with respect to concurrent attempts.
type ReservationLedger struct{}

// NewReservationLedger creates a new reservation ledger
func NewReservationLedger() *ReservationLedger {
	return &ReservationLedger{}
}

// Reserve claims a display name for an owner. An existing reservation aborts
// the transaction with ErrNameTaken; nothing partial is left behind because
// the transaction never commits.
func (l *ReservationLedger) Reserve(tx repository.Tx, value, ownerID string) error {
	existing, err := tx.GetReservation(value)
	if err != nil {
		return err
	}
	if existing != nil {
		return repository.ErrNameTaken
	}

	return tx.PutReservation(&model.NameReservation{
		Value:      value,
		OwnerID:    ownerID,
		ReservedAt: time.Now(),
	})
}

// Release deletes the reservation for a value
func (l *ReservationLedger) Release(tx repository.Tx, value string) error {
	return tx.DeleteReservation(value)
}

// Swap releases the old value and reserves the new one inside the same
// transaction. Renaming a value to itself is a no-op.
func (l *ReservationLedger) Swap(tx repository.Tx, oldValue, newValue, ownerID string) error {
	if oldValue == newValue {
		return nil
	}
	if err := l.Release(tx, oldValue); err != nil {
		return err
	}
	return l.Reserve(tx, newValue, ownerID)
}
