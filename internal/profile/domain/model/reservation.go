package model

import "time"

// NameReservation guards the uniqueness of a chosen display name. The document
// is keyed by the reserved value itself; its existence is definitionally "this
// name is taken".
type NameReservation struct {
	Value      string    `json:"value" bson:"value"`
	OwnerID    string    `json:"ownerId" bson:"owner_id"`
	ReservedAt time.Time `json:"reservedAt" bson:"reserved_at"`
}
