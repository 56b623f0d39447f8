package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity represents an identity record owned by the identity provider. The
// core reads and writes it only through the provider API; the matching profile
// document lives in the document store.
type Identity struct {
	ID           string             `json:"id" bson:"id,omitempty"`
	ObjectID     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	DisplayName  string             `json:"displayName" bson:"display_name"`
	PasswordHash string             `json:"-" bson:"password_hash,omitempty"`
	Provider     string             `json:"provider" bson:"provider"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// Identity provider kinds
const (
	ProviderPassword = "password"
	ProviderSocial   = "social"
)
