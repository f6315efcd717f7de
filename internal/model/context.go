package model

import "github.com/google/uuid"

// AuthContext is the validated identity a request runs under. It is produced
// by the key validator, passed explicitly into every tide operation and never
// persisted. Business logic must not construct one ad hoc.
type AuthContext struct {
	UserID   uuid.UUID
	KeyLabel string
}

// Valid reports whether the context carries a real identity.
func (a AuthContext) Valid() bool {
	return a.UserID != uuid.Nil
}
