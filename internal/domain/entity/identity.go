package entity

import "github.com/google/uuid"

// Identity is the viewer supplied by the auth middleware. The zero value is anonymous.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Anonymous is the identity of a viewer without a valid token.
var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.ID == uuid.Nil
}
