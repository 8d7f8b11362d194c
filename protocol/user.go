package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

type UserID string

func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// Preferences are owned by each peer and mirrored by the relay. They are read
// fresh by every transaction phase and never cached across a decision.
type Preferences struct {
	ReceiveColonists bool
	ReceiveItems     bool
}

func DefaultPreferences() Preferences {
	return Preferences{ReceiveColonists: true, ReceiveItems: true}
}

// User is an opaque handle of a participant, not a full profile.
type User struct {
	ID          UserID
	Name        string
	Preferences Preferences
}

func (user User) String() string {
	return fmt.Sprintf("%v (%v)", user.Name, user.ID)
}
