package transaction

import (
	"fmt"

	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/storage"
)

//The machine only talks to the outside world through the interfaces below.
//Implementations live in the client (relay link, directory, dispatcher) and in
//the host world (materialization, decisions, notifications).

// Relay is the ordered message channel to the relay server.
type Relay interface {
	SendToServer(packet protocol.Packet) error
}

// Dispatcher runs a closure on the loop that owns the machine. Decision
// callbacks fire from arbitrary goroutines and are always posted through it.
type Dispatcher interface {
	Post(fn func())
}

// Directory resolves users with their current preferences. The entry for the
// local user reflects the local preferences.
type Directory interface {
	User(id protocol.UserID) (protocol.User, bool)
}

// Choice is a pending accept/decline question put to the human player.
type Choice struct {
	ID           protocol.TransactionID
	Text         string
	AcceptLabel  string
	DeclineLabel string
}

// DecisionService asks the player asynchronously. Exactly one of the callbacks
// is expected to fire, once, possibly much later.
type DecisionService interface {
	RequestChoice(choice Choice, onAccept func(), onDecline func())
}

type Position struct {
	X, Z int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Z)
}

// Entity is a live instance placed in a world.
type Entity interface {
	ID() string
	Label() string
	Position() Position
}

// OwnedEntity is a sender side entity handed to a transaction. Only the
// transaction settles it: Destroy once after an ACCEPTED confirmation,
// Release once after any other outcome.
type OwnedEntity interface {
	Entity
	Destroy() error
	Release()
}

type PlacementMode uint8

const (
	PlacementDropPod PlacementMode = iota
	PlacementTradeDrop
)

// Placement is the kind specific drop policy for materialized entities.
type Placement struct {
	Mode      PlacementMode
	OpenDelay int
	LeaveSlag bool
}

// World materializes a portable descriptor into a live, placed entity.
type World interface {
	MaterializeAndPlace(descriptor protocol.Descriptor, placement Placement) (Entity, error)
}

type Severity uint8

const (
	SeverityPositive Severity = iota
	SeverityNeutral
	SeverityNegative
)

func (s Severity) String() string {
	switch s {
	case SeverityPositive:
		return "positive"
	case SeverityNeutral:
		return "neutral"
	case SeverityNegative:
		return "negative"
	}
	return "unknown"
}

// Notification is user visible feedback. Letters carry a title and may point
// at a location in the world.
type Notification struct {
	Title    string
	Text     string
	Severity Severity
	Target   *Position
}

type Notifier interface {
	Notify(notification Notification)
}

// Salvage keeps envelopes that were accepted but could not be materialized.
type Salvage interface {
	WriteSalvage(entry storage.SalvageEntry) error
}
