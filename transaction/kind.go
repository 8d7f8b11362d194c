package transaction

import (
	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
)

// Kind supplies everything that differs between transferred entity types.
// The machine drives the shared phases and asks the kind for its policy flag,
// its prompt, its materialization and its notification texts.
type Kind interface {
	Name() protocol.Kind
	// Allows evaluates the kind's own preference flag.
	Allows(preferences protocol.Preferences) bool
	Prompt(tx *Transaction) string
	Placement() Placement
	// Materialize opens the envelope and places the entity, failing with a
	// *MaterializationError when that is not possible.
	Materialize(tx *Transaction, world World) (Entity, error)
	// Notification returns the feedback for tx.State on the given side, or
	// false when that outcome is silent.
	Notification(tx *Transaction, side Side, placed Entity) (Notification, bool)
}

// Kinds is a lookup of the kinds a peer or relay understands.
type Kinds map[protocol.Kind]Kind

func NewKinds(kinds ...Kind) Kinds {
	lookup := make(Kinds, len(kinds))
	for _, kind := range kinds {
		lookup[kind.Name()] = kind
	}
	return lookup
}

// DefaultKinds are the kinds shipped with the exchange.
func DefaultKinds() Kinds {
	return NewKinds(ColonistKind{}, ItemKind{})
}

func (kinds Kinds) Lookup(name protocol.Kind) (Kind, error) {
	kind, ok := kinds[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%v", name)
	}
	return kind, nil
}

// openDescriptor is the materialization prologue shared by the kinds.
func openDescriptor(tx *Transaction) (protocol.Descriptor, error) {
	descriptor, err := tx.Envelope.Open()
	if err != nil {
		return nil, materializationError(tx, err)
	}
	if err := descriptor.Validate(); err != nil {
		return nil, materializationError(tx, err)
	}
	return descriptor, nil
}

func place(tx *Transaction, world World, descriptor protocol.Descriptor, placement Placement) (Entity, error) {
	if world == nil {
		return nil, materializationError(tx, errors.New("no world to place into"))
	}
	entity, err := world.MaterializeAndPlace(descriptor, placement)
	if err != nil {
		return nil, materializationError(tx, err)
	}
	return entity, nil
}
