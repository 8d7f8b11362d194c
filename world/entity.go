package world

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/transaction"
)

// Pawn is a colonist living on the map.
type Pawn struct {
	colony     *Colony
	id         string
	descriptor *protocol.ColonistDescriptor
	position   transaction.Position
	inTransit  bool
}

func (p *Pawn) ID() string                     { return p.id }
func (p *Pawn) Label() string                  { return p.descriptor.DisplayName() }
func (p *Pawn) Position() transaction.Position { return p.position }

func (p *Pawn) Descriptor() *protocol.ColonistDescriptor {
	return p.descriptor
}

func (p *Pawn) InTransit() bool {
	p.colony.mutex.Lock()
	defer p.colony.mutex.Unlock()
	return p.inTransit
}

// Destroy removes the pawn from the map after it left for another colony.
func (p *Pawn) Destroy() error {
	p.colony.mutex.Lock()
	defer p.colony.mutex.Unlock()

	if _, ok := p.colony.pawns[p.id]; !ok {
		return errors.Wrapf(ErrEntityNotFound, "colonist %v", p.id)
	}
	delete(p.colony.pawns, p.id)
	if p.colony.occupied[p.position] == p.id {
		delete(p.colony.occupied, p.position)
	}
	return nil
}

// Release makes the pawn available again after a transfer that did not happen.
func (p *Pawn) Release() {
	p.colony.mutex.Lock()
	p.inTransit = false
	p.colony.mutex.Unlock()
}

func (p *Pawn) String() string {
	return fmt.Sprintf("%v %v at %v", p.id, p.Label(), p.position)
}

// Stack is a pile of one thing. Shipments reserve part of it until they land.
type Stack struct {
	colony   *Colony
	id       string
	thing    protocol.ThingDescriptor
	position transaction.Position
	reserved int
}

func (s *Stack) ID() string                     { return s.id }
func (s *Stack) Label() string                  { return s.thing.String() }
func (s *Stack) Position() transaction.Position { return s.position }

func (s *Stack) Thing() protocol.ThingDescriptor {
	s.colony.mutex.Lock()
	defer s.colony.mutex.Unlock()
	return s.thing
}

func (s *Stack) Available() int {
	s.colony.mutex.Lock()
	defer s.colony.mutex.Unlock()
	return s.available()
}

func (s *Stack) available() int {
	return s.thing.StackCount - s.reserved
}

// Shipment is the sender side handle over reserved parts of stacks.
type Shipment struct {
	colony   *Colony
	id       string
	label    string
	position transaction.Position
	counts   map[string]int
}

func (s *Shipment) ID() string                     { return s.id }
func (s *Shipment) Label() string                  { return s.label }
func (s *Shipment) Position() transaction.Position { return s.position }

// Destroy takes the reserved things off their stacks, removing emptied stacks.
func (s *Shipment) Destroy() error {
	s.colony.mutex.Lock()
	defer s.colony.mutex.Unlock()

	var missing []string
	for id, count := range s.counts {
		stack, ok := s.colony.stacks[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		stack.reserved -= count
		stack.thing.StackCount -= count
		if stack.thing.StackCount <= 0 {
			delete(s.colony.stacks, id)
		}
	}
	s.counts = nil
	if len(missing) > 0 {
		return errors.Wrapf(ErrEntityNotFound, "stacks %v", missing)
	}
	return nil
}

// Release returns the reserved things to their stacks.
func (s *Shipment) Release() {
	s.colony.mutex.Lock()
	defer s.colony.mutex.Unlock()

	for id, count := range s.counts {
		if stack, ok := s.colony.stacks[id]; ok {
			stack.reserved -= count
		}
	}
	s.counts = nil
}

// Drop is the receiver side entity for materialized items.
type Drop struct {
	id       string
	label    string
	position transaction.Position
	stacks   []*Stack
}

func (d *Drop) ID() string                     { return d.id }
func (d *Drop) Label() string                  { return d.label }
func (d *Drop) Position() transaction.Position { return d.position }

func (d *Drop) Stacks() []*Stack {
	return d.stacks
}
