package world

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/transaction"
	"go.uber.org/zap"
)

var (
	ErrEntityNotFound  = errors.New("entity not found")
	ErrEntityInTransit = errors.New("entity already in transit")
	ErrNoDropSpot      = errors.New("no free drop spot")
)

// Colony is an in-memory settlement. It owns every pawn and stack on its map
// and is safe for concurrent use.
type Colony struct {
	mutex     sync.Mutex
	name      string
	size      int
	tradeSpot transaction.Position
	random    *rand.Rand
	nextID    int
	pawns     map[string]*Pawn
	stacks    map[string]*Stack
	occupied  map[transaction.Position]string
	logger    *zap.Logger
}

func NewColony(name string, size int, seed int64, logger *zap.Logger) *Colony {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 2*DROP_SPOT_MARGIN {
		size = MAP_SIZE
	}
	return &Colony{
		name:      name,
		size:      size,
		tradeSpot: transaction.Position{X: size / 2, Z: size / 2},
		random:    rand.New(rand.NewSource(seed)),
		pawns:     make(map[string]*Pawn),
		stacks:    make(map[string]*Stack),
		occupied:  make(map[transaction.Position]string),
		logger:    logger.Named("world").With(zap.String("colony", name)),
	}
}

func (c *Colony) Name() string {
	return c.name
}

// SpawnStarters settles the usual crash-landed crew and their supplies.
func (c *Colony) SpawnStarters() {
	for _, colonist := range starterColonists() {
		if _, err := c.AddColonist(colonist); err != nil {
			c.logger.Warn("starter colonist", zap.Error(err))
		}
	}
	for _, thing := range starterThings() {
		if _, err := c.AddStack(thing); err != nil {
			c.logger.Warn("starter stack", zap.Error(err))
		}
	}
}

func (c *Colony) AddColonist(descriptor *protocol.ColonistDescriptor) (*Pawn, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	position, err := c.dropSpot(transaction.PlacementDropPod)
	if err != nil {
		return nil, err
	}
	return c.addPawn(descriptor, position), nil
}

func (c *Colony) AddStack(thing protocol.ThingDescriptor) (*Stack, error) {
	if err := thing.Validate(); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	position, err := c.dropSpot(transaction.PlacementTradeDrop)
	if err != nil {
		return nil, err
	}
	return c.addStack(thing, position), nil
}

// Colonists lists the pawns on the map ordered by id.
func (c *Colony) Colonists() []*Pawn {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	pawns := make([]*Pawn, 0, len(c.pawns))
	for _, pawn := range c.pawns {
		pawns = append(pawns, pawn)
	}
	sort.Slice(pawns, func(i, j int) bool { return pawns[i].id < pawns[j].id })
	return pawns
}

// Stacks lists the item stacks on the map ordered by id.
func (c *Colony) Stacks() []*Stack {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stacks := make([]*Stack, 0, len(c.stacks))
	for _, stack := range c.stacks {
		stacks = append(stacks, stack)
	}
	sort.Slice(stacks, func(i, j int) bool { return stacks[i].id < stacks[j].id })
	return stacks
}

// DescribeColonist captures a pawn as a portable descriptor and marks it in
// transit. The returned entity is handed to the sending transaction.
func (c *Colony) DescribeColonist(id string) (*protocol.ColonistDescriptor, transaction.OwnedEntity, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	pawn, ok := c.pawns[id]
	if !ok {
		return nil, nil, errors.Wrapf(ErrEntityNotFound, "colonist %v", id)
	}
	if pawn.inTransit {
		return nil, nil, errors.Wrapf(ErrEntityInTransit, "colonist %v", id)
	}
	pawn.inTransit = true

	descriptor := *pawn.descriptor
	descriptor.Skills = append([]protocol.Skill(nil), pawn.descriptor.Skills...)
	descriptor.Traits = append([]protocol.Trait(nil), pawn.descriptor.Traits...)
	descriptor.Equipment = append([]protocol.ThingDescriptor(nil), pawn.descriptor.Equipment...)
	return &descriptor, pawn, nil
}

// PackItems reserves count things from each listed stack for shipping. The
// stacks stay on the map until the shipment is destroyed.
func (c *Colony) PackItems(counts map[string]int) (*protocol.ItemsDescriptor, transaction.OwnedEntity, error) {
	if len(counts) == 0 {
		return nil, nil, errors.Wrap(protocol.ErrMalformedDescriptor, "no things to send")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	descriptor := &protocol.ItemsDescriptor{}
	shipment := &Shipment{colony: c, id: c.newID("shipment"), counts: make(map[string]int, len(counts))}
	for _, id := range ids {
		stack, ok := c.stacks[id]
		if !ok {
			return nil, nil, errors.Wrapf(ErrEntityNotFound, "stack %v", id)
		}
		count := counts[id]
		if count <= 0 || count > stack.available() {
			return nil, nil, errors.Errorf("stack %v has %d available, %d requested", id, stack.available(), count)
		}
		thing := stack.thing
		thing.StackCount = count
		descriptor.Things = append(descriptor.Things, thing)
		shipment.counts[id] = count
	}
	if err := descriptor.Validate(); err != nil {
		return nil, nil, err
	}

	for id, count := range shipment.counts {
		c.stacks[id].reserved += count
	}
	shipment.label = fmt.Sprintf("%d things", descriptor.Count())
	shipment.position = c.tradeSpot
	return descriptor, shipment, nil
}

// MaterializeAndPlace builds a live entity from an inbound descriptor and
// drops it on the map.
func (c *Colony) MaterializeAndPlace(descriptor protocol.Descriptor, placement transaction.Placement) (transaction.Entity, error) {
	if descriptor == nil {
		return nil, errors.Wrap(protocol.ErrMalformedDescriptor, "nothing to materialize")
	}
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	position, err := c.dropSpot(placement.Mode)
	if err != nil {
		return nil, err
	}

	switch descriptor := descriptor.(type) {
	case *protocol.ColonistDescriptor:
		pawn := c.addPawn(descriptor, position)
		c.logger.Info("drop pod landed",
			zap.String("colonist", pawn.Label()),
			zap.Stringer("position", position),
			zap.Int("open_delay", placement.OpenDelay))
		return pawn, nil
	case *protocol.ItemsDescriptor:
		drop := &Drop{id: c.newID("drop"), position: position, label: fmt.Sprintf("%d things", descriptor.Count())}
		for _, thing := range descriptor.Things {
			drop.stacks = append(drop.stacks, c.addStack(thing, position))
		}
		c.logger.Info("trade drop landed", zap.String("drop", drop.label), zap.Stringer("position", position))
		return drop, nil
	}
	return nil, errors.Wrapf(protocol.ErrMalformedDescriptor, "cannot materialize %v", descriptor.Kind())
}

func (c *Colony) newID(prefix string) string {
	c.nextID++
	return fmt.Sprintf("%v-%d", prefix, c.nextID)
}

func (c *Colony) addPawn(descriptor *protocol.ColonistDescriptor, position transaction.Position) *Pawn {
	pawn := &Pawn{colony: c, id: c.newID("pawn"), descriptor: descriptor, position: position}
	c.pawns[pawn.id] = pawn
	c.occupied[position] = pawn.id
	return pawn
}

func (c *Colony) addStack(thing protocol.ThingDescriptor, position transaction.Position) *Stack {
	stack := &Stack{colony: c, id: c.newID("stack"), thing: thing, position: position}
	c.stacks[stack.id] = stack
	return stack
}

//Must be called with the mutex held.
func (c *Colony) dropSpot(mode transaction.PlacementMode) (transaction.Position, error) {
	if mode == transaction.PlacementTradeDrop {
		for try := 0; try < MAX_DROP_TRIES; try++ {
			position := transaction.Position{
				X: c.tradeSpot.X + c.random.Intn(2*TRADE_DROP_RADIUS+1) - TRADE_DROP_RADIUS,
				Z: c.tradeSpot.Z + c.random.Intn(2*TRADE_DROP_RADIUS+1) - TRADE_DROP_RADIUS,
			}
			if _, taken := c.occupied[position]; !taken {
				return position, nil
			}
		}
		return transaction.Position{}, ErrNoDropSpot
	}

	span := c.size - 2*DROP_SPOT_MARGIN
	for try := 0; try < MAX_DROP_TRIES; try++ {
		position := transaction.Position{
			X: DROP_SPOT_MARGIN + c.random.Intn(span),
			Z: DROP_SPOT_MARGIN + c.random.Intn(span),
		}
		if _, taken := c.occupied[position]; !taken {
			return position, nil
		}
	}
	return transaction.Position{}, ErrNoDropSpot
}
