package world

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/transaction"
	"go.uber.org/zap/zaptest"
)

func newTestColony(t *testing.T) *Colony {
	colony := NewColony("Haven", MAP_SIZE, 42, zaptest.NewLogger(t))
	colony.SpawnStarters()
	return colony
}

func stackByDef(t *testing.T, colony *Colony, def string) *Stack {
	for _, stack := range colony.Stacks() {
		if stack.Thing().ThingDef == def {
			return stack
		}
	}
	t.Fatalf("no %v stack", def)
	return nil
}

func TestSpawnStarters(t *testing.T) {
	colony := newTestColony(t)

	assert.Len(t, colony.Colonists(), len(starterColonists()))
	assert.Len(t, colony.Stacks(), len(starterThings()))
	for _, pawn := range colony.Colonists() {
		position := pawn.Position()
		assert.GreaterOrEqual(t, position.X, DROP_SPOT_MARGIN)
		assert.Less(t, position.X, MAP_SIZE-DROP_SPOT_MARGIN)
	}
}

func TestDescribeColonist(t *testing.T) {
	colony := newTestColony(t)
	pawn := colony.Colonists()[0]

	descriptor, entity, err := colony.DescribeColonist(pawn.ID())
	require.NoError(t, err)
	require.NoError(t, descriptor.Validate())
	assert.Equal(t, pawn.Label(), descriptor.DisplayName())
	assert.Equal(t, pawn.ID(), entity.ID())
	assert.True(t, pawn.InTransit())

	_, _, err = colony.DescribeColonist(pawn.ID())
	assert.True(t, errors.Is(err, ErrEntityInTransit))

	entity.Release()
	assert.False(t, pawn.InTransit())

	_, _, err = colony.DescribeColonist("pawn-404")
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestDestroyedColonistLeavesMap(t *testing.T) {
	colony := newTestColony(t)
	before := len(colony.Colonists())
	pawn := colony.Colonists()[0]

	_, entity, err := colony.DescribeColonist(pawn.ID())
	require.NoError(t, err)
	require.NoError(t, entity.Destroy())
	assert.Len(t, colony.Colonists(), before-1)

	assert.True(t, errors.Is(entity.Destroy(), ErrEntityNotFound))
}

func TestPackItems(t *testing.T) {
	colony := newTestColony(t)
	steel := stackByDef(t, colony, "Steel")
	silver := stackByDef(t, colony, "Silver")

	descriptor, shipment, err := colony.PackItems(map[string]int{steel.ID(): 100, silver.ID(): 800})
	require.NoError(t, err)
	assert.Equal(t, 900, descriptor.Count())
	assert.Equal(t, 350, steel.Available())
	assert.Equal(t, 0, silver.Available())

	_, _, err = colony.PackItems(map[string]int{silver.ID(): 1})
	assert.Error(t, err)

	require.NoError(t, shipment.Destroy())
	assert.Equal(t, 350, steel.Thing().StackCount)
	assert.Equal(t, 350, steel.Available())
	for _, stack := range colony.Stacks() {
		assert.NotEqual(t, silver.ID(), stack.ID())
	}
}

func TestReleasedShipmentRestoresStacks(t *testing.T) {
	colony := newTestColony(t)
	steel := stackByDef(t, colony, "Steel")

	_, shipment, err := colony.PackItems(map[string]int{steel.ID(): 200})
	require.NoError(t, err)
	shipment.Release()
	shipment.Release()

	assert.Equal(t, 450, steel.Available())
	assert.Equal(t, 450, steel.Thing().StackCount)
}

func TestPackItemsRejectsBadRequests(t *testing.T) {
	colony := newTestColony(t)
	steel := stackByDef(t, colony, "Steel")

	_, _, err := colony.PackItems(nil)
	assert.Error(t, err)
	_, _, err = colony.PackItems(map[string]int{"stack-404": 1})
	assert.True(t, errors.Is(err, ErrEntityNotFound))
	_, _, err = colony.PackItems(map[string]int{steel.ID(): 0})
	assert.Error(t, err)
	assert.Equal(t, 450, steel.Available())
}

func TestMaterializeColonist(t *testing.T) {
	colony := NewColony("Haven", MAP_SIZE, 7, zaptest.NewLogger(t))
	descriptor := starterColonists()[1]

	entity, err := colony.MaterializeAndPlace(descriptor, transaction.ColonistKind{}.Placement())
	require.NoError(t, err)
	assert.Equal(t, descriptor.DisplayName(), entity.Label())
	require.Len(t, colony.Colonists(), 1)
	assert.Equal(t, entity.ID(), colony.Colonists()[0].ID())
}

func TestMaterializeItemsNearTradeSpot(t *testing.T) {
	colony := NewColony("Haven", MAP_SIZE, 7, zaptest.NewLogger(t))
	descriptor := &protocol.ItemsDescriptor{Things: starterThings()[:2]}

	entity, err := colony.MaterializeAndPlace(descriptor, transaction.ItemKind{}.Placement())
	require.NoError(t, err)
	drop, ok := entity.(*Drop)
	require.True(t, ok)
	assert.Len(t, drop.Stacks(), 2)
	assert.Len(t, colony.Stacks(), 2)

	position := entity.Position()
	assert.InDelta(t, MAP_SIZE/2, position.X, TRADE_DROP_RADIUS)
	assert.InDelta(t, MAP_SIZE/2, position.Z, TRADE_DROP_RADIUS)
}

func TestMaterializeRejectsInvalid(t *testing.T) {
	colony := NewColony("Haven", MAP_SIZE, 7, zaptest.NewLogger(t))

	_, err := colony.MaterializeAndPlace(&protocol.ColonistDescriptor{KindDef: "Colonist"}, transaction.Placement{})
	assert.True(t, errors.Is(err, protocol.ErrMalformedDescriptor))

	_, err = colony.MaterializeAndPlace(nil, transaction.Placement{})
	assert.Error(t, err)
	assert.Empty(t, colony.Colonists())
}
