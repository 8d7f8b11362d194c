package transaction

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/way365/realm-exchange/protocol"
)

func TestKindsLookup(t *testing.T) {
	kinds := DefaultKinds()

	colonist, err := kinds.Lookup(protocol.KIND_COLONIST)
	require.NoError(t, err)
	assert.Equal(t, protocol.KIND_COLONIST, colonist.Name())

	_, err = kinds.Lookup(99)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestKindPreferencesAreIndependent(t *testing.T) {
	noColonists := protocol.Preferences{ReceiveColonists: false, ReceiveItems: true}
	noItems := protocol.Preferences{ReceiveColonists: true, ReceiveItems: false}

	assert.False(t, ColonistKind{}.Allows(noColonists))
	assert.True(t, ColonistKind{}.Allows(noItems))
	assert.True(t, ItemKind{}.Allows(noColonists))
	assert.False(t, ItemKind{}.Allows(noItems))
}

func TestMaterializeRejectsMismatchedDescriptor(t *testing.T) {
	envelope, err := protocol.Seal(testItems())
	require.NoError(t, err)
	tx := &Transaction{ID: "a", Sender: alice, Receiver: bob, Envelope: envelope}

	_, err = ColonistKind{}.Materialize(tx, &fakeWorld{})
	var materialization *MaterializationError
	require.True(t, errors.As(err, &materialization))
	assert.Equal(t, protocol.TransactionID("a"), materialization.ID)
	assert.Equal(t, envelope.Digest, materialization.Digest)
}

func TestMaterializeCorruptPayload(t *testing.T) {
	envelope, err := protocol.Seal(testColonist())
	require.NoError(t, err)
	envelope.Payload = append([]byte(nil), envelope.Payload...)
	envelope.Payload[len(envelope.Payload)-1] ^= 0xff
	tx := &Transaction{ID: "a", Sender: alice, Receiver: bob, Envelope: envelope}

	_, err = ColonistKind{}.Materialize(tx, &fakeWorld{})
	assert.True(t, errors.Is(err, protocol.ErrDigestMismatch))
}

func TestItemMaterializePlacement(t *testing.T) {
	envelope, err := protocol.Seal(testItems())
	require.NoError(t, err)
	tx := &Transaction{ID: "a", Sender: alice, Receiver: bob, Envelope: envelope}
	world := &fakeWorld{}

	entity, err := ItemKind{}.Materialize(tx, world)
	require.NoError(t, err)
	assert.Equal(t, "placed", entity.ID())
	require.Len(t, world.placements, 1)
	assert.Equal(t, PlacementTradeDrop, world.placements[0].Mode)

	items, ok := world.placed[0].(*protocol.ItemsDescriptor)
	require.True(t, ok)
	assert.Equal(t, 80, items.Count())
}

func TestSilentNotifications(t *testing.T) {
	tx := &Transaction{Sender: alice, Receiver: bob, State: protocol.DECLINED}
	_, ok := ColonistKind{}.Notification(tx, SideReceiver, nil)
	assert.False(t, ok)

	tx.State = protocol.INTERCEPTED
	_, ok = ItemKind{}.Notification(tx, SideReceiver, nil)
	assert.False(t, ok)

	notification, ok := ItemKind{}.Notification(tx, SideSender, nil)
	require.True(t, ok)
	assert.Equal(t, SeverityNegative, notification.Severity)
}
