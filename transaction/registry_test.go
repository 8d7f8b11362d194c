package transaction

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/way365/realm-exchange/protocol"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	second := &Transaction{ID: "b", Created: created.Add(time.Second)}
	first := &Transaction{ID: "a", Created: created}
	require.NoError(t, registry.Register(second))
	require.NoError(t, registry.Register(first))
	assert.Error(t, registry.Register(&Transaction{}))

	err := registry.Register(&Transaction{ID: "a"})
	assert.True(t, errors.Is(err, ErrDuplicateTransaction))

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, protocol.TransactionID("a"), all[0].ID)

	registry.Remove("a")
	_, err = registry.Lookup("a")
	assert.True(t, errors.Is(err, ErrTransactionNotFound))
	assert.True(t, registry.Used("a"))
	assert.Equal(t, 1, registry.Len())

	//Removed ids are never reusable in the same session.
	err = registry.Register(&Transaction{ID: "a"})
	assert.True(t, errors.Is(err, ErrDuplicateTransaction))
}

func TestRegistryExpired(t *testing.T) {
	registry := NewRegistry()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-time.Hour)

	require.NoError(t, registry.Register(&Transaction{ID: "sender", Side: SideSender, Created: old}))
	require.NoError(t, registry.Register(&Transaction{ID: "waiting", Side: SideReceiver, Created: old}))
	require.NoError(t, registry.Register(&Transaction{ID: "responded", Side: SideReceiver, Created: old, respondedAt: old}))
	require.NoError(t, registry.Register(&Transaction{ID: "fresh", Side: SideSender, Created: now}))
	require.NoError(t, registry.Register(&Transaction{ID: "done", Side: SideSender, Created: old, State: protocol.DECLINED}))

	expired := registry.Expired(now, time.Minute)
	ids := make([]protocol.TransactionID, 0, len(expired))
	for _, tx := range expired {
		ids = append(ids, tx.ID)
	}
	assert.ElementsMatch(t, []protocol.TransactionID{"sender", "responded"}, ids)
}

func TestDecisions(t *testing.T) {
	d := newDecisions()
	slot := d.open("a")
	assert.Equal(t, 1, d.len())

	assert.True(t, d.take("a", slot))
	assert.False(t, d.take("a", slot))
	assert.Equal(t, 0, d.len())

	stale := d.open("b")
	d.discard("b")
	assert.False(t, d.take("b", stale))

	//A reopened id does not accept callbacks bound to the previous slot.
	old := d.open("c")
	d.discard("c")
	current := d.open("c")
	assert.False(t, d.take("c", old))
	assert.True(t, d.take("c", current))

	d.open("x")
	d.open("y")
	assert.Equal(t, 2, d.discardAll())
	assert.Equal(t, 0, d.len())
}

func TestTransactionResolveOnce(t *testing.T) {
	tx := &Transaction{ID: "a"}
	assert.Error(t, tx.resolve(protocol.PENDING))
	require.NoError(t, tx.resolve(protocol.DECLINED))

	err := tx.resolve(protocol.ACCEPTED)
	assert.True(t, errors.Is(err, ErrTerminalState))
	assert.Equal(t, protocol.DECLINED, tx.State)
}

func TestSettleEntityOnce(t *testing.T) {
	logger := NewMachine("self", Dependencies{}, nil).logger

	entity := &fakeEntity{id: "pawn", destroyErr: errors.New("already gone")}
	tx := &Transaction{ID: "a", State: protocol.ACCEPTED, entity: entity}
	tx.settleEntity(logger)
	tx.settleEntity(logger)
	assert.Equal(t, 1, entity.destroyed)
	assert.Zero(t, entity.released)

	entity = &fakeEntity{id: "pawn"}
	tx = &Transaction{ID: "b", State: protocol.DECLINED, entity: entity}
	tx.settleEntity(logger)
	tx.settleEntity(logger)
	assert.Zero(t, entity.destroyed)
	assert.Equal(t, 1, entity.released)
}
