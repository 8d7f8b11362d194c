package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/way365/realm-exchange/client"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/storage"
	"github.com/way365/realm-exchange/transaction"
	"github.com/way365/realm-exchange/world"
	"go.uber.org/zap/zaptest"
)

var (
	alice = protocol.User{ID: "alice-id", Name: "alice", Preferences: protocol.DefaultPreferences()}
	bob   = protocol.User{ID: "bob-id", Name: "bob", Preferences: protocol.Preferences{ReceiveColonists: true}}
)

type sent struct {
	receiver   protocol.UserID
	descriptor protocol.Descriptor
	entity     transaction.OwnedEntity
}

type fakeSession struct {
	directory   *client.Directory
	sent        []sent
	sendErr     error
	preferences []protocol.Preferences
	pending     []transaction.Transaction
}

func newFakeSession() *fakeSession {
	directory := client.NewDirectory(alice)
	directory.Update([]protocol.User{alice, bob})
	return &fakeSession{directory: directory}
}

func (s *fakeSession) Directory() *client.Directory { return s.directory }

func (s *fakeSession) Send(receiver protocol.UserID, descriptor protocol.Descriptor, entity transaction.OwnedEntity) (protocol.TransactionID, error) {
	if s.sendErr != nil {
		entity.Release()
		return "", s.sendErr
	}
	s.sent = append(s.sent, sent{receiver: receiver, descriptor: descriptor, entity: entity})
	return protocol.TransactionID("tx-" + string(receiver)), nil
}

func (s *fakeSession) SetPreferences(preferences protocol.Preferences) error {
	s.preferences = append(s.preferences, preferences)
	s.directory.SetPreferences(preferences)
	return nil
}

func (s *fakeSession) Pending() ([]transaction.Transaction, error) {
	return s.pending, nil
}

type memorySalvage struct {
	entries []storage.SalvageEntry
}

func (m *memorySalvage) ReadAllSalvage() ([]storage.SalvageEntry, error) {
	return m.entries, nil
}

func (m *memorySalvage) DeleteSalvage(id protocol.TransactionID) error {
	for i, entry := range m.entries {
		if entry.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return storage.ErrTransactionNotFound
}

type consoleHarness struct {
	console *Console
	session *fakeSession
	colony  *world.Colony
	salvage *memorySalvage
	out     *bytes.Buffer
}

func newConsoleHarness(t *testing.T) *consoleHarness {
	logger := zaptest.NewLogger(t)
	h := &consoleHarness{
		session: newFakeSession(),
		colony:  world.NewColony("Test", world.MAP_SIZE, 1, logger),
		salvage: &memorySalvage{},
		out:     &bytes.Buffer{},
	}
	h.colony.SpawnStarters()
	h.console = NewConsole(h.out, h.colony, h.salvage, logger)
	h.console.Attach(h.session)
	return h
}

func (h *consoleHarness) exec(t *testing.T, line string) {
	t.Helper()
	quit, err := h.console.Execute(line)
	require.NoError(t, err)
	assert.False(t, quit)
}

func stackFor(t *testing.T, colony *world.Colony, def string) *world.Stack {
	for _, stack := range colony.Stacks() {
		if stack.Thing().ThingDef == def {
			return stack
		}
	}
	t.Fatalf("no %v stack", def)
	return nil
}

func TestConsoleSendColonist(t *testing.T) {
	h := newConsoleHarness(t)
	pawn := h.colony.Colonists()[0]

	h.exec(t, "send-colonist bob "+pawn.ID())

	require.Len(t, h.session.sent, 1)
	assert.Equal(t, bob.ID, h.session.sent[0].receiver)
	assert.Equal(t, protocol.KIND_COLONIST, h.session.sent[0].descriptor.Kind())
	assert.True(t, pawn.InTransit())
	assert.Contains(t, h.out.String(), "on the way to bob")
}

func TestConsoleSendItems(t *testing.T) {
	h := newConsoleHarness(t)
	steel := stackFor(t, h.colony, "Steel")

	h.exec(t, "send-items bob "+steel.ID()+":50 "+steel.ID()+":25")

	require.Len(t, h.session.sent, 1)
	items, ok := h.session.sent[0].descriptor.(*protocol.ItemsDescriptor)
	require.True(t, ok)
	assert.Equal(t, 75, items.Count())
	assert.Equal(t, 450-75, steel.Available())
}

func TestConsoleSendErrors(t *testing.T) {
	h := newConsoleHarness(t)
	steel := stackFor(t, h.colony, "Steel")

	tests := []struct {
		name string
		line string
	}{
		{"unknown user", "send-colonist carol pawn-1"},
		{"self", "send-colonist alice pawn-1"},
		{"unknown colonist", "send-colonist bob pawn-99"},
		{"missing args", "send-colonist bob"},
		{"bad count", "send-items bob " + steel.ID() + ":many"},
		{"zero count", "send-items bob " + steel.ID() + ":0"},
		{"too many", "send-items bob " + steel.ID() + ":5000"},
		{"unknown command", "dance"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := h.console.Execute(test.line)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, h.session.sent)
	assert.Equal(t, 450, steel.Available())
}

func TestConsoleSendFailureReleases(t *testing.T) {
	h := newConsoleHarness(t)
	h.session.sendErr = errors.New("relay down")
	pawn := h.colony.Colonists()[0]

	_, err := h.console.Execute("send-colonist bob " + pawn.ID())
	assert.Error(t, err)
	assert.False(t, pawn.InTransit())
}

func TestConsoleAnswersOffers(t *testing.T) {
	h := newConsoleHarness(t)

	var answers []string
	offer := func(id protocol.TransactionID) {
		h.console.RequestChoice(
			transaction.Choice{ID: id, Text: "A colonist wants to join", AcceptLabel: "Accept", DeclineLabel: "Decline"},
			func() { answers = append(answers, "accept "+string(id)) },
			func() { answers = append(answers, "decline "+string(id)) },
		)
	}
	h.session.pending = live("tx-1", "tx-2", "tx-3")
	offer("tx-1")
	offer("tx-2")
	offer("tx-3")
	assert.Contains(t, h.out.String(), "A colonist wants to join")

	h.exec(t, "decline tx-2")
	h.exec(t, "accept")
	h.exec(t, "accept")
	assert.Equal(t, []string{"decline tx-2", "accept tx-1", "accept tx-3"}, answers)

	_, err := h.console.Execute("accept")
	assert.Error(t, err)
	_, err = h.console.Execute("decline tx-2")
	assert.Error(t, err)
	assert.Len(t, answers, 3)
}

func TestConsoleForgetsExpiredOffers(t *testing.T) {
	h := newConsoleHarness(t)

	answered := 0
	for _, id := range []protocol.TransactionID{"tx-1", "tx-2"} {
		h.console.RequestChoice(transaction.Choice{ID: id}, func() { answered++ }, func() { answered++ })
	}

	//tx-1 was interrupted by the relay, only tx-2 is still live.
	h.session.pending = live("tx-2")
	h.exec(t, "pending")
	assert.NotContains(t, h.out.String(), "tx-1 receiver")

	_, err := h.console.Execute("accept tx-1")
	assert.Error(t, err)
	h.exec(t, "accept")
	assert.Equal(t, 1, answered)

	h.session.pending = nil
	h.console.RequestChoice(transaction.Choice{ID: "tx-3"}, func() { answered++ }, func() { answered++ })
	_, err = h.console.Execute("decline")
	assert.Error(t, err)
	assert.Equal(t, 1, answered)
}

func TestConsolePreferences(t *testing.T) {
	h := newConsoleHarness(t)

	h.exec(t, "prefs off on")
	require.Len(t, h.session.preferences, 1)
	assert.Equal(t, protocol.Preferences{ReceiveColonists: false, ReceiveItems: true}, h.session.preferences[0])
	assert.False(t, h.session.directory.Self().Preferences.ReceiveColonists)

	_, err := h.console.Execute("prefs maybe on")
	assert.Error(t, err)
	assert.Len(t, h.session.preferences, 1)
}

func TestConsoleListings(t *testing.T) {
	h := newConsoleHarness(t)

	h.exec(t, "users")
	h.exec(t, "colonists")
	h.exec(t, "items")
	h.exec(t, "pending")

	out := h.out.String()
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "colonists:on items:off")
	assert.NotContains(t, out, "alice-id")
	assert.Contains(t, out, "Tomas")
	assert.Contains(t, out, "MedicineIndustrial")
	assert.Contains(t, out, "no live transactions")
}

func live(ids ...protocol.TransactionID) []transaction.Transaction {
	kind, _ := transaction.DefaultKinds().Lookup(protocol.KIND_COLONIST)
	pending := make([]transaction.Transaction, 0, len(ids))
	for _, id := range ids {
		pending = append(pending, transaction.Transaction{
			ID: id, Sender: bob, Receiver: alice, Kind: kind, State: protocol.PENDING, Side: transaction.SideReceiver,
		})
	}
	return pending
}

func TestConsolePending(t *testing.T) {
	h := newConsoleHarness(t)
	kind, err := transaction.DefaultKinds().Lookup(protocol.KIND_ITEMS)
	require.NoError(t, err)
	h.session.pending = []transaction.Transaction{
		{ID: "tx-1", Sender: bob, Receiver: alice, Kind: kind, State: protocol.PENDING, Side: transaction.SideReceiver},
	}
	h.console.RequestChoice(transaction.Choice{ID: "tx-1"}, func() {}, func() {})

	h.exec(t, "pending")
	assert.Contains(t, h.out.String(), "tx-1 receiver")
	assert.Contains(t, h.out.String(), "with bob")
	assert.Contains(t, h.out.String(), "awaiting your answer")
}

func TestConsoleSalvage(t *testing.T) {
	h := newConsoleHarness(t)
	h.salvage.entries = []storage.SalvageEntry{
		{ID: "tx-9", Sender: bob, Envelope: protocol.Envelope{Kind: protocol.KIND_COLONIST}, Reason: "no drop spot", Stored: time.Now()},
	}

	h.exec(t, "salvage")
	assert.Contains(t, h.out.String(), "no drop spot")

	h.exec(t, "salvage drop tx-9")
	assert.Empty(t, h.salvage.entries)

	_, err := h.console.Execute("salvage drop tx-9")
	assert.Error(t, err)
}

func TestConsoleNotify(t *testing.T) {
	h := newConsoleHarness(t)

	h.console.Notify(transaction.Notification{
		Title:    "Colonist arrived",
		Text:     "Engie joined the colony.",
		Severity: transaction.SeverityPositive,
		Target:   &transaction.Position{X: 3, Z: 4},
	})
	assert.Contains(t, h.out.String(), "[positive] Colonist arrived at (3, 4)")
}

func TestConsoleDetached(t *testing.T) {
	console := NewConsole(&bytes.Buffer{}, world.NewColony("Test", world.MAP_SIZE, 1, nil), nil, nil)

	_, err := console.Execute("users")
	assert.Error(t, err)
	_, err = console.Execute("salvage")
	assert.Error(t, err)
}

func TestConsoleRun(t *testing.T) {
	h := newConsoleHarness(t)

	err := h.console.Run(context.Background(), strings.NewReader("help\nbogus\nquit\nusers\n"))
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "error: unknown command")
	assert.NotContains(t, h.out.String(), "colonists:on items:off")
}

func TestConsoleRunEndOfInput(t *testing.T) {
	h := newConsoleHarness(t)

	err := h.console.Run(context.Background(), strings.NewReader("colonists\n"))
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Ines")
}
