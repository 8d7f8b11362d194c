package transaction

import (
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/storage"
	"go.uber.org/zap"
)

// Dependencies wires a machine to its collaborators. Salvage is optional;
// Kinds, Now and ConfirmTimeout fall back to defaults when unset.
type Dependencies struct {
	Relay          Relay
	Dispatcher     Dispatcher
	Directory      Directory
	Decisions      DecisionService
	World          World
	Notifier       Notifier
	Salvage        Salvage
	Kinds          Kinds
	Now            func() time.Time
	ConfirmTimeout time.Duration
}

// Machine runs the transaction phases of one peer. It is not safe for
// concurrent use: every method must be called from the loop that owns it,
// decision callbacks are posted back to that loop through the Dispatcher.
type Machine struct {
	self      protocol.UserID
	deps      Dependencies
	registry  *Registry
	decisions *decisions
	closed    bool
	logger    *zap.Logger
}

func NewMachine(self protocol.UserID, deps Dependencies, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Kinds == nil {
		deps.Kinds = DefaultKinds()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ConfirmTimeout <= 0 {
		deps.ConfirmTimeout = CONFIRM_TIMEOUT
	}

	return &Machine{
		self:      self,
		deps:      deps,
		registry:  NewRegistry(),
		decisions: newDecisions(),
		logger:    logger.Named("transaction").With(zap.String("self", string(self))),
	}
}

func (m *Machine) Registry() *Registry {
	return m.registry
}

// PendingDecisions is the number of choices still waiting for the player.
func (m *Machine) PendingDecisions() int {
	return m.decisions.len()
}

// Send creates a transaction for descriptor and sends it to the relay. The
// entity stays owned by the transaction until it is destroyed on ACCEPTED.
func (m *Machine) Send(receiverID protocol.UserID, descriptor protocol.Descriptor, entity OwnedEntity) (*Transaction, error) {
	if m.closed {
		return nil, ErrSessionClosed
	}
	if descriptor == nil {
		return nil, errors.Wrap(protocol.ErrMalformedDescriptor, "nothing to send")
	}

	kind, err := m.deps.Kinds.Lookup(descriptor.Kind())
	if err != nil {
		return nil, err
	}
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	sender, ok := m.deps.Directory.User(m.self)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownUser, "self %v", m.self)
	}
	receiver, ok := m.deps.Directory.User(receiverID)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownUser, "receiver %v", receiverID)
	}
	if receiver.ID == m.self {
		return nil, errors.New("cannot send to yourself")
	}

	envelope, err := protocol.Seal(descriptor)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:       protocol.NewTransactionID(),
		Sender:   sender,
		Receiver: receiver,
		Kind:     kind,
		Envelope: envelope,
		State:    protocol.PENDING,
		Side:     SideSender,
		Created:  m.deps.Now(),
		entity:   entity,
	}
	if err := m.registry.Register(tx); err != nil {
		return nil, err
	}

	err = m.deps.Relay.SendToServer(&protocol.StartTransactionPacket{
		ID:       tx.ID,
		Sender:   sender,
		Receiver: receiver,
		Envelope: envelope,
	})
	if err != nil {
		m.logger.Warn("start not delivered", zap.String("id", string(tx.ID)), zap.Error(err))
		m.finish(tx, protocol.INTERRUPTED)
		return tx, errors.Wrap(err, "send start")
	}

	m.logger.Info("transaction started",
		zap.String("id", string(tx.ID)),
		zap.Stringer("kind", kind.Name()),
		zap.String("receiver", string(receiver.ID)))
	return tx, nil
}

// HandleStart reacts to an inbound START_TX and runs OnStartReceiver.
func (m *Machine) HandleStart(packet *protocol.StartTransactionPacket) {
	logger := m.logger.With(zap.String("id", string(packet.ID)))
	if m.closed {
		logger.Debug("session closed, start ignored")
		return
	}
	if packet.Receiver.ID != m.self {
		logger.Warn("start addressed to another user", zap.String("receiver", string(packet.Receiver.ID)))
		return
	}

	if existing, err := m.registry.Lookup(packet.ID); err == nil {
		logger.Warn("duplicate start, interrupting transaction")
		m.interrupt(existing)
		return
	}
	if m.registry.Used(packet.ID) {
		logger.Warn("start for a finished transaction ignored")
		return
	}

	kind, err := m.deps.Kinds.Lookup(packet.Envelope.Kind)
	if err != nil {
		logger.Warn("declining transaction of unknown kind", zap.Error(err))
		if err := m.deps.Relay.SendToServer(&protocol.TransactionResponsePacket{ID: packet.ID, Response: protocol.DECLINED}); err != nil {
			logger.Warn("response not delivered", zap.Error(err))
		}
		return
	}

	tx := &Transaction{
		ID:       packet.ID,
		Sender:   packet.Sender,
		Receiver: packet.Receiver,
		Kind:     kind,
		Envelope: packet.Envelope,
		State:    protocol.PENDING,
		Side:     SideReceiver,
		Created:  m.deps.Now(),
	}
	if err := m.registry.Register(tx); err != nil {
		logger.Warn("start rejected", zap.Error(err))
		return
	}

	m.onStartReceiver(tx)
}

// HandleConfirm reacts to CONFIRM_TX and runs OnEndSender or OnEndReceiver.
func (m *Machine) HandleConfirm(packet *protocol.ConfirmTransactionPacket) {
	logger := m.logger.With(zap.String("id", string(packet.ID)), zap.Stringer("state", packet.State))

	tx, err := m.registry.Lookup(packet.ID)
	if err != nil {
		if m.registry.Used(packet.ID) {
			logger.Debug("confirm for a finished transaction ignored")
		} else {
			logger.Warn("confirm for an unknown transaction ignored")
		}
		return
	}

	final := packet.State
	switch {
	case !final.IsTerminal():
		logger.Warn("confirm without a terminal state, treating as interrupted")
		final = protocol.INTERRUPTED
	case tx.Side == SideReceiver && final.IsResponse() && !tx.Responded():
		logger.Warn("confirm before our response, treating as interrupted")
		final = protocol.INTERRUPTED
	case tx.Side == SideReceiver && final == protocol.ACCEPTED && tx.response != protocol.ACCEPTED:
		logger.Warn("confirm accepts what we declined, treating as interrupted")
		final = protocol.INTERRUPTED
	}

	m.decisions.discard(tx.ID)
	m.finish(tx, final)
}

// Reap resolves every transaction that waited too long for its confirmation.
func (m *Machine) Reap() int {
	expired := m.registry.Expired(m.deps.Now(), m.deps.ConfirmTimeout)
	for _, tx := range expired {
		m.logger.Warn("no confirmation before timeout", zap.String("id", string(tx.ID)), zap.Stringer("side", tx.Side))
		m.interrupt(tx)
	}
	return len(expired)
}

// Close tears the session down. Pending choices are discarded so callbacks
// firing later are ignored, open transactions resolve INTERRUPTED.
func (m *Machine) Close() {
	if m.closed {
		return
	}
	m.closed = true

	discarded := m.decisions.discardAll()
	open := m.registry.All()
	for _, tx := range open {
		m.finish(tx, protocol.INTERRUPTED)
	}

	m.logger.Info("session closed", zap.Int("discarded_decisions", discarded), zap.Int("interrupted", len(open)))
}

func (m *Machine) onStartReceiver(tx *Transaction) {
	logger := m.logger.With(zap.String("id", string(tx.ID)))

	preferences, ok := m.localPreferences()
	if !ok || !tx.Kind.Allows(preferences) {
		logger.Info("preferences forbid receipt, declining", zap.Stringer("kind", tx.Kind.Name()))
		m.respond(tx, protocol.DECLINED)
		return
	}
	//Anything that could not be materialized later is refused before the prompt.
	if _, err := openDescriptor(tx); err != nil {
		logger.Warn("envelope cannot be opened, declining", zap.Error(err))
		m.respond(tx, protocol.DECLINED)
		return
	}

	id := tx.ID
	slot := m.decisions.open(id)
	m.deps.Decisions.RequestChoice(
		Choice{
			ID:           id,
			Text:         tx.Kind.Prompt(tx),
			AcceptLabel:  ACCEPT_LABEL,
			DeclineLabel: DECLINE_LABEL,
		},
		func() { m.deps.Dispatcher.Post(func() { m.decide(id, slot, protocol.ACCEPTED) }) },
		func() { m.deps.Dispatcher.Post(func() { m.decide(id, slot, protocol.DECLINED) }) },
	)
	logger.Debug("waiting for decision")
}

func (m *Machine) decide(id protocol.TransactionID, slot *decisionSlot, answer protocol.TransactionState) {
	if !m.decisions.take(id, slot) {
		m.logger.Debug("late or repeated decision ignored", zap.String("id", string(id)))
		return
	}
	tx, err := m.registry.Lookup(id)
	if err != nil || tx.State.IsTerminal() || tx.Responded() {
		return
	}
	m.respond(tx, answer)
}

func (m *Machine) respond(tx *Transaction, answer protocol.TransactionState) {
	tx.response = answer
	tx.respondedAt = m.deps.Now()

	err := m.deps.Relay.SendToServer(&protocol.TransactionResponsePacket{ID: tx.ID, Response: answer})
	if err != nil {
		m.logger.Warn("response not delivered", zap.String("id", string(tx.ID)), zap.Error(err))
		m.finish(tx, protocol.INTERRUPTED)
		return
	}
	m.logger.Info("responded", zap.String("id", string(tx.ID)), zap.Stringer("response", answer))
}

func (m *Machine) interrupt(tx *Transaction) {
	m.decisions.discard(tx.ID)
	m.finish(tx, protocol.INTERRUPTED)
}

// finish runs the side's OnEnd phase and forgets the transaction.
func (m *Machine) finish(tx *Transaction, confirmed protocol.TransactionState) {
	if tx.Side == SideSender {
		m.onEndSender(tx, confirmed)
	} else {
		m.onEndReceiver(tx, confirmed)
	}
	m.registry.Remove(tx.ID)
}

func (m *Machine) onEndReceiver(tx *Transaction, final protocol.TransactionState) {
	logger := m.logger.With(zap.String("id", string(tx.ID)))
	if tx.State.IsTerminal() {
		logger.Warn("transition from terminal state rejected", zap.Stringer("state", tx.State), zap.Stringer("confirmed", final))
		return
	}

	if final == protocol.ACCEPTED {
		if preferences, ok := m.localPreferences(); !ok || !tx.Kind.Allows(preferences) {
			logger.Info("preferences changed since start, downgrading to declined")
			final = protocol.DECLINED
		}
	}

	var placed Entity
	if final == protocol.ACCEPTED {
		entity, err := tx.Kind.Materialize(tx, m.deps.World)
		if err != nil {
			m.salvage(tx, err)
			final = protocol.INTERRUPTED
		} else {
			placed = entity
		}
	}

	if err := tx.resolve(final); err != nil {
		logger.Warn("transition rejected", zap.Error(err))
		return
	}
	if notification, ok := tx.Kind.Notification(tx, SideReceiver, placed); ok {
		m.deps.Notifier.Notify(notification)
	}

	fields := []zap.Field{zap.Stringer("state", tx.State)}
	if placed != nil {
		fields = append(fields, zap.String("entity", placed.ID()), zap.Stringer("position", placed.Position()))
	}
	logger.Info("transaction received", fields...)
}

func (m *Machine) onEndSender(tx *Transaction, final protocol.TransactionState) {
	logger := m.logger.With(zap.String("id", string(tx.ID)))
	if tx.State.IsTerminal() {
		logger.Warn("transition from terminal state rejected", zap.Stringer("state", tx.State), zap.Stringer("confirmed", final))
		return
	}

	if final == protocol.ACCEPTED {
		receiver, ok := m.deps.Directory.User(tx.Receiver.ID)
		if !ok {
			receiver = tx.Receiver
		}
		if !tx.Kind.Allows(receiver.Preferences) {
			logger.Info("receiver preferences forbid receipt, downgrading to declined")
			final = protocol.DECLINED
		}
	}

	if err := tx.resolve(final); err != nil {
		logger.Warn("transition rejected", zap.Error(err))
		return
	}
	tx.settleEntity(logger)
	if notification, ok := tx.Kind.Notification(tx, SideSender, nil); ok {
		m.deps.Notifier.Notify(notification)
	}

	logger.Info("transaction sent", zap.Stringer("state", tx.State))
}

func (m *Machine) salvage(tx *Transaction, err error) {
	m.logger.Error("materialization failed",
		zap.String("id", string(tx.ID)),
		zap.String("sender", string(tx.Sender.ID)),
		zap.String("digest", hex.EncodeToString(tx.Envelope.Digest[:])),
		zap.Error(err))

	if m.deps.Salvage == nil {
		return
	}
	entry := storage.SalvageEntry{
		ID:       tx.ID,
		Sender:   tx.Sender,
		Envelope: tx.Envelope,
		Reason:   err.Error(),
		Stored:   m.deps.Now(),
	}
	if err := m.deps.Salvage.WriteSalvage(entry); err != nil {
		m.logger.Error("salvage envelope", zap.String("id", string(tx.ID)), zap.Error(err))
	}
}

func (m *Machine) localPreferences() (protocol.Preferences, bool) {
	self, ok := m.deps.Directory.User(m.self)
	return self.Preferences, ok
}
