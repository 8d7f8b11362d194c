package relay

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/p2p"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/storage"
	"github.com/way365/realm-exchange/transaction"
	"go.uber.org/zap"
)

type Options struct {
	SessionTimeout time.Duration
	Limits         map[protocol.Kind]Limit
	Kinds          transaction.Kinds
	Now            func() time.Time
}

// Hub arbitrates every transaction of the realm. All of its state is owned by
// the goroutine running Run; connections post closures into the inbox.
type Hub struct {
	store    *storage.Store
	kinds    transaction.Kinds
	gate     *Gate
	timeout  time.Duration
	now      func() time.Time
	sessions map[protocol.UserID]*session
	open     map[protocol.TransactionID]*storage.LedgerEntry
	inbox    chan func()
	done     chan struct{}
	logger   *zap.Logger
}

// NewHub closes whatever the ledger still lists as open from a previous run.
func NewHub(store *storage.Store, options Options, logger *zap.Logger) (*Hub, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.SessionTimeout <= 0 {
		options.SessionTimeout = SESSION_TIMEOUT
	}
	if options.Limits == nil {
		options.Limits = DefaultLimits()
	}
	if options.Kinds == nil {
		options.Kinds = transaction.DefaultKinds()
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	h := &Hub{
		store:    store,
		kinds:    options.Kinds,
		gate:     NewGate(options.Limits),
		timeout:  options.SessionTimeout,
		now:      options.Now,
		sessions: make(map[protocol.UserID]*session),
		open:     make(map[protocol.TransactionID]*storage.LedgerEntry),
		inbox:    make(chan func(), INBOX_SIZE),
		done:     make(chan struct{}),
		logger:   logger.Named("relay"),
	}

	interrupted, err := store.InterruptOpenTxs(h.now())
	if err != nil {
		return nil, errors.Wrap(err, "replay ledger")
	}
	for _, entry := range interrupted {
		h.logger.Info("closed transaction left open by previous run", zap.Stringer("entry", entry))
	}

	return h, nil
}

func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(REAP_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case fn := <-h.inbox:
			fn()
		case <-ticker.C:
			h.reap()
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// post hands fn to the hub goroutine. It fails once the hub stopped.
func (h *Hub) post(fn func()) bool {
	select {
	case h.inbox <- fn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		s.close()
	}
	h.sessions = make(map[protocol.UserID]*session)
	close(h.done)
	h.logger.Info("hub stopped", zap.Int("open_transactions", len(h.open)))
}

func (h *Hub) register(s *session, user protocol.User) {
	if s.closed {
		return
	}
	if existing, online := h.sessions[user.ID]; online && existing != s {
		h.logger.Warn("user already connected, rejecting session", zap.Stringer("session", s), zap.String("user", string(user.ID)))
		s.sendPacket(&protocol.RejectPacket{Reason: "user already connected"})
		s.close()
		return
	}

	s.user = user
	h.sessions[user.ID] = s
	h.logger.Info("user joined", zap.Stringer("session", s), zap.Stringer("user", user))
	h.broadcastUsers()
}

func (h *Hub) disconnect(s *session) {
	online := s.user.ID != "" && h.sessions[s.user.ID] == s
	s.close()
	if !online {
		return
	}
	delete(h.sessions, s.user.ID)
	h.logger.Info("user left", zap.Stringer("session", s))

	for _, entry := range h.openFor(s.user.ID) {
		h.closeTx(entry, protocol.INTERRUPTED)
		h.confirm(entry.ID, protocol.INTERRUPTED, entry.Sender, entry.Receiver)
	}
	h.broadcastUsers()
}

func (h *Hub) updatePreferences(s *session, packet *protocol.PreferencesPacket) {
	s.user.Preferences = packet.Preferences
	h.logger.Info("preferences updated",
		zap.Stringer("session", s),
		zap.Bool("receive_colonists", packet.Preferences.ReceiveColonists),
		zap.Bool("receive_items", packet.Preferences.ReceiveItems))
	h.broadcastUsers()
}

func (h *Hub) handleStart(s *session, packet *protocol.StartTransactionPacket) {
	logger := h.logger.With(zap.String("id", string(packet.ID)), zap.Stringer("session", s))

	if packet.Sender.ID != s.user.ID {
		logger.Warn("spoofed sender, start dropped", zap.String("sender", string(packet.Sender.ID)))
		return
	}
	if _, open := h.open[packet.ID]; open || h.store.Seen(packet.ID) {
		logger.Warn("transaction id already used, start dropped")
		return
	}

	entry := storage.LedgerEntry{
		ID:       packet.ID,
		Kind:     packet.Envelope.Kind,
		Sender:   s.user.ID,
		Receiver: packet.Receiver.ID,
		State:    protocol.PENDING,
		Digest:   packet.Envelope.Digest,
		Opened:   h.now(),
	}
	if err := h.store.WriteOpenTx(entry); err != nil {
		logger.Error("record start", zap.Error(err))
		return
	}

	receiver, online := h.sessions[packet.Receiver.ID]
	reason := ""
	if kind, err := h.kinds.Lookup(entry.Kind); err != nil {
		reason = "unknown kind"
	} else if err := packet.Envelope.Verify(); err != nil {
		reason = "envelope failed verification"
	} else if !online {
		reason = "receiver offline"
	} else if !kind.Allows(receiver.user.Preferences) {
		reason = "receiver preferences forbid " + entry.Kind.String()
	}
	if reason != "" {
		logger.Info("start declined", zap.String("reason", reason))
		h.closeTx(&entry, protocol.DECLINED)
		h.confirm(entry.ID, protocol.DECLINED, entry.Sender)
		return
	}

	h.open[entry.ID] = &entry
	forwarded := receiver.sendPacket(&protocol.StartTransactionPacket{
		ID:       packet.ID,
		Sender:   s.user,
		Receiver: receiver.user,
		Envelope: packet.Envelope,
	})
	if !forwarded {
		logger.Warn("receiver queue full, interrupting")
		h.closeTx(&entry, protocol.INTERRUPTED)
		h.confirm(entry.ID, protocol.INTERRUPTED, entry.Sender)
		h.overflowed(receiver)
		return
	}
	logger.Info("start relayed", zap.Stringer("kind", entry.Kind), zap.String("receiver", string(entry.Receiver)))
}

func (h *Hub) handleResponse(s *session, packet *protocol.TransactionResponsePacket) {
	logger := h.logger.With(zap.String("id", string(packet.ID)), zap.Stringer("session", s))

	entry, ok := h.open[packet.ID]
	if !ok {
		closed, err := h.store.ReadClosedTx(packet.ID)
		if err != nil {
			logger.Error("read ledger", zap.Error(err))
			return
		}
		if closed != nil && closed.Receiver == s.user.ID {
			logger.Info("late response, resending final state", zap.Stringer("state", closed.State))
			h.confirm(closed.ID, closed.State, s.user.ID)
			return
		}
		logger.Warn("response for unknown transaction dropped")
		return
	}
	if entry.Receiver != s.user.ID {
		logger.Warn("response from a non receiver dropped")
		return
	}

	state := packet.Response
	switch {
	case !state.IsResponse():
		logger.Warn("invalid response, interrupting", zap.Stringer("response", state))
		state = protocol.INTERRUPTED
	case state == protocol.ACCEPTED && !h.allows(entry.Kind, s.user.Preferences):
		logger.Info("receiver preferences forbid, declining")
		state = protocol.DECLINED
	case state == protocol.ACCEPTED && !h.gate.Allow(entry.Sender, entry.Kind, h.now()):
		logger.Warn("sender over rate limit, intercepting", zap.String("sender", string(entry.Sender)))
		state = protocol.INTERCEPTED
	}

	h.closeTx(entry, state)
	h.confirm(entry.ID, state, entry.Sender, entry.Receiver)
	logger.Info("transaction closed", zap.Stringer("state", state))
}

func (h *Hub) reap() {
	now := h.now()
	for _, entry := range h.openFor("") {
		if now.Sub(entry.Opened) <= h.timeout {
			continue
		}
		h.logger.Warn("transaction timed out", zap.Stringer("entry", entry))
		h.closeTx(entry, protocol.INTERRUPTED)
		h.confirm(entry.ID, protocol.INTERRUPTED, entry.Sender, entry.Receiver)
	}
}

func (h *Hub) allows(name protocol.Kind, preferences protocol.Preferences) bool {
	kind, err := h.kinds.Lookup(name)
	return err == nil && kind.Allows(preferences)
}

func (h *Hub) closeTx(entry *storage.LedgerEntry, state protocol.TransactionState) {
	delete(h.open, entry.ID)
	if _, err := h.store.WriteClosedTx(entry.ID, state, h.now()); err != nil {
		h.logger.Error("record close", zap.String("id", string(entry.ID)), zap.Error(err))
	}
	entry.State = state
}

func (h *Hub) confirm(id protocol.TransactionID, state protocol.TransactionState, recipients ...protocol.UserID) {
	packet := &protocol.ConfirmTransactionPacket{ID: id, State: state}
	for _, recipient := range recipients {
		s, online := h.sessions[recipient]
		if !online {
			continue
		}
		if !s.sendPacket(packet) {
			h.logger.Warn("confirm not queued", zap.String("id", string(id)), zap.Stringer("session", s))
			h.overflowed(s)
		}
	}
}

// overflowed drops a session that can no longer keep up with its queue. The
// peer sees the connection end once the writer flushed what was queued.
func (h *Hub) overflowed(s *session) {
	if s.closed {
		return
	}
	h.logger.Warn("session queue full, dropping session", zap.Stringer("session", s))
	h.disconnect(s)
}

// openFor lists open transactions involving user, all of them for an empty
// id, oldest first.
func (h *Hub) openFor(user protocol.UserID) []*storage.LedgerEntry {
	var entries []*storage.LedgerEntry
	for _, entry := range h.open {
		if user == "" || entry.Sender == user || entry.Receiver == user {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Opened.Equal(entries[j].Opened) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Opened.Before(entries[j].Opened)
	})
	return entries
}

func (h *Hub) users() []protocol.User {
	users := make([]protocol.User, 0, len(h.sessions))
	for _, s := range h.sessions {
		users = append(users, s.user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].ID < users[j].ID
		}
		return users[i].Name < users[j].Name
	})
	return users
}

func (h *Hub) broadcastUsers() {
	payload := (&protocol.UsersPacket{Users: h.users()}).Encode()
	var full []*session
	for _, s := range h.sessions {
		if !s.send(p2p.USERS_BRDCST, payload) {
			full = append(full, s)
		}
	}
	for _, s := range full {
		h.overflowed(s)
	}
}
