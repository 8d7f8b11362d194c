package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/p2p"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/transaction"
	"go.uber.org/zap"
)

var ErrRejected = errors.New("session rejected by relay")

// Collaborators are the host side services the transaction machine needs.
// Salvage may be nil.
type Collaborators struct {
	Decisions transaction.DecisionService
	World     transaction.World
	Notifier  transaction.Notifier
	Salvage   transaction.Salvage
}

// Client is a peer session with the relay. Run owns the transaction machine;
// every other method is safe to call from any goroutine.
type Client struct {
	conn      *p2p.Conn
	directory *Directory
	machine   *transaction.Machine
	inbox     chan func()
	done      chan struct{}
	stop      error
	logger    *zap.Logger
}

func Dial(address string, self protocol.User, collaborators Collaborators, logger *zap.Logger) (*Client, error) {
	conn, err := p2p.Connect(address, DIAL_TIMEOUT)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, self, collaborators, logger), nil
}

func NewClient(conn *p2p.Conn, self protocol.User, collaborators Collaborators, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		conn:      conn,
		directory: NewDirectory(self),
		inbox:     make(chan func(), INBOX_SIZE),
		done:      make(chan struct{}),
		logger:    logger.Named("client").With(zap.String("self", self.Name)),
	}
	c.machine = transaction.NewMachine(self.ID, transaction.Dependencies{
		Relay:      c,
		Dispatcher: c,
		Directory:  c.directory,
		Decisions:  collaborators.Decisions,
		World:      collaborators.World,
		Notifier:   collaborators.Notifier,
		Salvage:    collaborators.Salvage,
	}, logger)
	return c
}

func (c *Client) Directory() *Directory {
	return c.directory
}

// Done is closed once Run returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Post implements transaction.Dispatcher. Closures posted after Run returned
// are dropped.
func (c *Client) Post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// SendToServer implements transaction.Relay.
func (c *Client) SendToServer(packet protocol.Packet) error {
	return c.conn.SendPacket(packet)
}

// Run greets the relay and processes packets, decisions and timeouts until
// ctx is done or the connection drops. Open transactions end INTERRUPTED.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.conn.Close()
	defer c.machine.Close()

	if err := c.conn.SendPacket(&protocol.HelloPacket{User: c.directory.Self()}); err != nil {
		return errors.Wrap(err, "hello")
	}

	received := make(chan error, 1)
	go c.readLoop(received)

	reapTicker := time.NewTicker(transaction.REAP_INTERVAL)
	defer reapTicker.Stop()
	pingTicker := time.NewTicker(PING_INTERVAL)
	defer pingTicker.Stop()

	for {
		select {
		case fn := <-c.inbox:
			fn()
			if c.stop != nil {
				return c.stop
			}
		case <-reapTicker.C:
			if reaped := c.machine.Reap(); reaped > 0 {
				c.logger.Warn("reaped unconfirmed transactions", zap.Int("count", reaped))
			}
		case <-pingTicker.C:
			if err := c.conn.Send(p2p.CLIENT_PING, nil); err != nil {
				c.logger.Warn("ping failed", zap.Error(err))
			}
		case err := <-received:
			c.drainInbox()
			if c.stop != nil {
				return c.stop
			}
			return errors.Wrap(err, "relay connection lost")
		case <-ctx.Done():
			return nil
		}
	}
}

//Closures queued before the connection dropped still run, packets included.
func (c *Client) drainInbox() {
	for {
		select {
		case fn := <-c.inbox:
			fn()
		default:
			return
		}
	}
}

func (c *Client) readLoop(received chan<- error) {
	for {
		header, payload, err := c.conn.Receive()
		if err != nil {
			received <- err
			return
		}
		select {
		case c.inbox <- func() { c.processIncomingMsg(header, payload) }:
		case <-c.done:
			return
		}
	}
}

func (c *Client) processIncomingMsg(header *p2p.Header, payload []byte) {
	var err error
	switch header.TypeID {
	case p2p.USERS_BRDCST:
		var packet *protocol.UsersPacket
		if packet, err = packet.Decode(payload); err == nil {
			c.directory.Update(packet.Users)
			c.logger.Debug("realm users updated", zap.Int("count", len(packet.Users)))
		}
	case p2p.START_TX:
		var packet *protocol.StartTransactionPacket
		if packet, err = packet.Decode(payload); err == nil {
			c.machine.HandleStart(packet)
		}
	case p2p.CONFIRM_TX:
		var packet *protocol.ConfirmTransactionPacket
		if packet, err = packet.Decode(payload); err == nil {
			c.machine.HandleConfirm(packet)
		}
	case p2p.REJECTED:
		var packet *protocol.RejectPacket
		if packet, err = packet.Decode(payload); err == nil {
			c.logger.Error("relay rejected session", zap.String("reason", packet.Reason))
			c.stop = errors.Wrap(ErrRejected, packet.Reason)
		}
	case p2p.CLIENT_PING:
		if err := c.conn.Send(p2p.CLIENT_PONG, nil); err != nil {
			c.logger.Warn("pong failed", zap.Error(err))
		}
	case p2p.CLIENT_PONG:
	default:
		c.logger.Warn("unexpected packet", zap.String("type", p2p.LogMapping[header.TypeID]))
	}

	if err != nil {
		c.logger.Warn("malformed packet dropped", zap.String("type", p2p.LogMapping[header.TypeID]), zap.Error(err))
	}
}

// call runs fn on the loop and waits for its result.
func (c *Client) call(fn func() error) error {
	result := make(chan error, 1)
	select {
	case c.inbox <- func() { result <- fn() }:
	case <-c.done:
		return transaction.ErrSessionClosed
	}
	select {
	case err := <-result:
		return err
	case <-c.done:
		return transaction.ErrSessionClosed
	}
}

// Send starts a transfer of descriptor to receiver. entity is destroyed once
// the receiver accepted and released otherwise.
func (c *Client) Send(receiver protocol.UserID, descriptor protocol.Descriptor, entity transaction.OwnedEntity) (id protocol.TransactionID, err error) {
	err = c.call(func() error {
		tx, err := c.machine.Send(receiver, descriptor, entity)
		if tx != nil {
			id = tx.ID
		}
		return err
	})
	//A transaction that was never created never settles its entity.
	if id == "" && err != nil && entity != nil {
		entity.Release()
	}
	return id, err
}

// SetPreferences applies new local preferences and tells the relay.
func (c *Client) SetPreferences(preferences protocol.Preferences) error {
	return c.call(func() error {
		c.directory.SetPreferences(preferences)
		return c.conn.SendPacket(&protocol.PreferencesPacket{Preferences: preferences})
	})
}

// Pending snapshots the live transactions, oldest first.
func (c *Client) Pending() (pending []transaction.Transaction, err error) {
	err = c.call(func() error {
		for _, tx := range c.machine.Registry().All() {
			pending = append(pending, *tx)
		}
		return nil
	})
	return pending, err
}
