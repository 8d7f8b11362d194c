package relay

import (
	"fmt"

	"github.com/way365/realm-exchange/p2p"
	"github.com/way365/realm-exchange/protocol"
	"go.uber.org/zap"
)

type outbound struct {
	typeID  uint8
	payload []byte
}

// session is one connected peer. user and closed belong to the hub goroutine,
// the writer goroutine only drains ch.
type session struct {
	id     uint64
	conn   *p2p.Conn
	user   protocol.User
	ch     chan outbound
	closed bool
}

func newSession(id uint64, conn *p2p.Conn) *session {
	return &session{
		id:   id,
		conn: conn,
		ch:   make(chan outbound, SESSION_QUEUE),
	}
}

func (s *session) send(typeID uint8, payload []byte) bool {
	if s.closed {
		return false
	}
	select {
	case s.ch <- outbound{typeID, payload}:
		return true
	default:
		return false
	}
}

func (s *session) sendPacket(packet protocol.Packet) bool {
	typeID, err := p2p.TypeOf(packet)
	if err != nil {
		return false
	}
	return s.send(typeID, packet.Encode())
}

func (s *session) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *session) String() string {
	if s.user.ID == "" {
		return fmt.Sprintf("session %d", s.id)
	}
	return fmt.Sprintf("session %d (%v)", s.id, s.user.Name)
}

//Belongs to the hub, drains the session queue onto the wire and hangs up
//once the hub closed the queue.
func sessionWriter(s *session, logger *zap.Logger) {
	for msg := range s.ch {
		if err := s.conn.Send(msg.typeID, msg.payload); err != nil {
			logger.Warn("write failed", zap.Uint64("session", s.id), zap.Error(err))
			break
		}
	}
	s.conn.Close()
	for range s.ch {
	}
}
