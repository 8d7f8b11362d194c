package p2p

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const WRITE_TIMEOUT = 10 * time.Second

// Conn is a framed, ordered message channel. Writes are serialized so several
// goroutines may send; reads must happen from a single goroutine.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
	l      sync.Mutex
}

func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (c *Conn) Send(typeID uint8, payload []byte) error {
	packet, err := BuildPacket(typeID, payload)
	if err != nil {
		return err
	}

	c.l.Lock()
	defer c.l.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
	if _, err := c.conn.Write(packet); err != nil {
		return errors.Wrapf(err, "send %v to %v", LogMapping[typeID], c.RemoteAddr())
	}
	return nil
}

func (c *Conn) Receive() (header *Header, payload []byte, err error) {
	header, err = ReadHeader(c.reader)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "connection to %v aborted", c.RemoteAddr())
	}

	payload = make([]byte, header.Len)
	if _, err = io.ReadFull(c.reader, payload); err != nil {
		return nil, nil, errors.Wrapf(err, "connection to %v aborted", c.RemoteAddr())
	}

	return header, payload, nil
}

// SetReadDeadline bounds the next Receive, the zero time clears it.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Conn) RemoteAddr() string {
	if c.conn.RemoteAddr() == nil {
		return "unknown"
	}
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}
