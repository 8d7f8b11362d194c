package p2p

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrUnknownType     = errors.New("header: TypeID not found")
	ErrPayloadTooLarge = errors.New("header: payload exceeds MAX_PAYLOAD_LEN")
)

func Connect(connectionString string, timeout time.Duration) (*Conn, error) {
	conn, err := net.DialTimeout("tcp", connectionString, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "connection to %v failed", connectionString)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetLinger(0)
		tcpConn.SetKeepAlive(true)
	}

	return NewConn(conn), nil
}

func BuildPacket(typeID uint8, payload []byte) (packet []byte, err error) {
	if LogMapping[typeID] == "" {
		return nil, errors.Wrapf(ErrUnknownType, "build packet with TypeID %v", typeID)
	}
	if len(payload) > MAX_PAYLOAD_LEN {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "payload of %v bytes", len(payload))
	}

	packet = make([]byte, HEADER_LEN+len(payload))
	binary.BigEndian.PutUint32(packet[0:4], uint32(len(payload)))
	packet[4] = typeID
	copy(packet[HEADER_LEN:], payload)

	return packet, nil
}

func ReadHeader(reader *bufio.Reader) (*Header, error) {
	//The first four bytes of any incoming messages is the length of the payload.
	var headerArr [HEADER_LEN]byte
	if _, err := io.ReadFull(reader, headerArr[:]); err != nil {
		return nil, err
	}

	header := extractHeader(headerArr[:])

	//Check if the type is registered in the protocol.
	if LogMapping[header.TypeID] == "" {
		return nil, errors.Wrapf(ErrUnknownType, "typeID: %v", header.TypeID)
	}

	if header.Len > MAX_PAYLOAD_LEN {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "header announces %v bytes", header.Len)
	}

	return header, nil
}

//Decoupled functionality for testing reasons.
func extractHeader(headerData []byte) *Header {
	header := new(Header)

	header.Len = binary.BigEndian.Uint32(headerData[0:4])
	header.TypeID = uint8(headerData[4])

	return header
}
