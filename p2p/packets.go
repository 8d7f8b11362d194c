package p2p

import (
	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
)

// TypeOf maps a packet to the TypeID it travels under.
func TypeOf(packet protocol.Packet) (uint8, error) {
	switch packet.(type) {
	case *protocol.HelloPacket:
		return HELLO, nil
	case *protocol.UsersPacket:
		return USERS_BRDCST, nil
	case *protocol.PreferencesPacket:
		return PREFS_UPDATE, nil
	case *protocol.StartTransactionPacket:
		return START_TX, nil
	case *protocol.TransactionResponsePacket:
		return TX_RESPONSE, nil
	case *protocol.ConfirmTransactionPacket:
		return CONFIRM_TX, nil
	case *protocol.RejectPacket:
		return REJECTED, nil
	}
	return 0, errors.Wrapf(ErrUnknownType, "no TypeID for %T", packet)
}

func (c *Conn) SendPacket(packet protocol.Packet) error {
	typeID, err := TypeOf(packet)
	if err != nil {
		return err
	}
	return c.Send(typeID, packet.Encode())
}
