package protocol

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/pkg/errors"
)

var ErrMalformedPacket = errors.New("malformed packet")

// Packet is anything that can be framed and sent to the relay or a peer.
type Packet interface {
	Encode() []byte
}

//Packets are gob encoded. Decoding never trusts the sender: every Decode
//validates the fields the receiving side relies on.

type HelloPacket struct {
	User User
}

type UsersPacket struct {
	Users []User
}

type PreferencesPacket struct {
	Preferences Preferences
}

type RejectPacket struct {
	Reason string
}

type StartTransactionPacket struct {
	ID       TransactionID
	Sender   User
	Receiver User
	Envelope Envelope
}

type TransactionResponsePacket struct {
	ID       TransactionID
	Response TransactionState
}

type ConfirmTransactionPacket struct {
	ID    TransactionID
	State TransactionState
}

func encode(v interface{}) []byte {
	buffer := new(bytes.Buffer)
	if err := gob.NewEncoder(buffer).Encode(v); err != nil {
		panic(fmt.Sprintf("gob encode %T: %v", v, err))
	}
	return buffer.Bytes()
}

func decode(encoded []byte, v interface{}) error {
	if len(encoded) == 0 {
		return errors.Wrap(ErrMalformedPacket, "empty payload")
	}
	if err := gob.NewDecoder(bytes.NewReader(encoded)).Decode(v); err != nil {
		return errors.Wrapf(ErrMalformedPacket, "%T: %v", v, err)
	}
	return nil
}

func (packet *HelloPacket) Encode() []byte { return encode(packet) }

func (*HelloPacket) Decode(encoded []byte) (*HelloPacket, error) {
	var decoded HelloPacket
	if err := decode(encoded, &decoded); err != nil {
		return nil, err
	}
	if decoded.User.ID == "" || decoded.User.Name == "" {
		return nil, errors.Wrap(ErrMalformedPacket, "hello without user")
	}
	return &decoded, nil
}

func (packet *UsersPacket) Encode() []byte { return encode(packet) }

func (*UsersPacket) Decode(encoded []byte) (*UsersPacket, error) {
	var decoded UsersPacket
	if err := decode(encoded, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (packet *PreferencesPacket) Encode() []byte { return encode(packet) }

func (*PreferencesPacket) Decode(encoded []byte) (*PreferencesPacket, error) {
	var decoded PreferencesPacket
	if err := decode(encoded, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (packet *RejectPacket) Encode() []byte { return encode(packet) }

func (*RejectPacket) Decode(encoded []byte) (*RejectPacket, error) {
	var decoded RejectPacket
	if err := decode(encoded, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (packet *StartTransactionPacket) Encode() []byte { return encode(packet) }

func (*StartTransactionPacket) Decode(encoded []byte) (*StartTransactionPacket, error) {
	var decoded StartTransactionPacket
	if err := decode(encoded, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID == "" {
		return nil, errors.Wrap(ErrMalformedPacket, "start without transaction id")
	}
	if decoded.Sender.ID == "" || decoded.Receiver.ID == "" {
		return nil, errors.Wrap(ErrMalformedPacket, "start without participants")
	}
	if decoded.Sender.ID == decoded.Receiver.ID {
		return nil, errors.Wrap(ErrMalformedPacket, "sender and receiver are the same user")
	}
	return &decoded, nil
}

func (packet *TransactionResponsePacket) Encode() []byte { return encode(packet) }

func (*TransactionResponsePacket) Decode(encoded []byte) (*TransactionResponsePacket, error) {
	var decoded TransactionResponsePacket
	if err := decode(encoded, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID == "" {
		return nil, errors.Wrap(ErrMalformedPacket, "response without transaction id")
	}
	return &decoded, nil
}

func (packet *ConfirmTransactionPacket) Encode() []byte { return encode(packet) }

func (*ConfirmTransactionPacket) Decode(encoded []byte) (*ConfirmTransactionPacket, error) {
	var decoded ConfirmTransactionPacket
	if err := decode(encoded, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID == "" {
		return nil, errors.Wrap(ErrMalformedPacket, "confirm without transaction id")
	}
	return &decoded, nil
}

func (packet StartTransactionPacket) String() string {
	return fmt.Sprintf(
		"\nID: %v\n"+
			"Sender: %v\n"+
			"Receiver: %v\n"+
			"Envelope: %v",
		packet.ID,
		packet.Sender,
		packet.Receiver,
		packet.Envelope,
	)
}
