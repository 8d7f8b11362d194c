package p2p

import "fmt"

const HEADER_LEN = 5

//Upper bound of a single payload, larger headers abort the connection.
const MAX_PAYLOAD_LEN = 1 << 20

//Mapping constants, used to parse incoming messages
const (
	HELLO        = 1
	USERS_BRDCST = 2
	PREFS_UPDATE = 3

	START_TX    = 10
	TX_RESPONSE = 11
	CONFIRM_TX  = 12

	CLIENT_PING = 102
	CLIENT_PONG = 103

	//Used to signal a refused session
	REJECTED = 110
)

type Header struct {
	Len    uint32
	TypeID uint8
}

func (header Header) String() string {
	return fmt.Sprintf(
		"Length: %v\n"+
			"TypeID: %v\n",
		header.Len,
		LogMapping[header.TypeID],
	)
}
