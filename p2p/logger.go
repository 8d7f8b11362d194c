package p2p

var LogMapping = map[uint8]string{
	1: "HELLO",
	2: "USERS_BRDCST",
	3: "PREFS_UPDATE",

	10: "START_TX",
	11: "TX_RESPONSE",
	12: "CONFIRM_TX",

	102: "CLIENT_PING",
	103: "CLIENT_PONG",

	110: "REJECTED",
}
