package relay

import "time"

const (
	SESSION_TIMEOUT = 5 * time.Minute
	REAP_INTERVAL   = 5 * time.Second
	HELLO_TIMEOUT   = 10 * time.Second

	//Outbound packets buffered per session before the session is dropped.
	SESSION_QUEUE = 256
	INBOX_SIZE    = 1024

	//Accepted colonist transfers per sender.
	COLONIST_RATE_INTERVAL = 20 * time.Second
	COLONIST_BURST         = 3

	//Accepted item transfers per sender.
	ITEMS_RATE_INTERVAL = 2 * time.Second
	ITEMS_BURST         = 10
)
