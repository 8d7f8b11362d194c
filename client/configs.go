package client

import "time"

const (
	DIAL_TIMEOUT  = 5 * time.Second
	PING_INTERVAL = 30 * time.Second
	INBOX_SIZE    = 256
)
