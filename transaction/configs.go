package transaction

import "time"

const (
	//How long a peer waits for the relay's confirmation before resolving INTERRUPTED.
	//Exceeds the relay session timeout.
	CONFIRM_TIMEOUT = 5*time.Minute + 30*time.Second

	//How often the peer loop reaps expired transactions.
	REAP_INTERVAL = 5 * time.Second

	ACCEPT_LABEL  = "Accept"
	DECLINE_LABEL = "Refuse"
)
