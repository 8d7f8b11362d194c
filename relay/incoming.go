package relay

import (
	"github.com/way365/realm-exchange/p2p"
	"github.com/way365/realm-exchange/protocol"
	"go.uber.org/zap"
)

//All packets of a registered session are processed here, on the hub goroutine.
func (h *Hub) processIncomingMsg(s *session, header *p2p.Header, payload []byte) {
	if s.closed {
		return
	}

	var err error
	switch header.TypeID {
	case p2p.PREFS_UPDATE:
		var packet *protocol.PreferencesPacket
		if packet, err = packet.Decode(payload); err == nil {
			h.updatePreferences(s, packet)
		}
	case p2p.START_TX:
		var packet *protocol.StartTransactionPacket
		if packet, err = packet.Decode(payload); err == nil {
			h.handleStart(s, packet)
		}
	case p2p.TX_RESPONSE:
		var packet *protocol.TransactionResponsePacket
		if packet, err = packet.Decode(payload); err == nil {
			h.handleResponse(s, packet)
		}
	case p2p.CLIENT_PING:
		if !s.send(p2p.CLIENT_PONG, nil) {
			h.overflowed(s)
		}
	case p2p.CLIENT_PONG:
	default:
		h.logger.Warn("unexpected packet", zap.Stringer("session", s), zap.String("type", p2p.LogMapping[header.TypeID]))
	}

	if err != nil {
		h.logger.Warn("malformed packet dropped",
			zap.Stringer("session", s),
			zap.String("type", p2p.LogMapping[header.TypeID]),
			zap.Error(err))
	}
}
