package relay

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/p2p"
	"github.com/way365/realm-exchange/protocol"
	"go.uber.org/zap"
)

// Server accepts peer connections and feeds them to the hub.
type Server struct {
	hub    *Hub
	nextID uint64
	logger *zap.Logger
}

func NewServer(hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hub: hub, logger: logger.Named("server")}
}

func (srv *Server) ListenAndServe(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "listen on %v", address)
	}
	return srv.Serve(ctx, listener)
}

// Serve runs the hub and accepts connections until ctx is done.
func (srv *Server) Serve(ctx context.Context, listener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		srv.hub.Run(ctx)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	srv.logger.Info("relay listening", zap.String("address", listener.Addr().String()))
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		go srv.handleConnection(p2p.NewConn(conn))
	}
}

func (srv *Server) handleConnection(conn *p2p.Conn) {
	s := newSession(atomic.AddUint64(&srv.nextID, 1), conn)
	logger := srv.logger.With(zap.Uint64("session", s.id), zap.String("remote", conn.RemoteAddr()))

	hello, err := srv.receiveHello(conn)
	if err != nil {
		logger.Warn("handshake failed", zap.Error(err))
		conn.SendPacket(&protocol.RejectPacket{Reason: "expected hello"})
		conn.Close()
		return
	}

	go sessionWriter(s, logger)
	if !srv.hub.post(func() { srv.hub.register(s, hello.User) }) {
		close(s.ch)
		return
	}

	for {
		header, payload, err := conn.Receive()
		if err != nil {
			logger.Debug("connection closed", zap.Error(err))
			srv.hub.post(func() { srv.hub.disconnect(s) })
			return
		}
		if !srv.hub.post(func() { srv.hub.processIncomingMsg(s, header, payload) }) {
			return
		}
	}
}

func (srv *Server) receiveHello(conn *p2p.Conn) (*protocol.HelloPacket, error) {
	conn.SetReadDeadline(time.Now().Add(HELLO_TIMEOUT))
	defer conn.SetReadDeadline(time.Time{})

	header, payload, err := conn.Receive()
	if err != nil {
		return nil, err
	}
	if header.TypeID != p2p.HELLO {
		return nil, errors.Errorf("got %v before hello", p2p.LogMapping[header.TypeID])
	}

	var hello *protocol.HelloPacket
	return hello.Decode(payload)
}
