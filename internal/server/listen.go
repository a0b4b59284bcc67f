package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/meshbus/meshbus/internal/config"
	"github.com/meshbus/meshbus/internal/handshake"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/registry"
	"github.com/meshbus/meshbus/internal/socket"
)

// bufferResizer is implemented by transports (TCP) whose read chunk size
// needs to grow once a connection graduates from handshaking to carrying
// application traffic. Message-framed transports (WebSocket) don't need it.
type bufferResizer interface {
	SetReadBufferSize(int)
}

// Onboarder drives one accepted socket through a handshake and, on
// success, bridges it onto a ServerBus as a ClientConnection; it removes
// the same connection from the bus when the socket later closes. It is
// transport-agnostic — the TCP accept loop below and wsbridge's WebSocket
// upgrade handler both reuse it.
type Onboarder struct {
	registry    *registry.MessageRegistry
	serverBus   *ServerBus
	dataBufSize int

	mu         sync.Mutex
	clientConn *ClientConnection
}

// NewOnboarder constructs an Onboarder for one socket.
func NewOnboarder(reg *registry.MessageRegistry, serverBus *ServerBus, dataBufSize int) *Onboarder {
	return &Onboarder{registry: reg, serverBus: serverBus, dataBufSize: dataBufSize}
}

// HandshakeComplete implements handshake.CompletionListener.
func (o *Onboarder) HandshakeComplete(clientType, clientInstance int, sock handshake.Socket) {
	dh, ok := sock.(socket.DataHandler)
	if !ok {
		meshlog.Warning("server: socket %T does not implement DataHandler, dropping", sock)
		return
	}
	if r, ok := sock.(bufferResizer); ok {
		r.SetReadBufferSize(o.dataBufSize)
	}

	cc := NewClientConnection(o.registry, clientType, clientInstance, dh)
	o.mu.Lock()
	o.clientConn = cc
	o.mu.Unlock()

	o.serverBus.ClientConnected(cc)
	meshlog.Success("server: [%s] client (type=%d instance=%d) onboarded", cc.CorrelationID(), clientType, clientInstance)
}

// OnClosed is the socket's onClose callback: if the handshake had already
// completed, the bridged ClientConnection is removed from the server bus.
func (o *Onboarder) OnClosed() {
	o.mu.Lock()
	cc := o.clientConn
	o.mu.Unlock()
	if cc != nil {
		o.serverBus.ClientDisconnected(cc)
	}
}

// Start kicks off the handshake on sockHandler.
func (o *Onboarder) Start(sockHandler socket.DataHandler, handshakeHandler *handshake.Handler) error {
	return handshakeHandler.PerformHandshake(sockHandler, o)
}

// ListenAndServe accepts TCP connections on cfg.ListenAddr, onboards each
// through handshakeHandler, and bridges successfully onboarded clients
// onto serverBus. It blocks until ctx is cancelled, at which point the
// listener is closed so the blocked Accept call returns and the loop
// exits — the same ctx-cancellation-closes-listener pattern the teacher's
// tunnel listener uses.
func ListenAndServe(ctx context.Context, cfg config.ServerConfig, reg *registry.MessageRegistry, handshakeHandler *handshake.Handler, serverBus *ServerBus) error {
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	meshlog.Info("server: listening on %s", cfg.ListenAddr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("server: accept: %w", err)
			}
		}
		go onAccept(conn, cfg, reg, handshakeHandler, serverBus)
	}
}

func onAccept(conn net.Conn, cfg config.ServerConfig, reg *registry.MessageRegistry, handshakeHandler *handshake.Handler, serverBus *ServerBus) {
	onboarder := NewOnboarder(reg, serverBus, cfg.DataBufSize)
	sockHandler := socket.New(conn, cfg.HandshakeBufSize, onboarder.OnClosed)
	go sockHandler.Run()

	if err := onboarder.Start(sockHandler, handshakeHandler); err != nil {
		meshlog.Warning("server: handshake failed for %s: %v", conn.RemoteAddr(), err)
		sockHandler.Close()
	}
}
