package handshake

import (
	"fmt"
	"sync"

	"github.com/meshbus/meshbus/internal/message"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/packet"
	"github.com/meshbus/meshbus/internal/registry"
	"github.com/meshbus/meshbus/internal/socket"
)

// ErrUnexpectedMessage is returned when a socket delivers a message type
// the handshake state machine isn't expecting in its current state.
var ErrUnexpectedMessage = fmt.Errorf("handshake: unexpected message")

// Listener receives raw inbound frames from a Socket. It is an alias for
// socket.Listener so that a *socket.TCPSocketDataHandler satisfies Socket
// below without an adapter shim.
type Listener = socket.Listener

// Socket is the minimal wire interface the handshake state machine drives:
// a place to send framed bytes, a single-slot listener for inbound ones, and
// a way to tear the connection down when the exchange fails. Both
// socket.TCPSocketDataHandler and wsbridge.Handler satisfy it.
type Socket interface {
	Send(data []byte) error
	SetListener(l Listener)
	Close() error
}

// CompletionListener is notified once a handshake finishes successfully,
// receiving the client's self-reported routing coordinates.
type CompletionListener interface {
	HandshakeComplete(clientType, clientInstance int, sock Socket)
}

// ProtocolHandshake drives one socket through Init -> ResponseV1 -> Complete.
type ProtocolHandshake struct {
	registry *registry.MessageRegistry
	socket   Socket
	term     *Terminator
}

func newProtocolHandshake(reg *registry.MessageRegistry, sock Socket) *ProtocolHandshake {
	return &ProtocolHandshake{registry: reg, socket: sock}
}

// Start sends the HandshakeInit message and begins listening for the
// client's response.
func (p *ProtocolHandshake) Start(term *Terminator) error {
	p.term = term
	init := NewInitMessage(SupportedVersion)
	data, err := p.registry.SerializePacket(packet.New(init, packet.Broadcast, packet.Broadcast))
	if err != nil {
		return fmt.Errorf("handshake: serialize init: %w", err)
	}
	p.socket.SetListener(p)
	return p.socket.Send(data)
}

// MessageReceived implements Listener: it expects exactly one inbound
// frame, a HandshakeResponseMessageV1. Any other frame — unparseable or the
// wrong type — drops the handshake along with its socket.
func (p *ProtocolHandshake) MessageReceived(data []byte) {
	pkt, err := p.registry.DeserializePacket(data)
	if err != nil {
		meshlog.Warning("handshake: failed to parse response: %v", err)
		p.fail()
		return
	}
	resp, ok := pkt.Message.(*message.DataMessage[ResponseV1Data])
	if !ok || pkt.Message.Type() != TypeResponseV1 {
		meshlog.Warning("handshake: %v: got %s", ErrUnexpectedMessage, pkt.Message.Type())
		p.fail()
		return
	}
	p.socket.SetListener(nil)

	complete := NewCompleteMessage(SupportedVersion)
	out, err := p.registry.SerializePacket(packet.New(complete, packet.Broadcast, packet.Broadcast))
	if err != nil {
		meshlog.Warning("handshake: serialize complete: %v", err)
		p.fail()
		return
	}
	if err := p.socket.Send(out); err != nil {
		meshlog.Warning("handshake: send complete: %v", err)
		p.fail()
		return
	}
	p.term.HandshakeComplete(int(resp.Data.ClientType), int(resp.Data.ClientInstance), p.socket)
}

// fail tears down a handshake that went wrong before completing: the socket
// is closed and the Terminator's bookkeeping entry is dropped without ever
// notifying the caller's CompletionListener, so the connection count never
// sees it.
func (p *ProtocolHandshake) fail() {
	if err := p.socket.Close(); err != nil {
		meshlog.Warning("handshake: close socket after failed handshake: %v", err)
	}
	p.term.abort()
}

// Terminator pairs one in-flight ProtocolHandshake with the caller's
// completion listener, and tells the owning Handler to forget it once
// done. Notification happens before cleanup, matching the original's
// HandshakeTerminator::handshakeComplete ordering.
type Terminator struct {
	handler  *Handler
	listener CompletionListener
}

func (t *Terminator) HandshakeComplete(clientType, clientInstance int, sock Socket) {
	t.listener.HandshakeComplete(clientType, clientInstance, sock)
	t.handler.cleanup(t)
}

// abort drops this handshake's bookkeeping without ever reaching the
// caller's CompletionListener, used on the failure paths.
func (t *Terminator) abort() {
	t.handler.cleanup(t)
}

// Handler manages the set of in-flight handshakes, one per newly accepted
// socket, cleaning each up as soon as it completes.
type Handler struct {
	registry *registry.MessageRegistry

	mu          sync.Mutex
	terminators map[*Terminator]*ProtocolHandshake
}

// NewHandler creates a Handler bound to the given message registry.
func NewHandler(reg *registry.MessageRegistry) *Handler {
	return &Handler{
		registry:    reg,
		terminators: make(map[*Terminator]*ProtocolHandshake),
	}
}

// PerformHandshake begins onboarding sock, invoking listener on success.
func (h *Handler) PerformHandshake(sock Socket, listener CompletionListener) error {
	ph := newProtocolHandshake(h.registry, sock)
	term := &Terminator{handler: h, listener: listener}

	h.mu.Lock()
	h.terminators[term] = ph
	h.mu.Unlock()

	if err := ph.Start(term); err != nil {
		if closeErr := sock.Close(); closeErr != nil {
			meshlog.Warning("handshake: close socket after failed start: %v", closeErr)
		}
		h.cleanup(term)
		return err
	}
	return nil
}

func (h *Handler) cleanup(t *Terminator) {
	h.mu.Lock()
	delete(h.terminators, t)
	h.mu.Unlock()
}

// Pending reports how many handshakes are currently in flight.
func (h *Handler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.terminators)
}
