package server

import (
	"errors"
	"sync"

	"github.com/meshbus/meshbus/internal/bus"
	"github.com/meshbus/meshbus/internal/connection"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/packet"
)

// ErrAlreadyRegistered mirrors connection.ErrAlreadyRegistered for the
// bus-side registration a NetworkBusConnection performs.
var ErrAlreadyRegistered = errors.New("server: network connection already registered with a bus")

// ErrNotRegistered mirrors connection.ErrNotRegistered for bus-side ops.
var ErrNotRegistered = errors.New("server: network connection not registered with a bus")

// NetworkBusConnection is the bidirectional bridge between one wire
// connection and a bus: it implements bus.Connection so the bus can
// deliver routed packets to the wire (Deliver), and it implements
// connection.MessageListener so inbound wire traffic is forwarded into the
// bus (MessageReceived). Grounded on comms-lib's NetworkBusConnection,
// which plays exactly this dual IBusConnection/IMessageListener role.
type NetworkBusConnection struct {
	conn connection.IConnection

	mu         sync.Mutex
	bus        bus.IBus
	registered bool
}

// NewNetworkBusConnection wraps conn, registering itself as conn's message
// listener so inbound wire messages reach MessageReceived below.
func NewNetworkBusConnection(conn connection.IConnection) *NetworkBusConnection {
	n := &NetworkBusConnection{conn: conn}
	conn.AddMessageListener(n)
	return n
}

func (n *NetworkBusConnection) Type() int     { return n.conn.Type() }
func (n *NetworkBusConnection) Instance() int { return n.conn.Instance() }

// RegisterBus joins b, the mirror image of LocalConnection.RegisterBus but
// triggered server-side once a socket finishes its handshake.
func (n *NetworkBusConnection) RegisterBus(b bus.IBus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.registered {
		return ErrAlreadyRegistered
	}
	n.bus = b
	n.registered = true
	b.Connected(n)
	return nil
}

// Disconnect leaves the bus. The underlying wire connection's own lifecycle
// is server-managed (see ClientConnection.Disconnect) and is not touched
// here; the socket closes itself when its read loop ends, and its onClose
// callback reaches ServerBus.ClientDisconnected, which calls this method.
func (n *NetworkBusConnection) Disconnect() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.registered {
		return ErrNotRegistered
	}
	n.bus.Disconnected(n)
	n.bus = nil
	n.registered = false
	return nil
}

// Deliver is the bus-to-wire direction: the bus routed p to this
// connection, so it gets written out over the socket.
func (n *NetworkBusConnection) Deliver(sender bus.Connection, p *packet.Packet) {
	if err := n.conn.SendPacket(p); err != nil {
		meshlog.Warning("server: failed to forward packet to wire: %v", err)
	}
}

// MessageReceived is the wire-to-bus direction: the wrapped connection
// decoded a packet off the socket, so it gets routed through the bus.
func (n *NetworkBusConnection) MessageReceived(p *packet.Packet) {
	n.mu.Lock()
	b, registered := n.bus, n.registered
	n.mu.Unlock()
	if !registered {
		return
	}
	if err := b.SendMessage(n, p); err != nil {
		meshlog.Warning("server: failed to route inbound packet: %v", err)
	}
}
