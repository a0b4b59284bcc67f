// Package connection implements IConnection and its LocalConnection
// realization, grounded on comms-lib's Connection.h/AbstractConnection and
// LocalConnection.cpp.
package connection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/meshbus/meshbus/internal/bus"
	"github.com/meshbus/meshbus/internal/message"
	"github.com/meshbus/meshbus/internal/packet"
	"github.com/meshbus/meshbus/internal/registry"
)

// MessageListener is notified of every inbound message a connection accepts.
type MessageListener interface {
	MessageReceived(p *packet.Packet)
}

// ErrAlreadyRegistered is returned by RegisterBus when called twice.
var ErrAlreadyRegistered = errors.New("connection: already registered with a bus")

// ErrNotRegistered is returned by operations that require a registered bus.
var ErrNotRegistered = errors.New("connection: not registered with a bus")

// ErrNotConnected is returned by SendMessage/SendPacket when disconnected.
var ErrNotConnected = errors.New("connection: not connected")

// ErrUnregisteredMessage is returned when sending a message type the
// connection's registry doesn't know how to serialize.
var ErrUnregisteredMessage = errors.New("connection: message type not registered with factory")

// IConnection is the addressable, connectable endpoint a Node or bridge
// talks to.
type IConnection interface {
	Type() int
	Instance() int
	IsConnected() bool
	Connect() error
	Disconnect() error
	SendMessage(msg message.Message, recipientType, recipientInstance int) error
	SendPacket(p *packet.Packet) error
	AddMessageListener(l MessageListener)
	RemoveMessageListener(l MessageListener)
}

// Abstract holds the fields every IConnection implementation shares: its
// own address, its message registry, and its listener list.
type Abstract struct {
	registry *registry.MessageRegistry
	connType int
	instance int

	listenersMu sync.Mutex
	listeners   []MessageListener
}

// NewAbstract constructs the shared base for a connection at (connType, instance).
func NewAbstract(reg *registry.MessageRegistry, connType, instance int) *Abstract {
	return &Abstract{registry: reg, connType: connType, instance: instance}
}

func (a *Abstract) Type() int     { return a.connType }
func (a *Abstract) Instance() int { return a.instance }

func (a *Abstract) AddMessageListener(l MessageListener) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *Abstract) RemoveMessageListener(l MessageListener) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	for i, ll := range a.listeners {
		if ll == l {
			a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
			return
		}
	}
}

// Registry exposes the connection's bound message registry to embedders
// in other packages (server.ClientConnection, server.NetworkBusConnection).
func (a *Abstract) Registry() *registry.MessageRegistry { return a.registry }

// Notify delivers p to every currently registered listener.
func (a *Abstract) Notify(p *packet.Packet) {
	a.listenersMu.Lock()
	ls := make([]MessageListener, len(a.listeners))
	copy(ls, a.listeners)
	a.listenersMu.Unlock()
	for _, l := range ls {
		l.MessageReceived(p)
	}
}

// LocalConnection is an IConnection that participates in an in-process bus
// (LocalBus or ThreadedBus), matching comms-lib's LocalConnection.
type LocalConnection struct {
	*Abstract

	mu         sync.Mutex
	b          bus.IBus
	registered bool
	connected  bool
}

// NewLocalConnection constructs an unregistered, disconnected LocalConnection.
func NewLocalConnection(reg *registry.MessageRegistry, connType, instance int) *LocalConnection {
	return &LocalConnection{Abstract: NewAbstract(reg, connType, instance)}
}

// RegisterBus binds the connection to a bus. It is an error to register
// twice; a connection must be re-created to switch buses.
func (c *LocalConnection) RegisterBus(b bus.IBus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return ErrAlreadyRegistered
	}
	c.b = b
	c.registered = true
	return nil
}

// IsConnected reports whether Connect has been called without a matching
// Disconnect.
func (c *LocalConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect joins the registered bus. A no-op if already connected.
func (c *LocalConnection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered {
		return ErrNotRegistered
	}
	if c.connected {
		return nil
	}
	c.b.Connected(c)
	c.connected = true
	return nil
}

// Disconnect leaves the registered bus. A no-op if already disconnected.
func (c *LocalConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered {
		return ErrNotRegistered
	}
	if !c.connected {
		return nil
	}
	c.b.Disconnected(c)
	c.connected = false
	return nil
}

// SendMessage addresses msg to (recipientType, recipientInstance) and
// routes it through the bus. Checks connectedness first, then factory
// registration — in that order, matching LocalConnection::sendMessage.
func (c *LocalConnection) SendMessage(msg message.Message, recipientType, recipientInstance int) error {
	return c.SendPacket(packet.New(msg, recipientType, recipientInstance))
}

// SendPacket is the packet-addressed form of SendMessage.
func (c *LocalConnection) SendPacket(p *packet.Packet) error {
	c.mu.Lock()
	connected, b := c.connected, c.b
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	if !c.registry.IsRegistered(p.Message.Type()) {
		return fmt.Errorf("%w: %s", ErrUnregisteredMessage, p.Message.Type())
	}
	return b.SendMessage(c, p)
}

// Deliver is the inbound half required by bus.Connection: the bus calls
// this when routing a packet to c. Unregistered message types are
// silently dropped, matching LocalConnection's inbound sendMessage
// behavior in the original.
func (c *LocalConnection) Deliver(sender bus.Connection, p *packet.Packet) {
	if !c.registry.IsRegistered(p.Message.Type()) {
		return
	}
	c.Notify(p)
}
