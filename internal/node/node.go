// Package node implements Node and Processor, the application-facing
// endpoint that owns one IConnection and dispatches inbound messages by
// type string to a registered processor. Grounded on comms-lib's Node.cpp
// and Processor.h.
package node

import (
	"errors"
	"sync"

	"github.com/meshbus/meshbus/internal/connection"
	"github.com/meshbus/meshbus/internal/message"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/packet"
)

// ErrNotConnected is returned by SendMessage when the node's connection
// isn't currently connected.
var ErrNotConnected = errors.New("node: not connected")

// Processor handles every inbound message of one type string.
type Processor interface {
	Type() string
	Process(msg message.Message)
}

// Node owns one IConnection and a type-string-keyed table of processors.
type Node struct {
	conn connection.IConnection

	mu         sync.Mutex
	processors map[string]Processor
}

// New constructs a Node over conn, registering itself as conn's message listener.
func New(conn connection.IConnection) *Node {
	n := &Node{conn: conn, processors: make(map[string]Processor)}
	conn.AddMessageListener(n)
	return n
}

func (n *Node) Connect() error    { return n.conn.Connect() }
func (n *Node) IsConnected() bool { return n.conn.IsConnected() }

// Disconnect removes the node as a listener and disconnects the underlying
// connection, matching ~Node()'s teardown order in the original.
func (n *Node) Disconnect() error {
	n.conn.RemoveMessageListener(n)
	return n.conn.Disconnect()
}

// AddProcessor registers p for its own Type(), replacing any processor
// previously registered for that type (last-write-wins, no duplicate
// rejection, matching Node::addProcessor).
func (n *Node) AddProcessor(p Processor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.processors[p.Type()] = p
}

// RemoveProcessor removes p only if it is exactly the processor currently
// registered for its type (identity check, matching Node::removeProcessor's
// pointer comparison).
func (n *Node) RemoveProcessor(p Processor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if cur, ok := n.processors[p.Type()]; ok && cur == p {
		delete(n.processors, p.Type())
	}
}

// SendMessage requires the connection be connected before addressing msg
// to (recipientType, recipientInstance), matching Node::sendMessage.
func (n *Node) SendMessage(msg message.Message, recipientType, recipientInstance int) error {
	if !n.conn.IsConnected() {
		return ErrNotConnected
	}
	return n.conn.SendMessage(msg, recipientType, recipientInstance)
}

// MessageReceived implements connection.MessageListener: it looks up a
// processor by the inbound message's type and drops the packet silently if
// none is registered.
func (n *Node) MessageReceived(p *packet.Packet) {
	n.mu.Lock()
	proc, ok := n.processors[p.Message.Type()]
	n.mu.Unlock()
	if !ok {
		return
	}
	proc.Process(p.Message)
}

// TypedProcessor adapts a typed callback into a Processor, mirroring the
// original's MessageProcessor<T> convenience wrapper over a bare,
// type-asserting IProcessor implementation.
type TypedProcessor[T message.Message] struct {
	msgType string
	fn      func(T)
}

// NewTypedProcessor builds a Processor for msgType that type-asserts each
// inbound message to T before invoking fn.
func NewTypedProcessor[T message.Message](msgType string, fn func(T)) *TypedProcessor[T] {
	return &TypedProcessor[T]{msgType: msgType, fn: fn}
}

func (p *TypedProcessor[T]) Type() string { return p.msgType }

func (p *TypedProcessor[T]) Process(msg message.Message) {
	typed, ok := msg.(T)
	if !ok {
		meshlog.Warning("node: processor for %s received unexpected type %T", p.msgType, msg)
		return
	}
	p.fn(typed)
}
