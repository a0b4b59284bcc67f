// Package bridge implements BridgeNode, a selective forwarder between two
// buses' connections. Grounded on comms-lib's BridgeNode.h: two
// independent MessageForwarders, each registering itself as a listener on
// its source connection at construction time and forwarding only message
// types it has an explicit routing rule for. No cloning, no cycle
// protection — a misconfigured pair of rules can loop forever, exactly as
// in the original.
package bridge

import (
	"sync"

	"github.com/meshbus/meshbus/internal/connection"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/packet"
)

type route struct {
	nodeType     int
	nodeInstance int
}

// MessageForwarder listens on one connection and re-sends a configured
// subset of message types to another.
type MessageForwarder struct {
	from connection.IConnection
	to   connection.IConnection

	mu      sync.Mutex
	routing map[string]route
}

// NewMessageForwarder registers itself as a listener on from; messages
// with no matching rule are ignored.
func NewMessageForwarder(from, to connection.IConnection) *MessageForwarder {
	f := &MessageForwarder{from: from, to: to, routing: make(map[string]route)}
	from.AddMessageListener(f)
	return f
}

// AddRule routes messageType to (nodeType, nodeInstance) on the
// destination connection. Calling it again for the same type overwrites
// the previous rule.
func (f *MessageForwarder) AddRule(messageType string, nodeType, nodeInstance int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routing[messageType] = route{nodeType: nodeType, nodeInstance: nodeInstance}
}

// MessageReceived implements connection.MessageListener.
func (f *MessageForwarder) MessageReceived(p *packet.Packet) {
	f.mu.Lock()
	r, ok := f.routing[p.Message.Type()]
	f.mu.Unlock()
	if !ok {
		return
	}
	if err := f.to.SendMessage(p.Message, r.nodeType, r.nodeInstance); err != nil {
		meshlog.Warning("bridge: failed to forward %s: %v", p.Message.Type(), err)
	}
}

// BridgeNode pairs two MessageForwarders to selectively bridge traffic
// between an "internal" and an "external" connection in both directions.
type BridgeNode struct {
	internalToExternal *MessageForwarder
	externalToInternal *MessageForwarder
}

// New constructs a BridgeNode between internal and external, with no
// forwarding rules configured yet.
func New(internal, external connection.IConnection) *BridgeNode {
	return &BridgeNode{
		internalToExternal: NewMessageForwarder(internal, external),
		externalToInternal: NewMessageForwarder(external, internal),
	}
}

// AddForwardToExternalRule forwards messageType seen on the internal
// connection to (nodeType, nodeInstance) on the external connection.
func (b *BridgeNode) AddForwardToExternalRule(messageType string, nodeType, nodeInstance int) {
	b.internalToExternal.AddRule(messageType, nodeType, nodeInstance)
}

// AddForwardToInternalRule forwards messageType seen on the external
// connection to (nodeType, nodeInstance) on the internal connection.
func (b *BridgeNode) AddForwardToInternalRule(messageType string, nodeType, nodeInstance int) {
	b.externalToInternal.AddRule(messageType, nodeType, nodeInstance)
}
