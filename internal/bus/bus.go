// Package bus implements the routing engine plus its two concrete buses:
// LocalBus (synchronous fan-out) and ThreadedBus (clone-and-schedule
// fan-out on a worker pool). Both share the same four-way address
// resolution algorithm, grounded on the original's AbstractBus::routeMessage
// and its sendToSingleRecipient / broadcastToAllInstancesSingleType /
// broadcastToSingleInstanceAllTypes / broadcastToAll helpers.
package bus

import (
	"sync"

	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/meshstats"
	"github.com/meshbus/meshbus/internal/packet"
)

// Connection is what a bus routes packets to: something addressed by a
// (type, instance) pair that can receive an inbound packet from a sender.
// Equality (==) on Connection values is used for self-send skipping and
// erase-first-match disconnection, exactly as the original compares
// IBusConnection pointers.
type Connection interface {
	Type() int
	Instance() int
	Deliver(sender Connection, p *packet.Packet)
}

// IBus is the routing engine contract both bus flavors satisfy.
type IBus interface {
	Connected(c Connection)
	Disconnected(c Connection)
	SendMessage(sender Connection, p *packet.Packet) error
}

// Bus holds the routing table and implements the shared dispatch algorithm.
// It is embedded by LocalBus and ThreadedBus, neither of which overrides
// routeMessage itself — only how a packet reaches it (synchronously vs via
// a cloned copy on a worker pool).
type Bus struct {
	mu          sync.Mutex
	connections map[int]map[int][]Connection
	Stats       meshstats.Counters
}

func newBus() *Bus {
	return &Bus{connections: make(map[int]map[int][]Connection)}
}

// Connected registers a connection under its own (type, instance) address.
// Multiple connections may share an address; both receive broadcast and
// directly-addressed traffic (multiset semantics).
func (b *Bus) Connected(c Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	byInstance, ok := b.connections[c.Type()]
	if !ok {
		byInstance = make(map[int][]Connection)
		b.connections[c.Type()] = byInstance
	}
	byInstance[c.Instance()] = append(byInstance[c.Instance()], c)
}

// Disconnected removes the first occurrence of c at its own address,
// mirroring the original's erase-first-pointer-match semantics: if the
// same connection was registered twice, one Disconnected call leaves the
// other in place.
func (b *Bus) Disconnected(c Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	byInstance, ok := b.connections[c.Type()]
	if !ok {
		return
	}
	list := byInstance[c.Instance()]
	for i, cc := range list {
		if cc == c {
			byInstance[c.Instance()] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// routeMessage resolves p's addressing coordinates against the routing
// table and fans it out to every matching, non-sender connection. A packet
// that reaches no one — an unknown unicast address, or a broadcast with no
// live connections — is counted and logged as dropped rather than silently
// discarded.
func (b *Bus) routeMessage(sender Connection, p *packet.Packet) {
	b.mu.Lock()
	defer b.mu.Unlock()

	typeBroadcast := p.IsTypeBroadcast()
	instanceBroadcast := p.IsInstanceBroadcast()

	var delivered int
	switch {
	case typeBroadcast && instanceBroadcast:
		delivered = b.broadcastToAll(sender, p)
	case typeBroadcast:
		delivered = b.broadcastToSingleInstanceAllTypes(sender, p)
	case instanceBroadcast:
		delivered = b.broadcastToAllInstancesSingleType(sender, p)
	default:
		delivered = b.sendToSingleRecipient(sender, p)
	}

	b.Stats.Routed.Add(1)
	if typeBroadcast || instanceBroadcast {
		b.Stats.Broadcasts.Add(1)
	}
	if delivered == 0 {
		b.Stats.Dropped.Add(1)
		meshlog.Warning("bus: no connection for type=%d instance=%d, dropping packet", p.RecipientType, p.RecipientInstance)
	}
}

func (b *Bus) sendToRecipient(sender, c Connection, p *packet.Packet) bool {
	if c == sender {
		return false
	}
	c.Deliver(sender, p)
	return true
}

func (b *Bus) sendToSingleRecipient(sender Connection, p *packet.Packet) int {
	delivered := 0
	for _, c := range b.connections[p.RecipientType][p.RecipientInstance] {
		if b.sendToRecipient(sender, c, p) {
			delivered++
		}
	}
	return delivered
}

func (b *Bus) broadcastToAllInstancesSingleType(sender Connection, p *packet.Packet) int {
	delivered := 0
	for _, conns := range b.connections[p.RecipientType] {
		for _, c := range conns {
			if b.sendToRecipient(sender, c, p) {
				delivered++
			}
		}
	}
	return delivered
}

func (b *Bus) broadcastToSingleInstanceAllTypes(sender Connection, p *packet.Packet) int {
	delivered := 0
	for _, byInstance := range b.connections {
		for _, c := range byInstance[p.RecipientInstance] {
			if b.sendToRecipient(sender, c, p) {
				delivered++
			}
		}
	}
	return delivered
}

func (b *Bus) broadcastToAll(sender Connection, p *packet.Packet) int {
	delivered := 0
	for _, byInstance := range b.connections {
		for _, conns := range byInstance {
			for _, c := range conns {
				if b.sendToRecipient(sender, c, p) {
					delivered++
				}
			}
		}
	}
	return delivered
}
