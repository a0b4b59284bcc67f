// Package packet defines MessagePacket, the addressed envelope a bus routes.
package packet

import "github.com/meshbus/meshbus/internal/message"

// Broadcast is the canonical wildcard sentinel. Per the original C++
// implementation (MessagePacket::isTypeBroadcast/isInstanceBroadcast), any
// value less than or equal to Broadcast is a wildcard, not only the exact
// sentinel value.
const Broadcast = -1

// Packet pairs a Message with routing coordinates. Owned marks packets that
// were deep-cloned for a threaded bus's worker-pool handoff; such packets'
// Message is freed (eligible for GC) once routing completes, matching the
// original's clone-then-delete ownership contract. Owned is irrelevant to a
// synchronous local bus, which never clones.
type Packet struct {
	Message           message.Message
	RecipientType     int
	RecipientInstance int
	Owned             bool
}

// New constructs a non-owning packet, the form used for synchronous sends.
func New(msg message.Message, recipientType, recipientInstance int) *Packet {
	return &Packet{Message: msg, RecipientType: recipientType, RecipientInstance: recipientInstance}
}

// IsTypeBroadcast reports whether the recipient type field is a wildcard.
func (p *Packet) IsTypeBroadcast() bool {
	return p.RecipientType <= Broadcast
}

// IsInstanceBroadcast reports whether the recipient instance field is a wildcard.
func (p *Packet) IsInstanceBroadcast() bool {
	return p.RecipientInstance <= Broadcast
}

// Clone deep-clones the wrapped message and returns a new, owning Packet.
// This is what a threaded bus calls before handing the clone to a worker.
func (p *Packet) Clone() *Packet {
	return &Packet{
		Message:           p.Message.Clone(),
		RecipientType:     p.RecipientType,
		RecipientInstance: p.RecipientInstance,
		Owned:             true,
	}
}
