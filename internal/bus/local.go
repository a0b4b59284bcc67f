package bus

import "github.com/meshbus/meshbus/internal/packet"

// LocalBus routes a packet synchronously, on the caller's own goroutine,
// matching the original's LocalBasicBus (no cloning, no indirection).
type LocalBus struct {
	*Bus
}

// NewLocalBus creates an empty, synchronous in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{Bus: newBus()}
}

// SendMessage routes p to every matching connection before returning.
func (b *LocalBus) SendMessage(sender Connection, p *packet.Packet) error {
	b.routeMessage(sender, p)
	return nil
}
