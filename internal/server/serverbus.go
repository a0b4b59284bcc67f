package server

import (
	"sync"

	"github.com/meshbus/meshbus/internal/bus"
	"github.com/meshbus/meshbus/internal/connection"
)

// ServerBus owns the map from each accepted wire connection to the
// NetworkBusConnection bridging it onto the underlying bus. ClientConnected
// is idempotent — calling it twice for the same IConnection is a no-op —
// matching comms-lib's ServerBus::clientConnected.
type ServerBus struct {
	bus bus.IBus

	mu          sync.Mutex
	connections map[connection.IConnection]*NetworkBusConnection
}

// NewServerBus creates a ServerBus fronting b.
func NewServerBus(b bus.IBus) *ServerBus {
	return &ServerBus{bus: b, connections: make(map[connection.IConnection]*NetworkBusConnection)}
}

// ClientConnected wraps conn in a NetworkBusConnection and joins it to the
// bus, unless conn is already known.
func (s *ServerBus) ClientConnected(conn connection.IConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.connections[conn]; exists {
		return
	}
	nbc := NewNetworkBusConnection(conn)
	nbc.RegisterBus(s.bus)
	s.connections[conn] = nbc
}

// ClientDisconnected leaves the bus and forgets conn, if known.
func (s *ServerBus) ClientDisconnected(conn connection.IConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nbc, exists := s.connections[conn]
	if !exists {
		return
	}
	nbc.Disconnect()
	delete(s.connections, conn)
}

// ConnectionCount reports how many clients are currently bridged.
func (s *ServerBus) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}
