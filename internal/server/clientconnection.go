// Package server implements the network-facing side of a bus: the
// wire-facing IConnection a socket feeds (ClientConnection), the adapter
// that bridges it onto a bus (NetworkBusConnection), ServerBus, which holds
// the idempotent connection bookkeeping, and ListenAndServe, which runs the
// TCP accept loop. Grounded
// on comms-lib's BasicServerConnection, NetworkBusConnection, and ServerBus.
package server

import (
	"errors"

	"github.com/google/uuid"

	"github.com/meshbus/meshbus/internal/connection"
	"github.com/meshbus/meshbus/internal/message"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/packet"
	"github.com/meshbus/meshbus/internal/registry"
	"github.com/meshbus/meshbus/internal/socket"
)

// ErrServerManaged is returned by ClientConnection.Disconnect: a server
// connection's lifecycle is driven by the socket, not by its callers.
var ErrServerManaged = errors.New("server: disconnection is server-managed")

// ClientConnection is the wire-facing IConnection wrapping one accepted
// socket. It is always connected from the moment it's constructed, matching
// BasicServerConnection's isConnected()/connect() always returning true.
type ClientConnection struct {
	*connection.Abstract
	handler socket.DataHandler

	// correlationID has no bearing on routing (that's the handshake's
	// (type, instance) pair) — it exists purely so log lines about this
	// connection can be tied together across accept, handshake, and teardown.
	correlationID string
}

// NewClientConnection wraps handler as an IConnection addressed at
// (connType, instance), the coordinates the handshake recovered from the
// client's HandshakeResponseMessageV1.
func NewClientConnection(reg *registry.MessageRegistry, connType, instance int, handler socket.DataHandler) *ClientConnection {
	c := &ClientConnection{
		Abstract:      connection.NewAbstract(reg, connType, instance),
		handler:       handler,
		correlationID: uuid.NewString(),
	}
	handler.AddListener(c)
	return c
}

// CorrelationID identifies this connection in log output, independent of
// its (type, instance) routing address.
func (c *ClientConnection) CorrelationID() string { return c.correlationID }

func (c *ClientConnection) IsConnected() bool { return true }
func (c *ClientConnection) Connect() error    { return nil }
func (c *ClientConnection) Disconnect() error { return ErrServerManaged }

// SendMessage serializes msg addressed to (recipientType, recipientInstance)
// and writes it to the underlying socket.
func (c *ClientConnection) SendMessage(msg message.Message, recipientType, recipientInstance int) error {
	return c.SendPacket(packet.New(msg, recipientType, recipientInstance))
}

// SendPacket serializes p and writes it to the underlying socket. A
// serialize failure is returned to the caller with nothing written, the
// "discard buffer, propagate to sender" rule MessageRegistry.SerializePacket
// documents.
func (c *ClientConnection) SendPacket(p *packet.Packet) error {
	data, err := c.Registry().SerializePacket(p)
	if err != nil {
		return err
	}
	return c.handler.Send(data)
}

// MessageReceived implements socket.Listener: inbound wire bytes are
// deserialized and, on success, delivered to every message listener.
// Inbound codec errors are logged and dropped without killing the
// connection or the routing loop.
func (c *ClientConnection) MessageReceived(data []byte) {
	pkt, err := c.Registry().DeserializePacket(data)
	if err != nil {
		meshlog.Warning("server: [%s] dropping unparseable message: %v", c.correlationID, err)
		return
	}
	c.Notify(pkt)
}
