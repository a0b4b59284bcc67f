package connection_test

import (
	"errors"
	"testing"

	binarycodec "github.com/meshbus/meshbus/internal/codec/binary"
	"github.com/meshbus/meshbus/internal/bus"
	"github.com/meshbus/meshbus/internal/connection"
	"github.com/meshbus/meshbus/internal/handshake"
	"github.com/meshbus/meshbus/internal/message"
	"github.com/meshbus/meshbus/internal/packet"
	"github.com/meshbus/meshbus/internal/registry"
)

func newRegistry(t *testing.T) *registry.MessageRegistry {
	t.Helper()
	reg := registry.New(binarycodec.Protocol{}, registry.BufferSizeAuto)
	if err := reg.Register(handshake.NewInitMessage(1), handshake.BinaryInitCodec); err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func packetFor(t *testing.T, reg *registry.MessageRegistry) *packet.Packet {
	t.Helper()
	return packet.New(handshake.NewInitMessage(1), packet.Broadcast, packet.Broadcast)
}

func TestRegisterBusTwiceFails(t *testing.T) {
	reg := newRegistry(t)
	c := connection.NewLocalConnection(reg, 1, 1)
	b := bus.NewLocalBus()

	if err := c.RegisterBus(b); err != nil {
		t.Fatalf("first RegisterBus: %v", err)
	}
	if err := c.RegisterBus(b); !errors.Is(err, connection.ErrAlreadyRegistered) {
		t.Fatalf("second RegisterBus() = %v, want ErrAlreadyRegistered", err)
	}
}

func TestConnectDisconnectIdempotent(t *testing.T) {
	reg := newRegistry(t)
	c := connection.NewLocalConnection(reg, 1, 1)
	b := bus.NewLocalBus()
	if err := c.RegisterBus(b); err != nil {
		t.Fatalf("RegisterBus: %v", err)
	}

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("second Connect should be a no-op, got %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("second Disconnect should be a no-op, got %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("expected disconnected")
	}
}

func TestSendMessageChecksConnectionBeforeRegistration(t *testing.T) {
	reg := newRegistry(t)
	c := connection.NewLocalConnection(reg, 1, 1)
	b := bus.NewLocalBus()
	if err := c.RegisterBus(b); err != nil {
		t.Fatalf("RegisterBus: %v", err)
	}

	unregisteredMsg := message.NewDataMessage("not-registered", 0)
	if err := c.SendMessage(unregisteredMsg, 2, 2); !errors.Is(err, connection.ErrNotConnected) {
		t.Fatalf("SendMessage while disconnected = %v, want ErrNotConnected", err)
	}

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.SendMessage(unregisteredMsg, 2, 2); !errors.Is(err, connection.ErrUnregisteredMessage) {
		t.Fatalf("SendMessage with unknown type = %v, want ErrUnregisteredMessage", err)
	}
}

func TestMessageListenersReceiveDelivered(t *testing.T) {
	reg := newRegistry(t)
	c := connection.NewLocalConnection(reg, 1, 1)

	var received int
	// A pointer, so RemoveMessageListener's identity comparison can match it.
	fn := recordingListener(func() { received++ })
	listener := &fn
	c.AddMessageListener(listener)

	c.Deliver(nil, packetFor(t, reg))
	if received != 1 {
		t.Fatalf("listener should have been notified once, got %d", received)
	}

	c.RemoveMessageListener(listener)
	c.Deliver(nil, packetFor(t, reg))
	if received != 1 {
		t.Fatalf("listener should not be notified after removal, got %d", received)
	}
}

type recordingListener func()

func (l recordingListener) MessageReceived(p *packet.Packet) { l() }
