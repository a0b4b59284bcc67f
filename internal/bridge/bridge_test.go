package bridge_test

import (
	"testing"

	"github.com/meshbus/meshbus/internal/bridge"
	"github.com/meshbus/meshbus/internal/bus"
	binarycodec "github.com/meshbus/meshbus/internal/codec/binary"
	"github.com/meshbus/meshbus/internal/connection"
	"github.com/meshbus/meshbus/internal/handshake"
	"github.com/meshbus/meshbus/internal/packet"
	"github.com/meshbus/meshbus/internal/registry"
)

func newRegistry(t *testing.T) *registry.MessageRegistry {
	t.Helper()
	reg := registry.New(binarycodec.Protocol{}, registry.BufferSizeAuto)
	if err := reg.Register(handshake.NewInitMessage(1), handshake.BinaryInitCodec); err != nil {
		t.Fatalf("register init: %v", err)
	}
	if err := reg.Register(handshake.NewCompleteMessage(1), handshake.BinaryCompleteCodec); err != nil {
		t.Fatalf("register complete: %v", err)
	}
	return reg
}

type listenerFunc func()

func (l listenerFunc) MessageReceived(p *packet.Packet) { l() }

func TestBridgeForwardsMappedType(t *testing.T) {
	reg := newRegistry(t)
	bus1 := bus.NewLocalBus()
	bus2 := bus.NewLocalBus()

	internal := connection.NewLocalConnection(reg, 100, 1)
	external := connection.NewLocalConnection(reg, 200, 1)
	internal.RegisterBus(bus1)
	internal.Connect()
	external.RegisterBus(bus2)
	external.Connect()

	br := bridge.New(internal, external)
	br.AddForwardToExternalRule(handshake.TypeInit, 2, 1)

	recipient := connection.NewLocalConnection(reg, 2, 1)
	recipient.RegisterBus(bus2)
	recipient.Connect()

	var got int
	recipient.AddMessageListener(listenerFunc(func() { got++ }))

	sender := connection.NewLocalConnection(reg, 1, 1)
	sender.RegisterBus(bus1)
	sender.Connect()
	if err := sender.SendMessage(handshake.NewInitMessage(1), internal.Type(), internal.Instance()); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if got != 1 {
		t.Fatalf("expected the bridge to forward to the mapped recipient once, got %d", got)
	}
}

func TestBridgeIgnoresUnmappedType(t *testing.T) {
	reg := newRegistry(t)
	bus1 := bus.NewLocalBus()
	bus2 := bus.NewLocalBus()

	internal := connection.NewLocalConnection(reg, 100, 1)
	external := connection.NewLocalConnection(reg, 200, 1)
	internal.RegisterBus(bus1)
	internal.Connect()
	external.RegisterBus(bus2)
	external.Connect()

	br := bridge.New(internal, external)
	br.AddForwardToExternalRule(handshake.TypeInit, 2, 1)

	recipient := connection.NewLocalConnection(reg, 2, 1)
	recipient.RegisterBus(bus2)
	recipient.Connect()

	var got int
	recipient.AddMessageListener(listenerFunc(func() { got++ }))

	sender := connection.NewLocalConnection(reg, 1, 1)
	sender.RegisterBus(bus1)
	sender.Connect()

	// TypeComplete has no rule registered, so it must not cross the bridge.
	if err := sender.SendMessage(handshake.NewCompleteMessage(1), internal.Type(), internal.Instance()); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got != 0 {
		t.Fatalf("unmapped message type should not be forwarded, got %d deliveries", got)
	}
}

func TestBridgeAddRuleOverwritesEarlierRule(t *testing.T) {
	reg := newRegistry(t)
	bus1 := bus.NewLocalBus()
	bus2 := bus.NewLocalBus()

	internal := connection.NewLocalConnection(reg, 100, 1)
	external := connection.NewLocalConnection(reg, 200, 1)
	internal.RegisterBus(bus1)
	internal.Connect()
	external.RegisterBus(bus2)
	external.Connect()

	br := bridge.New(internal, external)
	br.AddForwardToExternalRule(handshake.TypeInit, 2, 1)
	br.AddForwardToExternalRule(handshake.TypeInit, 3, 1) // overwrite

	oldRecipient := connection.NewLocalConnection(reg, 2, 1)
	oldRecipient.RegisterBus(bus2)
	oldRecipient.Connect()
	var oldGot int
	oldRecipient.AddMessageListener(listenerFunc(func() { oldGot++ }))

	newRecipient := connection.NewLocalConnection(reg, 3, 1)
	newRecipient.RegisterBus(bus2)
	newRecipient.Connect()
	var newGot int
	newRecipient.AddMessageListener(listenerFunc(func() { newGot++ }))

	sender := connection.NewLocalConnection(reg, 1, 1)
	sender.RegisterBus(bus1)
	sender.Connect()
	if err := sender.SendMessage(handshake.NewInitMessage(1), internal.Type(), internal.Instance()); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if oldGot != 0 {
		t.Errorf("the overwritten rule's recipient should not receive anything, got %d", oldGot)
	}
	if newGot != 1 {
		t.Errorf("the overwriting rule's recipient should receive once, got %d", newGot)
	}
}
