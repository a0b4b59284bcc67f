package node_test

import (
	"errors"
	"testing"

	binarycodec "github.com/meshbus/meshbus/internal/codec/binary"
	"github.com/meshbus/meshbus/internal/bus"
	"github.com/meshbus/meshbus/internal/connection"
	"github.com/meshbus/meshbus/internal/handshake"
	"github.com/meshbus/meshbus/internal/message"
	"github.com/meshbus/meshbus/internal/node"
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

type recordingProcessor struct {
	msgType string
	got     []message.Message
}

func (p *recordingProcessor) Type() string { return p.msgType }
func (p *recordingProcessor) Process(msg message.Message) {
	p.got = append(p.got, msg)
}

func TestNodeRoutesToRegisteredProcessor(t *testing.T) {
	reg := newRegistry(t)
	b := bus.NewLocalBus()
	sender := connection.NewLocalConnection(reg, 9, 9)
	if err := sender.RegisterBus(b); err != nil {
		t.Fatalf("sender RegisterBus: %v", err)
	}
	if err := sender.Connect(); err != nil {
		t.Fatalf("sender Connect: %v", err)
	}

	conn := connection.NewLocalConnection(reg, 1, 1)
	if err := conn.RegisterBus(b); err != nil {
		t.Fatalf("RegisterBus: %v", err)
	}
	n := node.New(conn)
	if err := n.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	proc := &recordingProcessor{msgType: handshake.TypeInit}
	n.AddProcessor(proc)

	if err := sender.SendMessage(handshake.NewInitMessage(1), 1, 1); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(proc.got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(proc.got))
	}
}

func TestNodeDropsMessagesWithNoProcessor(t *testing.T) {
	reg := newRegistry(t)
	b := bus.NewLocalBus()
	sender := connection.NewLocalConnection(reg, 9, 9)
	sender.RegisterBus(b)
	sender.Connect()

	conn := connection.NewLocalConnection(reg, 1, 1)
	conn.RegisterBus(b)
	n := node.New(conn)
	n.Connect()

	// No processor registered; this should not panic.
	if err := sender.SendMessage(handshake.NewInitMessage(1), 1, 1); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
}

func TestAddProcessorReplacesByType(t *testing.T) {
	reg := newRegistry(t)
	conn := connection.NewLocalConnection(reg, 1, 1)
	n := node.New(conn)

	first := &recordingProcessor{msgType: handshake.TypeInit}
	second := &recordingProcessor{msgType: handshake.TypeInit}
	n.AddProcessor(first)
	n.AddProcessor(second)

	n.MessageReceived(packetFor())
	if len(first.got) != 0 {
		t.Errorf("replaced processor should not receive messages, got %d", len(first.got))
	}
	if len(second.got) != 1 {
		t.Errorf("replacing processor should receive the message, got %d", len(second.got))
	}
}

func TestRemoveProcessorRequiresIdentityMatch(t *testing.T) {
	reg := newRegistry(t)
	conn := connection.NewLocalConnection(reg, 1, 1)
	n := node.New(conn)

	p1 := &recordingProcessor{msgType: handshake.TypeInit}
	p2 := &recordingProcessor{msgType: handshake.TypeInit}
	n.AddProcessor(p1)

	// Removing a different instance registered for the same type is a no-op.
	n.RemoveProcessor(p2)
	n.MessageReceived(packetFor())
	if len(p1.got) != 1 {
		t.Fatalf("p1 should still be registered, got %d deliveries", len(p1.got))
	}

	n.RemoveProcessor(p1)
	n.MessageReceived(packetFor())
	if len(p1.got) != 1 {
		t.Fatalf("p1 should no longer receive after removal, got %d deliveries", len(p1.got))
	}
}

func TestSendMessageRequiresConnected(t *testing.T) {
	reg := newRegistry(t)
	b := bus.NewLocalBus()
	conn := connection.NewLocalConnection(reg, 1, 1)
	conn.RegisterBus(b)
	n := node.New(conn)

	err := n.SendMessage(handshake.NewInitMessage(1), 2, 2)
	if !errors.Is(err, node.ErrNotConnected) {
		t.Fatalf("SendMessage before connect = %v, want ErrNotConnected", err)
	}
}

func TestTypedProcessorDeliversMatchingType(t *testing.T) {
	reg := newRegistry(t)
	conn := connection.NewLocalConnection(reg, 1, 1)
	n := node.New(conn)

	var got int32 = -1
	tp := node.NewTypedProcessor(handshake.TypeInit, func(m *message.DataMessage[handshake.InitData]) {
		got = int32(m.Data.MaxVersion)
	})
	n.AddProcessor(tp)

	n.MessageReceived(packetFor())
	if got != 1 {
		t.Fatalf("typed processor should have extracted MaxVersion=1, got %d", got)
	}
}

func packetFor() *packet.Packet {
	return packet.New(handshake.NewInitMessage(1), packet.Broadcast, packet.Broadcast)
}
