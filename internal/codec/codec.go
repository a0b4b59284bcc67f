// Package codec defines the protocol-agnostic façade a MessageRegistry uses
// to turn a Packet into wire bytes and back, independent of whether the
// concrete wire format is the binary codec or the JSON codec.
package codec

import (
	"github.com/meshbus/meshbus/internal/buffer"
)

// Serializer knows how to write one already-addressed message to an
// OutputBuffer. Size must report the exact number of bytes WriteTo will
// produce, so a registry can size its OutputBuffer before writing (the
// AUTO_SIZE mode described in SPEC_FULL.md §6).
type Serializer interface {
	Size() int
	WriteTo(out *buffer.OutputBuffer) error
}

// Deserializer reads a message's wire form back out of an InputBuffer. By
// the time a Protocol hands one back, the message-type and recipient
// header fields are already parsed; Payload exposes the remaining,
// message-specific bytes for the registry's per-type Codec to consume.
type Deserializer interface {
	MessageType() string
	RecipientType() int
	RecipientInstance() int
	Payload() *buffer.InputBuffer
}

// Protocol is what a wire format (binary or JSON) supplies to parse a raw
// frame into a Deserializer. Serializers are not built here: each message
// type's registry.Codec builds its own via BuildSerializer.
type Protocol interface {
	CreateDeserializer(in *buffer.InputBuffer) (Deserializer, error)
}
