// Package jsoncodec implements the JSON wire codec: a flat envelope of
// {"data":<payload>,"instance":<recipientInstance>,"message":"<type>",
// "type":<recipientType>} with lexicographically ordered keys, matching
// spec.md's JSON layout. One TCP read is one full JSON document — there is
// no separate length framing the way the binary codec needs one.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"github.com/meshbus/meshbus/internal/buffer"
	"github.com/meshbus/meshbus/internal/codec"
	"github.com/meshbus/meshbus/internal/message"
)

// envelope's field order matches encoding/json's struct-order marshaling,
// which here happens to already be lexicographic (data, instance, message, type).
type envelope struct {
	Data     json.RawMessage `json:"data"`
	Instance int             `json:"instance"`
	Message  string          `json:"message"`
	Type     int             `json:"type"`
}

type serializer struct {
	bytes []byte
}

func (s *serializer) Size() int { return len(s.bytes) }

func (s *serializer) WriteTo(out *buffer.OutputBuffer) error {
	return out.Append(s.bytes)
}

// Codec adapts a typed DataMessage[T] into the registry's per-message-type
// Codec contract using encoding/json for the payload field.
type Codec[T any] struct{}

func (Codec[T]) BuildSerializer(msg message.Message, recipientType, recipientInstance int) (codec.Serializer, error) {
	m, ok := msg.(*message.DataMessage[T])
	if !ok {
		return nil, fmt.Errorf("jsoncodec: unexpected message type %T for %s", msg, msg.Type())
	}
	payload, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: marshal payload: %w", err)
	}
	env := envelope{
		Data:     payload,
		Instance: recipientInstance,
		Message:  msg.Type(),
		Type:     recipientType,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: marshal envelope: %w", err)
	}
	return &serializer{bytes: out}, nil
}

func (Codec[T]) DeserializeInto(msg message.Message, d codec.Deserializer) error {
	m, ok := msg.(*message.DataMessage[T])
	if !ok {
		return fmt.Errorf("jsoncodec: unexpected message type %T for %s", msg, msg.Type())
	}
	in := d.Payload()
	raw, err := in.Take(in.Remaining())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &m.Data)
}

type deserializer struct {
	msgType           string
	recipientType     int
	recipientInstance int
	payload           *buffer.InputBuffer
}

func (d *deserializer) MessageType() string          { return d.msgType }
func (d *deserializer) RecipientType() int           { return d.recipientType }
func (d *deserializer) RecipientInstance() int       { return d.recipientInstance }
func (d *deserializer) Payload() *buffer.InputBuffer { return d.payload }

// Protocol implements codec.Protocol for the JSON wire format.
type Protocol struct{}

func (Protocol) CreateDeserializer(in *buffer.InputBuffer) (codec.Deserializer, error) {
	raw, err := in.Take(in.Remaining())
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("jsoncodec: unmarshal envelope: %w", err)
	}
	return &deserializer{
		msgType:           env.Message,
		recipientType:     env.Type,
		recipientInstance: env.Instance,
		payload:           buffer.NewInputBuffer(env.Data),
	}, nil
}
