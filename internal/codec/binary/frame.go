package binary

import (
	"errors"

	"github.com/meshbus/meshbus/internal/buffer"
	"github.com/meshbus/meshbus/internal/codec"
	"github.com/meshbus/meshbus/internal/message"
)

// PayloadCodec is the per-message-type binary payload contract. Concrete
// message types (handshake messages, application messages) implement this
// once; frameSerializer/frameDeserializer below handle the shared
// type-string + recipient-coordinate framing around it.
type PayloadCodec interface {
	PayloadSize(msg message.Message) int
	WritePayload(msg message.Message, out *buffer.OutputBuffer) error
	ReadPayload(msg message.Message, in *buffer.InputBuffer) error
}

// frameSerializer writes [type][recipientType][recipientInstance][payload].
type frameSerializer struct {
	msgType           string
	recipientType     int32
	recipientInstance int32
	payloadSize       int
	writePayload      func(out *buffer.OutputBuffer) error
}

func (s *frameSerializer) Size() int {
	return SizeOfString(s.msgType) + 4 + 4 + s.payloadSize
}

func (s *frameSerializer) WriteTo(out *buffer.OutputBuffer) error {
	if err := PutString(out, s.msgType); err != nil {
		return err
	}
	if err := PutInt32(out, s.recipientType); err != nil {
		return err
	}
	if err := PutInt32(out, s.recipientInstance); err != nil {
		return err
	}
	return s.writePayload(out)
}

// Codec adapts a PayloadCodec into the registry's per-message-type Codec
// contract (BuildSerializer / DeserializeInto), framed with the binary
// wire layout.
type Codec struct {
	Payload PayloadCodec
}

func (c Codec) BuildSerializer(msg message.Message, recipientType, recipientInstance int) (codec.Serializer, error) {
	return &frameSerializer{
		msgType:           msg.Type(),
		recipientType:     int32(recipientType),
		recipientInstance: int32(recipientInstance),
		payloadSize:       c.Payload.PayloadSize(msg),
		writePayload: func(out *buffer.OutputBuffer) error {
			return c.Payload.WritePayload(msg, out)
		},
	}, nil
}

func (c Codec) DeserializeInto(msg message.Message, d codec.Deserializer) error {
	return c.Payload.ReadPayload(msg, d.Payload())
}

// deserializer is the binary Protocol's codec.Deserializer implementation:
// the type/recipient header has already been parsed by CreateDeserializer,
// leaving Payload() positioned at the start of the message-specific bytes.
type deserializer struct {
	msgType           string
	recipientType     int
	recipientInstance int
	payload           *buffer.InputBuffer
}

func (d *deserializer) MessageType() string    { return d.msgType }
func (d *deserializer) RecipientType() int     { return d.recipientType }
func (d *deserializer) RecipientInstance() int { return d.recipientInstance }
func (d *deserializer) Payload() *buffer.InputBuffer { return d.payload }

// Protocol implements codec.Protocol for the binary wire format.
type Protocol struct{}

var ErrShortFrame = errors.New("binary: frame shorter than header")

func (Protocol) CreateDeserializer(in *buffer.InputBuffer) (codec.Deserializer, error) {
	msgType, err := GetString(in)
	if err != nil {
		return nil, err
	}
	rt, err := GetInt32(in)
	if err != nil {
		return nil, err
	}
	ri, err := GetInt32(in)
	if err != nil {
		return nil, err
	}
	return &deserializer{
		msgType:           msgType,
		recipientType:     int(rt),
		recipientInstance: int(ri),
		payload:           in,
	}, nil
}
