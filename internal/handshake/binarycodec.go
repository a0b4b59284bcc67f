package handshake

import (
	"fmt"

	"github.com/meshbus/meshbus/internal/buffer"
	binarycodec "github.com/meshbus/meshbus/internal/codec/binary"
	"github.com/meshbus/meshbus/internal/message"
)

type initPayloadCodec struct{}

func (initPayloadCodec) PayloadSize(msg message.Message) int { return 4 }

func (initPayloadCodec) WritePayload(msg message.Message, out *buffer.OutputBuffer) error {
	m, ok := msg.(*message.DataMessage[InitData])
	if !ok {
		return fmt.Errorf("handshake: unexpected message type for init codec: %T", msg)
	}
	return binarycodec.PutUint32(out, m.Data.MaxVersion)
}

func (initPayloadCodec) ReadPayload(msg message.Message, in *buffer.InputBuffer) error {
	m, ok := msg.(*message.DataMessage[InitData])
	if !ok {
		return fmt.Errorf("handshake: unexpected message type for init codec: %T", msg)
	}
	v, err := binarycodec.GetUint32(in)
	if err != nil {
		return err
	}
	m.Data.MaxVersion = v
	return nil
}

type responseV1PayloadCodec struct{}

func (responseV1PayloadCodec) PayloadSize(msg message.Message) int { return 8 }

func (responseV1PayloadCodec) WritePayload(msg message.Message, out *buffer.OutputBuffer) error {
	m, ok := msg.(*message.DataMessage[ResponseV1Data])
	if !ok {
		return fmt.Errorf("handshake: unexpected message type for response codec: %T", msg)
	}
	if err := binarycodec.PutInt32(out, m.Data.ClientType); err != nil {
		return err
	}
	return binarycodec.PutInt32(out, m.Data.ClientInstance)
}

func (responseV1PayloadCodec) ReadPayload(msg message.Message, in *buffer.InputBuffer) error {
	m, ok := msg.(*message.DataMessage[ResponseV1Data])
	if !ok {
		return fmt.Errorf("handshake: unexpected message type for response codec: %T", msg)
	}
	ct, err := binarycodec.GetInt32(in)
	if err != nil {
		return err
	}
	ci, err := binarycodec.GetInt32(in)
	if err != nil {
		return err
	}
	m.Data.ClientType = ct
	m.Data.ClientInstance = ci
	return nil
}

type completePayloadCodec struct{}

func (completePayloadCodec) PayloadSize(msg message.Message) int { return 4 }

func (completePayloadCodec) WritePayload(msg message.Message, out *buffer.OutputBuffer) error {
	m, ok := msg.(*message.DataMessage[CompleteData])
	if !ok {
		return fmt.Errorf("handshake: unexpected message type for complete codec: %T", msg)
	}
	return binarycodec.PutUint32(out, m.Data.Version)
}

func (completePayloadCodec) ReadPayload(msg message.Message, in *buffer.InputBuffer) error {
	m, ok := msg.(*message.DataMessage[CompleteData])
	if !ok {
		return fmt.Errorf("handshake: unexpected message type for complete codec: %T", msg)
	}
	v, err := binarycodec.GetUint32(in)
	if err != nil {
		return err
	}
	m.Data.Version = v
	return nil
}

// BinaryInitCodec, BinaryResponseV1Codec, BinaryCompleteCodec are the
// registry.Codec values to register the three handshake messages with a
// binary-protocol MessageRegistry.
var (
	BinaryInitCodec       = binarycodec.Codec{Payload: initPayloadCodec{}}
	BinaryResponseV1Codec = binarycodec.Codec{Payload: responseV1PayloadCodec{}}
	BinaryCompleteCodec   = binarycodec.Codec{Payload: completePayloadCodec{}}
)
