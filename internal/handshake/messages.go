// Package handshake implements the three-message TCP onboarding protocol
// (HandshakeInit -> HandshakeResponseV1 -> HandshakeComplete) and the
// HandshakeHandler/Terminator state machine that drives it, grounded on the
// original's ProtocolHandshake/HandshakeHandler/HandshakeTerminator trio.
package handshake

import "github.com/meshbus/meshbus/internal/message"

const (
	TypeInit        = "HandshakeInitMessage"
	TypeResponseV1  = "HandshakeResponseMessageV1"
	TypeComplete    = "HandshakeCompleteMessage"
	SupportedVersion = 1
)

// InitData is the server's opening offer: the highest protocol version it
// supports. The protocol never actually negotiates below 1, matching the
// original, which defines the field but never branches on anything but 1.
type InitData struct {
	MaxVersion uint32
}

func (d InitData) Equal(o InitData) bool { return d.MaxVersion == o.MaxVersion }

// ResponseV1Data is the client's reply: who it is, as (type, instance)
// routing coordinates the server should register it under once connected.
type ResponseV1Data struct {
	ClientType     int32
	ClientInstance int32
}

func (d ResponseV1Data) Equal(o ResponseV1Data) bool {
	return d.ClientType == o.ClientType && d.ClientInstance == o.ClientInstance
}

// CompleteData closes the handshake, echoing the negotiated version.
type CompleteData struct {
	Version uint32
}

func (d CompleteData) Equal(o CompleteData) bool { return d.Version == o.Version }

// NewInitMessage builds a fresh HandshakeInitMessage prototype/instance.
func NewInitMessage(maxVersion uint32) *message.DataMessage[InitData] {
	return message.NewDataMessage(TypeInit, InitData{MaxVersion: maxVersion})
}

// NewResponseV1Message builds a fresh HandshakeResponseMessageV1 instance.
func NewResponseV1Message(clientType, clientInstance int32) *message.DataMessage[ResponseV1Data] {
	return message.NewDataMessage(TypeResponseV1, ResponseV1Data{ClientType: clientType, ClientInstance: clientInstance})
}

// NewCompleteMessage builds a fresh HandshakeCompleteMessage instance.
func NewCompleteMessage(version uint32) *message.DataMessage[CompleteData] {
	return message.NewDataMessage(TypeComplete, CompleteData{Version: version})
}
