package handshake

import "github.com/meshbus/meshbus/internal/codec/jsoncodec"

// JSONInitCodec, JSONResponseV1Codec, JSONCompleteCodec register the three
// handshake messages with a JSON-protocol MessageRegistry.
var (
	JSONInitCodec       = jsoncodec.Codec[InitData]{}
	JSONResponseV1Codec = jsoncodec.Codec[ResponseV1Data]{}
	JSONCompleteCodec   = jsoncodec.Codec[CompleteData]{}
)
