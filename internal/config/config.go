// Package config holds construction-time configuration for bus/server components.
package config

import "time"

// Protocol selects which codec a server or connection speaks on the wire.
type Protocol string

const (
	ProtocolBinary Protocol = "binary"
	ProtocolJSON   Protocol = "json"
)

// ServerConfig stores the parameters needed to stand up a ServerBus.
type ServerConfig struct {
	ListenAddr        string
	Protocol          Protocol
	HandshakeBufSize  int // read-buffer size while handshaking, default 256
	DataBufSize       int // read-buffer size once handshake completes
	ThreadPoolSize    int // passed to threadpool.New, which rejects 0; no default is substituted
	HandshakeTimeout  time.Duration
	StatsInterval     time.Duration
}

// DefaultServerConfig returns sane defaults matching the handshake's
// fixed-size read buffer requirement (spec: 256 bytes while handshaking).
func DefaultServerConfig(addr string) ServerConfig {
	return ServerConfig{
		ListenAddr:       addr,
		Protocol:         ProtocolBinary,
		HandshakeBufSize: 256,
		DataBufSize:      4096,
		ThreadPoolSize:   0,
		HandshakeTimeout: 10 * time.Second,
		StatsInterval:    30 * time.Second,
	}
}
