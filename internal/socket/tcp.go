// Package socket implements ISocketDataHandler and its TCP realization: a
// dedicated goroutine blocked on Read, handing each completed read to its
// registered listeners as one opaque frame — one TCP read is one message,
// per spec.md's framed-I/O model. Grounded on comms-lib's
// TcpSocketDataHandler, which runs execLoop() on a LoopingThread doing a
// blocking read() and forwarding the bytes to its listeners.
package socket

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/meshbus/meshbus/internal/meshlog"
)

// Listener receives each framed read from a DataHandler.
type Listener interface {
	MessageReceived(data []byte)
}

// DataHandler is the minimal socket-data contract a connection or
// handshake drives: send raw bytes, and accept (possibly many, possibly
// one-at-a-time) listeners for inbound bytes.
type DataHandler interface {
	Send(data []byte) error
	AddListener(l Listener)
	RemoveListener(l Listener)
}

// TCPSocketDataHandler wraps a net.Conn, reading fixed-size chunks on a
// dedicated goroutine and writing synchronously on Send.
type TCPSocketDataHandler struct {
	conn        net.Conn
	readBufSize atomic.Int64

	listenersMu sync.Mutex
	listeners   []Listener

	onClose func()
	closeMu sync.Mutex
	closed  bool
}

// New wraps conn for framed read/write, reading readBufSize bytes at a
// time. onClose, if non-nil, is invoked once when the read loop exits for
// any reason (EOF, read error, or explicit Close).
func New(conn net.Conn, readBufSize int, onClose func()) *TCPSocketDataHandler {
	h := &TCPSocketDataHandler{conn: conn, onClose: onClose}
	h.readBufSize.Store(int64(readBufSize))
	return h
}

// SetListener replaces the entire listener set with a single listener (or
// clears it, if l is nil). This is the shape the handshake state machine
// needs — one listener at a time — and is structurally compatible with
// handshake.Socket.
func (h *TCPSocketDataHandler) SetListener(l Listener) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	if l == nil {
		h.listeners = nil
		return
	}
	h.listeners = []Listener{l}
}

// AddListener appends l to the listener set.
func (h *TCPSocketDataHandler) AddListener(l Listener) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, l)
}

// RemoveListener removes the first occurrence of l, by identity.
func (h *TCPSocketDataHandler) RemoveListener(l Listener) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	for i, ll := range h.listeners {
		if ll == l {
			h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
			return
		}
	}
}

func (h *TCPSocketDataHandler) notify(data []byte) {
	h.listenersMu.Lock()
	ls := make([]Listener, len(h.listeners))
	copy(ls, h.listeners)
	h.listenersMu.Unlock()
	for _, l := range ls {
		l.MessageReceived(data)
	}
}

// Send writes data to the socket. Returns a TransportError-class error if
// the underlying write doesn't accept the full buffer.
func (h *TCPSocketDataHandler) Send(data []byte) error {
	n, err := h.conn.Write(data)
	if err != nil {
		return fmt.Errorf("socket: write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("socket: short write (%d of %d bytes)", n, len(data))
	}
	return nil
}

// SetReadBufferSize changes the chunk size used by subsequent reads. A
// server uses a small buffer while handshaking and a larger one once a
// connection graduates to carrying application messages.
func (h *TCPSocketDataHandler) SetReadBufferSize(n int) {
	h.readBufSize.Store(int64(n))
}

// Run blocks, reading readBufSize-byte chunks until the connection closes
// or a read fails. The original leaves a zero/negative read count as a
// bare TODO; here a zero-length read is treated as a no-op continuation
// and a read error tears the connection down, notifying onClose.
func (h *TCPSocketDataHandler) Run() {
	defer h.Close()
	for {
		buf := make([]byte, h.readBufSize.Load())
		n, err := h.conn.Read(buf)
		if err != nil {
			meshlog.Warning("socket: read failed, tearing down connection: %v", err)
			return
		}
		if n <= 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		h.notify(data)
	}
}

// Close closes the underlying connection and invokes onClose exactly once.
func (h *TCPSocketDataHandler) Close() error {
	h.closeMu.Lock()
	if h.closed {
		h.closeMu.Unlock()
		return nil
	}
	h.closed = true
	h.closeMu.Unlock()

	err := h.conn.Close()
	if h.onClose != nil {
		h.onClose()
	}
	return err
}
