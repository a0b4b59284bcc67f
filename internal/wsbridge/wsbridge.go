// Package wsbridge exposes a bus over a WebSocket endpoint instead of raw
// TCP, reusing the same handshake state machine, message registry, and
// server.Onboarder the TCP listener uses — demonstrating that the framed
// codec façade is transport-agnostic. Grounded on the teacher's use of
// github.com/gorilla/websocket for its signaling server (internal/signaling).
package wsbridge

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/meshbus/meshbus/internal/handshake"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/registry"
	"github.com/meshbus/meshbus/internal/server"
	"github.com/meshbus/meshbus/internal/socket"
)

// Handler adapts a *websocket.Conn to socket.DataHandler: each WebSocket
// binary message is one frame, so unlike the TCP handler there is no
// read-buffer-size concept to adjust after the handshake completes.
type Handler struct {
	conn *websocket.Conn

	listenersMu sync.Mutex
	listeners   []socket.Listener

	onClose   func()
	closeOnce sync.Once
}

// New wraps conn. onClose, if non-nil, runs once when Run's read loop exits.
func New(conn *websocket.Conn, onClose func()) *Handler {
	return &Handler{conn: conn, onClose: onClose}
}

func (h *Handler) SetListener(l socket.Listener) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	if l == nil {
		h.listeners = nil
		return
	}
	h.listeners = []socket.Listener{l}
}

func (h *Handler) AddListener(l socket.Listener) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, l)
}

func (h *Handler) RemoveListener(l socket.Listener) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	for i, ll := range h.listeners {
		if ll == l {
			h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
			return
		}
	}
}

func (h *Handler) notify(data []byte) {
	h.listenersMu.Lock()
	ls := make([]socket.Listener, len(h.listeners))
	copy(ls, h.listeners)
	h.listenersMu.Unlock()
	for _, l := range ls {
		l.MessageReceived(data)
	}
}

// Send writes data as one WebSocket binary message.
func (h *Handler) Send(data []byte) error {
	return h.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Run blocks, reading one WebSocket message at a time until the connection
// closes or a read fails.
func (h *Handler) Run() {
	defer h.Close()
	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			meshlog.Warning("wsbridge: read failed, tearing down connection: %v", err)
			return
		}
		h.notify(data)
	}
}

// Close closes the underlying WebSocket connection and invokes onClose
// exactly once.
func (h *Handler) Close() error {
	var err error
	h.closeOnce.Do(func() {
		err = h.conn.Close()
		if h.onClose != nil {
			h.onClose()
		}
	})
	return err
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UpgradeHandler returns an http.HandlerFunc that upgrades each request to
// a WebSocket connection and onboards it through handshakeHandler onto
// serverBus, exactly like the TCP listener's accept loop.
func UpgradeHandler(reg *registry.MessageRegistry, handshakeHandler *handshake.Handler, serverBus *server.ServerBus, dataBufSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			meshlog.Warning("wsbridge: upgrade failed: %v", err)
			return
		}

		onboarder := server.NewOnboarder(reg, serverBus, dataBufSize)
		h := New(conn, onboarder.OnClosed)
		go h.Run()

		if err := onboarder.Start(h, handshakeHandler); err != nil {
			meshlog.Warning("wsbridge: handshake failed: %v", err)
			h.Close()
		}
	}
}
