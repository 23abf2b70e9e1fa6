package lisskins

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pkosilov/skinsbot/internal/domain"
)

const (
	// DefaultWSURL is the production Centrifugo endpoint.
	DefaultWSURL = "wss://ws.lis-skins.com/connection/websocket"

	// SkinsChannel carries obtained-skin add/delete/price-change events.
	SkinsChannel = "public:obtained-skins"

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// SkinEventHandler is called for each decoded obtained-skin event.
type SkinEventHandler func(domain.SkinEvent)

// WSClient is a minimal Centrifugo client for the lis-skins real-time feed.
// It performs the connect/subscribe handshake, keeps the connection alive
// with pings, and dispatches decoded skin events to registered handlers.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu      sync.Mutex
	writeMu sync.Mutex
	closed  bool
	nextID  int

	handlerMu sync.RWMutex
	handlers  []SkinEventHandler

	// done is closed when the read loop exits, for whatever reason.
	done     chan struct{}
	doneOnce sync.Once
}

// NewWSClient creates a client for the given Centrifugo endpoint. An empty
// URL falls back to production.
func NewWSClient(wsURL string) *WSClient {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &WSClient{
		wsURL:  wsURL,
		nextID: 1,
		done:   make(chan struct{}),
	}
}

// OnSkinEvent registers a handler invoked for every decoded skin event.
func (w *WSClient) OnSkinEvent(h SkinEventHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handlers = append(w.handlers, h)
}

// centrifugoCommand is a client→server frame.
type centrifugoCommand struct {
	ID     int            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// centrifugoPush is the subset of server frames the client cares about:
// publications on a subscribed channel.
type centrifugoPush struct {
	Result struct {
		Channel string `json:"channel"`
		Data    struct {
			Event string `json:"event"`
			Data  struct {
				ID    int64   `json:"id"`
				Name  string  `json:"name"`
				Price float64 `json:"price"`
			} `json:"data"`
		} `json:"data"`
	} `json:"result"`
}

// Connect dials the endpoint, authenticates with the short-lived token, and
// subscribes to the obtained-skins channel. It starts the read and ping
// loops; decoded events are delivered to handlers until the connection drops
// or Close is called.
func (w *WSClient) Connect(ctx context.Context, token string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("lisskins/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		Subprotocols:     []string{"json"},
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("lisskins/ws: connect: %w", err)
	}
	w.conn = conn

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if err := w.sendCommand(centrifugoCommand{
		ID:     w.commandID(),
		Method: "connect",
		Params: map[string]any{"token": token},
	}); err != nil {
		conn.Close()
		return fmt.Errorf("lisskins/ws: send connect: %w", err)
	}

	if err := w.sendCommand(centrifugoCommand{
		ID:     w.commandID(),
		Method: "subscribe",
		Params: map[string]any{"channel": SkinsChannel},
	}); err != nil {
		conn.Close()
		return fmt.Errorf("lisskins/ws: subscribe %s: %w", SkinsChannel, err)
	}

	go w.readLoop(conn)
	go w.pingLoop(conn)

	return nil
}

// Done is closed once the connection has terminated.
func (w *WSClient) Done() <-chan struct{} {
	return w.done
}

// Close shuts the connection down. Safe to call multiple times.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.conn != nil {
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

func (w *WSClient) commandID() int {
	id := w.nextID
	w.nextID++
	return id
}

func (w *WSClient) sendCommand(cmd centrifugoCommand) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(cmd)
}

func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer w.doneOnce.Do(func() { close(w.done) })

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		w.handleMessage(msg)
	}
}

func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			w.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleMessage decodes a server frame and dispatches publications from the
// skins channel. Handshake replies and other technical frames are ignored.
func (w *WSClient) handleMessage(msg []byte) {
	var push centrifugoPush
	if err := json.Unmarshal(msg, &push); err != nil {
		return
	}
	if push.Result.Channel != SkinsChannel {
		return
	}

	data := push.Result.Data
	if data.Data.Name == "" {
		return
	}

	event := domain.SkinEvent{
		Event:      data.Event,
		ID:         fmt.Sprintf("%d", data.Data.ID),
		Name:       data.Data.Name,
		Price:      data.Data.Price,
		ReceivedAt: time.Now().UTC(),
	}

	w.handlerMu.RLock()
	handlers := w.handlers
	w.handlerMu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
