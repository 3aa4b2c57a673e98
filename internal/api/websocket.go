package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	sendBuffer   = 32
)

// WSMessage is the envelope of every websocket frame. Dashboard events keep their type,
// e.g. "records:refreshed".
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan WSMessage
	once sync.Once
}

func (cl *wsClient) close() {
	cl.once.Do(func() { close(cl.send) })
}

// Hub fans dashboard events out to connected browsers so open views can refetch.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub creates a new websocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		logger:  logger.Named("ws"),
		clients: make(map[*wsClient]struct{}),
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends evt to every client. Clients whose buffer is full are dropped.
func (h *Hub) Publish(evt models.Event) {
	msg := WSMessage{
		Type:      evt.Type,
		Payload:   mustJSON(evt.Payload),
		Timestamp: evt.Timestamp.UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client")
			delete(h.clients, cl)
			cl.close()
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		cl.close()
	}
}

func (h *Hub) register(cl *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *Hub) unregister(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		cl.close()
	}
}

// HandleWebSocket upgrades the HTTP connection and streams events until the client leaves
func (h *Hub) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &wsClient{conn: ws, send: make(chan WSMessage, sendBuffer)}
	if !h.register(cl) {
		ws.Close()
		return nil
	}
	h.logger.Debug("client connected", zap.String("remote", c.RealIP()))

	h.trySend(cl, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	done := make(chan struct{})
	go h.writeLoop(cl, done)

	h.readLoop(cl)
	h.unregister(cl)
	<-done
	ws.Close()

	h.logger.Debug("client disconnected", zap.String("remote", c.RealIP()))
	return nil
}

// readLoop handles client pings and returns when the connection fails.
func (h *Hub) readLoop(cl *wsClient) {
	cl.conn.SetReadLimit(4 * 1024)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("connection error", zap.Error(err))
			}
			return
		}
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case MsgTypePing:
			h.trySend(cl, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		default:
			h.trySend(cl, WSMessage{
				Type:      MsgTypeError,
				Timestamp: time.Now().UnixMilli(),
				Payload: mustJSON(WSErrorResponse{
					Message: "Unknown message type: " + msg.Type,
					Code:    "INVALID_TYPE",
				}),
			})
		}
	}
}

func (h *Hub) trySend(cl *wsClient, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- msg:
	default:
	}
}

// writeLoop is the only writer of the connection.
func (h *Hub) writeLoop(cl *wsClient, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				// Unblock the reader.
				cl.conn.Close()
				return
			}
			if err := cl.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("failed to send message", zap.Error(err))
				cl.conn.Close()
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.conn.Close()
				return
			}
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
