package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmcneish/castbridge/internal/dispatcher"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The ingress sits behind token auth, not browser sessions.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub tracks open subscriber connections so shutdown can close them.
type hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *log.Logger
}

func newHub(logger *log.Logger) *hub {
	return &hub{conns: make(map[*websocket.Conn]struct{}), logger: logger}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
}

// handleWebSocket upgrades the connection and reads command envelopes until
// the peer goes away. Each envelope dispatches on its own goroutine so a
// slow device never blocks the read loop.
func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return nil
	}
	s.hub.add(conn)
	s.logger.Printf("Command subscriber connected: %s", conn.RemoteAddr())

	go s.pingLoop(conn)
	s.readLoop(conn)
	return nil
}

func (s *Service) readLoop(conn *websocket.Conn) {
	defer func() {
		s.hub.remove(conn)
		conn.Close()
		s.logger.Printf("Command subscriber disconnected: %s", conn.RemoteAddr())
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var env dispatcher.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.logger.Printf("Dropping malformed envelope: %v", err)
			continue
		}
		if env.Room == "" || env.Command == "" {
			s.logger.Print("Dropping envelope without room or command")
			continue
		}
		go s.dispatcher.Dispatch(context.Background(), env)
	}
}

func (s *Service) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			return
		}
	}
}
