package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case client, ok := <-s.register:
			if !ok {
				return
			}
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			last := s.lastTick
			s.stateMutex.Unlock()

			// Replay the last tick so the client starts with prices
			if last != nil {
				client.send <- *last
			}

		case client, ok := <-s.unregister:
			if !ok {
				return
			}
			s.stateMutex.Lock()
			if _, exists := s.clients[client]; exists {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case summary, ok := <-s.broadcast:
			if !ok {
				return
			}
			s.stateMutex.Lock()
			s.lastTick = &summary

			for client := range s.clients {
				select {
				case client.send <- summary:
				default:
					// Client too slow, drop it so the hub never blocks
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------

// Broadcast queues a tick summary for all connected clients. Wired to the
// updater's OnTick callback.
func (s *APIServer) Broadcast(summary models.MTickSummary) {
	select {
	case s.broadcast <- summary:
	default:
		s.Logger.Warning("Broadcast queue full, dropping tick summary")
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan models.MTickSummary, 64),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}
