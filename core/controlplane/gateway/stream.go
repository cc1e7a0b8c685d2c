package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rolefirst/guardrail/core/infra/audit"
	"github.com/rolefirst/guardrail/core/infra/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return isAllowedOrigin(r) },
}

// streamHub fans audit records out to connected websocket observers. Slow
// clients are dropped rather than allowed to stall the broadcast loop.
type streamHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan audit.Record
	events  chan audit.Record
}

func newStreamHub() *streamHub {
	return &streamHub{
		clients: make(map[*websocket.Conn]chan audit.Record),
		events:  make(chan audit.Record, 512),
	}
}

func (h *streamHub) start() {
	go func() {
		for rec := range h.events {
			var slow []*websocket.Conn
			h.mu.RLock()
			for conn, ch := range h.clients {
				select {
				case ch <- rec:
				default:
					slow = append(slow, conn)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, conn := range slow {
					delete(h.clients, conn)
				}
				h.mu.Unlock()
				for _, conn := range slow {
					if err := conn.Close(); err != nil {
						logging.Error("gateway", "ws client close failed", "error", err)
					}
				}
			}
		}
	}()
}

func (h *streamHub) publish(rec audit.Record) {
	select {
	case h.events <- rec:
	default:
	}
}

func (h *streamHub) add(conn *websocket.Conn) chan audit.Record {
	ch := make(chan audit.Record, 100)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *streamHub) remove(conn *websocket.Conn, ch chan audit.Record) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	close(ch)
}

func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	logging.Info("gateway", "ws connection attempt", "remote", r.RemoteAddr)
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("gateway", "ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ch := s.stream.add(ws)
	defer s.stream.remove(ws, ch)

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(rec)
			if err != nil {
				logging.Error("gateway", "ws marshal failed", "error", err)
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
