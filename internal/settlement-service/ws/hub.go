package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client serializa as escritas: gorilla não aceita writers concorrentes na mesma conexão
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por concurso
// subs: drawID -> conjunto de clientes inscritos
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket.
// Cada cliente pode se inscrever em vários concursos.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.DrawID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.DrawID]; !ok {
				h.subs[msg.DrawID] = make(map[*client]struct{})
			}
			h.subs[msg.DrawID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(msg.DrawID, c)
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	// desconectou: sai de todas as assinaturas
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(drawID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[drawID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, drawID)
		}
	}
}

// Subscribers devolve quantos clientes acompanham o concurso
func (h *Hub) Subscribers(drawID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[drawID])
}

// Broadcast envia a atualização para todos os inscritos no concurso
func (h *Hub) Broadcast(update DrawUpdate) {
	h.mu.RLock()
	set := h.subs[update.DrawID]
	targets := make([]*client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.String("draw_id", update.DrawID), zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.String("draw_id", update.DrawID), zap.Error(err))
		}
	}
}
