// Package websocket utrzymuje połączenia na żywo i rozsyła powiadomienia
// o zdarzeniach do zalogowanych adresatów.
package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub rozprowadza zdarzenia po połączeniach pogrupowanych per użytkownik.
// Jeden użytkownik może mieć wiele otwartych połączeń (kilka kart).
type Hub struct {
	clients    map[int64]map[*Client]bool
	mu         sync.RWMutex
	logger     *zap.Logger
	Register   chan *Client
	Unregister chan *Client
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		logger:     logger,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	h.logger.Info("Zarejestrowano połączenie websocket", zap.Int64("user_id", client.UserID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, ok := userClients[client]; ok {
			delete(userClients, client)
			close(client.send)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
			h.logger.Info("Wyrejestrowano połączenie websocket", zap.Int64("user_id", client.UserID))
		}
	}
}

// PublishEvent dostarcza zdarzenie do wszystkich połączeń adresata. Zapchany
// bufor klienta nie blokuje publikacji, wiadomość po prostu przepada, klient
// i tak doczyta zaległości z dziennika zdarzeń.
func (h *Hub) PublishEvent(userID int64, eventData []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if userClients, ok := h.clients[userID]; ok {
		for client := range userClients {
			select {
			case client.send <- eventData:
			default:
				h.logger.Warn("Bufor klienta pełny, porzucam wiadomość", zap.Int64("user_id", userID))
			}
		}
	}
}
