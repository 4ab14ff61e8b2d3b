package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Presence получает события присутствия из сокетов (реализует движок)
type Presence interface {
	HandleDisconnect(ctx context.Context, gameNumber int, userID int64) error
	HandleReconnect(ctx context.Context, gameNumber int, userID int64) error
}

// Hub держит топики по номерам игр. Сокеты здесь только вещают и следят
// за присутствием: игровые действия идут через HTTP.
type Hub struct {
	mu     sync.RWMutex
	topics map[int]map[*Client]bool

	presence Presence
}

func NewHub() *Hub {
	return &Hub{topics: make(map[int]map[*Client]bool)}
}

// SetPresence подключает движок после его создания (хаб нужен движку
// раньше, чем движок хабу)
func (h *Hub) SetPresence(p Presence) {
	h.presence = p
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	clients, ok := h.topics[c.GameNumber]
	if !ok {
		clients = make(map[*Client]bool)
		h.topics[c.GameNumber] = clients
	}
	clients[c] = true
	h.mu.Unlock()

	log.Printf("Hub.Register: user=%d game=%d clients=%d", c.UserID, c.GameNumber, len(clients))

	if h.presence != nil {
		// не участник или игра в лобби - движок сам разберётся
		if err := h.presence.HandleReconnect(context.Background(), c.GameNumber, c.UserID); err != nil {
			log.Printf("Hub.Register: reconnect ignored for user=%d game=%d: %v", c.UserID, c.GameNumber, err)
		}
	}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	tracked := false
	stillConnected := false
	if clients, ok := h.topics[c.GameNumber]; ok {
		if clients[c] {
			tracked = true
			delete(clients, c)
			close(c.Send)
		}
		if len(clients) == 0 {
			delete(h.topics, c.GameNumber)
		}
		// второй сокет того же игрока держит присутствие
		for other := range clients {
			if other.UserID == c.UserID {
				stillConnected = true
				break
			}
		}
	}
	h.mu.Unlock()

	log.Printf("Hub.Unregister: user=%d game=%d", c.UserID, c.GameNumber)

	if h.presence != nil && tracked && !stillConnected {
		if err := h.presence.HandleDisconnect(context.Background(), c.GameNumber, c.UserID); err != nil {
			log.Printf("Hub.Unregister: disconnect ignored for user=%d game=%d: %v", c.UserID, c.GameNumber, err)
		}
	}
}

// BroadcastGame рассылает сообщение всем подписчикам топика игры.
// Медленный клиент с забитым буфером отключается, а не тормозит всех.
func (h *Hub) BroadcastGame(gameNumber int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Hub.BroadcastGame: marshal failed for game=%d: %v", gameNumber, err)
		return
	}

	h.mu.RLock()
	var stuck []*Client
	for c := range h.topics[gameNumber] {
		select {
		case c.Send <- data:
		default:
			stuck = append(stuck, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stuck {
		log.Printf("Hub.BroadcastGame: dropping slow client user=%d game=%d", c.UserID, gameNumber)
		c.Conn.Close()
	}
}
