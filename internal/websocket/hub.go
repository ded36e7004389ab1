package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Hub — чисто рантаймовая таблица маршрутизации: каналы комнат живут и
// умирают от subscribe/unsubscribe и никак не привязаны к записи Room в
// хранилище. Удаление комнаты не отключает уже подписанные соединения;
// последующие события по её ключу отсекает обработчик, который заново
// резолвит ключ через хранилище.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Подписчики по ключу комнаты
	rooms map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[string]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run запускает цикл hub
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		client.Conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.rooms = make(map[string]map[uuid.UUID]*Client)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	log.Debug().Str("client", client.ID.String()).Str("user", client.UserID).Msg("client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for key := range client.rooms() {
		h.removeFromRoomUnsafe(client, key)
	}

	delete(h.clients, client.ID)
	close(client.Send)

	log.Debug().Str("client", client.ID.String()).Str("user", client.UserID).Msg("client unregistered")
}

// Subscribe подписывает соединение на канал комнаты
func (h *Hub) Subscribe(client *Client, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[uuid.UUID]*Client)
	}
	h.rooms[key][client.ID] = client

	client.mu.Lock()
	client.Rooms[key] = true
	client.mu.Unlock()
}

// Unsubscribe отписывает соединение от канала комнаты
func (h *Hub) Unsubscribe(client *Client, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, key)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, key string) {
	room, ok := h.rooms[key]
	if !ok {
		return
	}
	if _, ok := room[client.ID]; !ok {
		return
	}

	delete(room, client.ID)
	client.mu.Lock()
	delete(client.Rooms, key)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, key)
	}
}

// SendToRoom рассылает кадр всем подписчикам канала комнаты,
// включая отправителя
func (h *Hub) SendToRoom(key string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[key] {
		select {
		case client.Send <- message:
		default:
			log.Warn().Str("client", client.ID.String()).Msg("client send channel full, dropping frame")
		}
	}
}

// RoomSubscribers возвращает id пользователей, подписанных на комнату
func (h *Hub) RoomSubscribers(key string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	users := make([]string, 0)
	for _, client := range h.rooms[key] {
		if !seen[client.UserID] {
			seen[client.UserID] = true
			users = append(users, client.UserID)
		}
	}
	return users
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := EncodeFrame(TypePing, nil)
	if err != nil {
		return
	}

	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}
