package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thereayou/chatify/internal/services"
	"github.com/thereayou/chatify/internal/storage"
	"github.com/thereayou/chatify/internal/websocket"
)

const eventTimeout = 5 * time.Second

// EventHandler обрабатывает realtime-события: join, leave, message,
// kick_user. Личность берётся из соединения, уже проверенного guard'ом
// на апгрейде. Событие с неразрешимой комнатой или недостаточными
// правами отбрасывается: в канал ничего не уходит, причина — в лог.
type EventHandler struct {
	store storage.Store
	rooms *services.RoomService
	hub   *websocket.Hub
}

func NewEventHandler(store storage.Store, rooms *services.RoomService, hub *websocket.Hub) *EventHandler {
	return &EventHandler{store: store, rooms: rooms, hub: hub}
}

func (h *EventHandler) HandleEvent(client *websocket.Client, ev *websocket.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch ev.Type {
	case websocket.TypeJoin:
		h.handleJoin(ctx, client, ev)

	case websocket.TypeLeave:
		h.handleLeave(ctx, client, ev)

	case websocket.TypeMessage:
		h.handleMessage(ctx, client, ev)

	case websocket.TypeKickUser:
		h.handleKick(ctx, client, ev)

	default:
		log.Debug().Str("type", string(ev.Type)).Str("user", client.UserID).Msg("unknown event type, dropping")
	}
}

// handleJoin подписывает соединение на канал комнаты. Членство здесь
// не мутируется — им занимается HTTP-join; подписка разрешена только
// действующим участникам. Событие по удалённому ключу — room not found.
func (h *EventHandler) handleJoin(ctx context.Context, client *websocket.Client, ev *websocket.Event) {
	if ev.Room == "" {
		h.drop(ev, client.UserID, websocket.ErrInvalidEvent)
		return
	}

	room, err := h.store.FindRoomByKey(ctx, ev.Room)
	if err != nil {
		h.drop(ev, client.UserID, err)
		return
	}
	if room == nil {
		h.drop(ev, client.UserID, services.ErrRoomNotFound)
		return
	}
	if !room.HasMember(client.UserID) {
		h.drop(ev, client.UserID, errors.New("not a room member"))
		return
	}

	user, err := h.store.FindUser(ctx, storage.UserFilter{ID: client.UserID})
	if err != nil || user == nil {
		h.drop(ev, client.UserID, errors.New("unknown user"))
		return
	}

	h.hub.Subscribe(client, ev.Room)
	h.broadcastSystem(ev.Room, fmt.Sprintf("%s has joined the room", user.Username))
}

// handleLeave отписывает соединение и оповещает оставшихся. Для уже
// удалённой комнаты подписка снимается, но уведомление не уходит —
// событие по мёртвому ключу не должно тихо "успевать".
func (h *EventHandler) handleLeave(ctx context.Context, client *websocket.Client, ev *websocket.Event) {
	if ev.Room == "" {
		h.drop(ev, client.UserID, websocket.ErrInvalidEvent)
		return
	}

	room, err := h.store.FindRoomByKey(ctx, ev.Room)
	if err != nil {
		h.drop(ev, client.UserID, err)
		return
	}
	if room == nil {
		h.hub.Unsubscribe(client, ev.Room)
		h.drop(ev, client.UserID, services.ErrRoomNotFound)
		return
	}

	user, err := h.store.FindUser(ctx, storage.UserFilter{ID: client.UserID})
	if err != nil || user == nil {
		h.drop(ev, client.UserID, errors.New("unknown user"))
		return
	}

	h.hub.Unsubscribe(client, ev.Room)
	h.broadcastSystem(ev.Room, fmt.Sprintf("%s has left the room", user.Username))
}

// handleMessage рассылает текст в канал комнаты. Ничего не сохраняется;
// содержимое не валидируется и не экранируется — это забота
// презентационного слоя.
func (h *EventHandler) handleMessage(ctx context.Context, client *websocket.Client, ev *websocket.Event) {
	if ev.Room == "" {
		h.drop(ev, client.UserID, websocket.ErrInvalidEvent)
		return
	}

	room, err := h.store.FindRoomByKey(ctx, ev.Room)
	if err != nil {
		h.drop(ev, client.UserID, err)
		return
	}
	if room == nil {
		h.drop(ev, client.UserID, services.ErrRoomNotFound)
		return
	}

	user, err := h.store.FindUser(ctx, storage.UserFilter{ID: client.UserID})
	if err != nil || user == nil {
		h.drop(ev, client.UserID, errors.New("unknown user"))
		return
	}

	data, err := websocket.EncodeFrame(websocket.TypeMessage, websocket.ChatPayload{
		Username:  user.Username,
		Message:   ev.Message,
		Timestamp: time.Now().Format(websocket.TimestampLayout),
		UserID:    client.UserID,
	})
	if err != nil {
		h.drop(ev, client.UserID, err)
		return
	}
	h.hub.SendToRoom(ev.Room, data)
}

// handleKick выгоняет участника по требованию создателя комнаты.
// Удаление из хранилища коммитится до рассылки уведомления: подписчик,
// среагировавший на user_kicked, уже видит согласованное членство.
// Отказ в правах уходит кадром ошибки только самому требователю.
func (h *EventHandler) handleKick(ctx context.Context, client *websocket.Client, ev *websocket.Event) {
	if ev.Room == "" || ev.TargetUserID == "" {
		h.drop(ev, client.UserID, websocket.ErrInvalidEvent)
		return
	}

	target, err := h.rooms.Kick(ctx, ev.Room, client.UserID, ev.TargetUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			client.SendError("only the room creator can kick users")
		case errors.Is(err, services.ErrRoomNotFound):
			h.drop(ev, client.UserID, err)
		default:
			h.drop(ev, client.UserID, err)
		}
		return
	}

	displayName := ev.TargetUserID
	if target != nil {
		displayName = target.Username
	}

	data, err := websocket.EncodeFrame(websocket.TypeUserKicked, websocket.KickPayload{
		KickedUserID: ev.TargetUserID,
		Message:      fmt.Sprintf("%s has been kicked from the room", displayName),
	})
	if err != nil {
		h.drop(ev, client.UserID, err)
		return
	}
	h.hub.SendToRoom(ev.Room, data)
}

func (h *EventHandler) broadcastSystem(key, text string) {
	data, err := websocket.EncodeFrame(websocket.TypeMessage, websocket.ChatPayload{
		Username:  websocket.SystemUsername,
		Message:   text,
		Timestamp: time.Now().Format(websocket.TimestampLayout),
	})
	if err != nil {
		return
	}
	h.hub.SendToRoom(key, data)
}

// drop — политика тихого отбрасывания на событийном пути: отправителю
// ничего не возвращается, причина фиксируется структурно
func (h *EventHandler) drop(ev *websocket.Event, userID string, reason error) {
	log.Debug().
		Str("event", string(ev.Type)).
		Str("room", ev.Room).
		Str("user", userID).
		Err(reason).
		Msg("event dropped")
}
