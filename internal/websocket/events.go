package websocket

import "encoding/json"

type EventType string

const (
	// Входящие события
	TypeJoin     EventType = "join"
	TypeLeave    EventType = "leave"
	TypeMessage  EventType = "message"
	TypeKickUser EventType = "kick_user"

	// Исходящие события
	TypeUserKicked EventType = "user_kicked"
	TypeError      EventType = "error"
	TypePing       EventType = "ping"
)

// Отметки времени в сообщениях — человекочитаемые, с точностью до
// минуты, по локальным часам сервера
const TimestampLayout = "15:04"

// SystemUsername — имя отправителя служебных сообщений комнаты
const SystemUsername = "System"

// Event — входящий кадр от клиента
type Event struct {
	Type         EventType `json:"type"`
	Room         string    `json:"room,omitempty"`
	Message      string    `json:"message,omitempty"`
	TargetUserID string    `json:"target_user_id,omitempty"`
}

// Frame — исходящий кадр
type Frame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ChatPayload — сообщение в комнату, пользовательское или системное.
// UserID пуст для системных сообщений.
type ChatPayload struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
}

// KickPayload — уведомление об исключении участника
type KickPayload struct {
	KickedUserID string `json:"kicked_user_id"`
	Message      string `json:"message"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// EncodeFrame собирает исходящий кадр с полезной нагрузкой
func EncodeFrame(t EventType, payload interface{}) ([]byte, error) {
	frame := Frame{Type: t}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		frame.Data = data
	}
	return json.Marshal(frame)
}
