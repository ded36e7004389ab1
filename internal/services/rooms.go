package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/thereayou/chatify/internal/models"
	"github.com/thereayou/chatify/internal/storage"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrForbidden    = errors.New("operation allowed only for room creator")
	ErrCreatorLeave = errors.New("room creator cannot leave room")
	ErrKeyExhausted = errors.New("could not allocate unique room key")
)

const (
	// 12 байт энтропии, base64url без паддинга — 16 символов ключа
	roomKeyBytes = 12

	// Коллизия ключа практически невозможна; несколько повторных
	// попыток вместо тихой перезаписи чужой комнаты
	keyAttempts = 3
)

// RoomService владеет жизненным циклом комнат и их членством.
// Вся работа с набором участников идёт через идемпотентные атомарные
// операции Store, поэтому одновременные join/leave/kick по одной
// комнате не теряют обновления.
type RoomService struct {
	store storage.Store
}

func NewRoomService(store storage.Store) *RoomService {
	return &RoomService{store: store}
}

// Create создает комнату с уникальным ключом; создатель сразу участник
func (s *RoomService) Create(ctx context.Context, name, ownerID string) (*models.Room, error) {
	for attempt := 0; attempt < keyAttempts; attempt++ {
		key, err := generateRoomKey()
		if err != nil {
			return nil, err
		}

		existing, err := s.store.FindRoomByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		room := &models.Room{
			Name:      name,
			Key:       key,
			CreatedBy: ownerID,
			CreatedAt: time.Now(),
			Members:   []string{ownerID},
		}

		id, err := s.store.CreateRoom(ctx, room)
		if err != nil {
			return nil, err
		}
		room.ID = id
		return room, nil
	}
	return nil, ErrKeyExhausted
}

// Join идемпотентно добавляет пользователя в комнату
func (s *RoomService) Join(ctx context.Context, key, userID string) error {
	if err := s.store.AddMember(ctx, key, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	return nil
}

// Leave идемпотентно убирает пользователя из комнаты. Создатель выйти
// не может: инвариант createdBy ∈ members держится до самого удаления.
func (s *RoomService) Leave(ctx context.Context, key, userID string) error {
	room, err := s.store.FindRoomByKey(ctx, key)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.CreatedBy == userID {
		return ErrCreatorLeave
	}

	if err := s.store.RemoveMember(ctx, key, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	return nil
}

// Kick убирает участника по требованию создателя комнаты. Удаление
// фиксируется в хранилище до возврата: уведомление, которое разошлёт
// вызывающий, никогда не обгонит коммит. Возвращает запись выгнанного
// пользователя для текста уведомления (nil, если записи уже нет).
func (s *RoomService) Kick(ctx context.Context, key, requesterID, targetID string) (*models.User, error) {
	room, err := s.store.FindRoomByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.CreatedBy != requesterID {
		return nil, ErrForbidden
	}
	if targetID == requesterID {
		// Создатель не выгоняет сам себя
		return nil, ErrForbidden
	}

	if err := s.store.RemoveMember(ctx, key, targetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	target, err := s.store.FindUser(ctx, storage.UserFilter{ID: targetID})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// Delete удаляет комнату; разрешено только создателю
func (s *RoomService) Delete(ctx context.Context, key, requesterID string) error {
	room, err := s.store.FindRoomByKey(ctx, key)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.CreatedBy != requesterID {
		return ErrForbidden
	}

	if err := s.store.DeleteRoom(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	return nil
}

func (s *RoomService) RoomByKey(ctx context.Context, key string) (*models.Room, error) {
	return s.store.FindRoomByKey(ctx, key)
}

func (s *RoomService) RoomsByCreator(ctx context.Context, userID string) ([]models.Room, error) {
	return s.store.FindRoomsByCreator(ctx, userID)
}

func generateRoomKey() (string, error) {
	buf := make([]byte, roomKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
