package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/thereayou/chatify/internal/models"
)

// MemoryStore — fallback-хранилище на картах. Контракт тот же, что у
// MongoStore; атомарность членства, которую Mongo даёт бесплатно через
// $addToSet/$pull, здесь воспроизводится мьютексом на каждую комнату.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
	rooms map[string]*memRoom
}

type memRoom struct {
	// Сериализует мутации набора участников этой комнаты
	mu   sync.Mutex
	room models.Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*models.User),
		rooms: make(map[string]*memRoom),
	}
}

func (s *MemoryStore) FindUser(_ context.Context, filter UserFilter) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case filter.ID != "":
		if u, ok := s.users[filter.ID]; ok {
			return copyUser(u), nil
		}
	case filter.Username != "":
		for _, u := range s.users {
			if u.Username == filter.Username {
				return copyUser(u), nil
			}
		}
	case filter.Email != "":
		for _, u := range s.users {
			if u.Email == filter.Email {
				return copyUser(u), nil
			}
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	stored := *user
	stored.ID = id
	s.users[id] = &stored
	return id, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id string, patch UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Username != "" {
		u.Username = patch.Username
	}
	if patch.Email != "" {
		u.Email = patch.Email
	}
	if patch.PasswordHash != "" {
		u.PasswordHash = patch.PasswordHash
	}
	return nil
}

func (s *MemoryStore) FindRoomsByCreator(_ context.Context, userID string) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]models.Room, 0)
	for _, r := range s.rooms {
		r.mu.Lock()
		if r.room.CreatedBy == userID {
			rooms = append(rooms, *copyRoom(&r.room))
		}
		r.mu.Unlock()
	}
	return rooms, nil
}

func (s *MemoryStore) FindRoomByKey(_ context.Context, key string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[key]
	if !ok {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyRoom(&r.room), nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *models.Room) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	stored := *copyRoom(room)
	stored.ID = id
	s.rooms[room.Key] = &memRoom{room: stored}
	return id, nil
}

// AddMember держит эксклюзивную секцию комнаты вокруг вставки в набор:
// без неё одновременные join теряют обновления (известная гонка
// небезопасного fallback-пути)
func (s *MemoryStore) AddMember(_ context.Context, key, userID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[key]
	if !ok {
		return ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.room.Members {
		if m == userID {
			return nil
		}
	}
	r.room.Members = append(r.room.Members, userID)
	return nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, key, userID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[key]
	if !ok {
		return ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.room.Members {
		if m == userID {
			r.room.Members = append(r.room.Members[:i], r.room.Members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[key]; !ok {
		return ErrNotFound
	}
	delete(s.rooms, key)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close(_ context.Context) error { return nil }

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyRoom(r *models.Room) *models.Room {
	c := *r
	c.Members = make([]string, len(r.Members))
	copy(c.Members, r.Members)
	return &c
}
