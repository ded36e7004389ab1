package storage

import (
	"context"
	"errors"

	"github.com/thereayou/chatify/internal/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record already exists")
	ErrUnavailable = errors.New("storage backend unavailable")
)

// UserFilter задаёт поиск пользователя по одному из полей.
// ID принимается в строковой форме и нормализуется бэкендом.
type UserFilter struct {
	ID       string
	Username string
	Email    string
}

// UserPatch обновляет только непустые поля
type UserPatch struct {
	Username     string
	Email        string
	PasswordHash string
}

// Store — единый контракт над двумя бэкендами (Mongo и in-memory).
// Оба обязаны вести себя одинаково для любой последовательности вызовов:
// одинаковые наборы участников, одинаковая семантика отсутствия записи.
//
// Отсутствие записи в Find* — это (nil, nil), а не ошибка.
// Уникальность username/email НЕ обеспечивается бэкендом: проверка
// query-before-insert лежит на вызывающем, гонка двух одновременных
// регистраций с одним username — известный, задокументированный пробел.
type Store interface {
	FindUser(ctx context.Context, filter UserFilter) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (string, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) error

	FindRoomsByCreator(ctx context.Context, userID string) ([]models.Room, error)
	FindRoomByKey(ctx context.Context, key string) (*models.Room, error)
	CreateRoom(ctx context.Context, room *models.Room) (string, error)

	// AddMember и RemoveMember идемпотентны и атомарны по комнате:
	// Mongo использует $addToSet/$pull, in-memory — мьютекс на комнату.
	AddMember(ctx context.Context, key, userID string) error
	RemoveMember(ctx context.Context, key, userID string) error

	DeleteRoom(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
