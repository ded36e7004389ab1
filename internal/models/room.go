package models

import (
	"time"
)

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`

	// Набор участников, без дубликатов; порядок не значим
	Members []string `json:"members"`
}

// HasMember проверяет членство пользователя в комнате
func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}
