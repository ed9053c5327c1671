package entity

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID               uuid.UUID `json:"id" db:"id"`
	TelegramID       int64     `json:"telegram_id,omitempty" db:"telegram_id"`
	TelegramUsername string    `json:"telegram_username,omitempty" db:"telegram_username"`
	DisplayName      string    `json:"display_name" db:"display_name"`
	Guest            bool      `json:"guest" db:"guest"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
