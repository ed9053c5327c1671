package entity

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistEntry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	GatheringID uuid.UUID `json:"gathering_id" db:"gathering_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Position    int       `json:"position" db:"position"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`

	User *Profile `json:"user,omitempty"`
}
