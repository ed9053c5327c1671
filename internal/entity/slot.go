package entity

import (
	"time"

	"github.com/google/uuid"
)

type Slot struct {
	ID          uuid.UUID `json:"id" db:"id"`
	GatheringID uuid.UUID `json:"gathering_id" db:"gathering_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	SlotNumber  int       `json:"slot_number" db:"slot_number"`
	BookedAt    time.Time `json:"booked_at" db:"booked_at"`

	User *Profile `json:"user,omitempty"`
}

// Promotion describes a waitlist entry that received a freed slot
// during cancellation, for notification purposes.
type Promotion struct {
	GatheringID uuid.UUID `json:"gathering_id"`
	UserID      uuid.UUID `json:"user_id"`
	SlotNumber  int       `json:"slot_number"`
}
