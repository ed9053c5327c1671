package entity

import (
	"time"

	"github.com/google/uuid"
)

type GatheringStatus string

const (
	GatheringStatusOpen      GatheringStatus = "open"
	GatheringStatusClosed    GatheringStatus = "closed"
	GatheringStatusCancelled GatheringStatus = "cancelled"
)

type Gathering struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	Description     string          `json:"description" db:"description"`
	CreatorID       uuid.UUID       `json:"creator_id" db:"creator_id"`
	MaxSlots        int             `json:"max_slots" db:"max_slots"`
	GatheringDate   time.Time       `json:"gathering_date" db:"gathering_date"`
	BookingDeadline *time.Time      `json:"booking_deadline,omitempty" db:"booking_deadline"`
	Status          GatheringStatus `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// GatheringWithDetails is the read-layer view: slots ordered by number,
// waitlist ordered by position, plus derived counters.
type GatheringWithDetails struct {
	Gathering
	Creator       *Profile         `json:"creator,omitempty"`
	Slots         []*Slot          `json:"slots"`
	Waitlist      []*WaitlistEntry `json:"waitlist"`
	SlotsCount    int              `json:"slots_count"`
	WaitlistCount int              `json:"waitlist_count"`
	IsFull        bool             `json:"is_full"`
}

// BookingOpen reports whether new slot bookings are currently accepted.
func (g *Gathering) BookingOpen(now time.Time) bool {
	if g.Status != GatheringStatusOpen {
		return false
	}
	if g.BookingDeadline != nil && now.After(*g.BookingDeadline) {
		return false
	}
	return true
}
