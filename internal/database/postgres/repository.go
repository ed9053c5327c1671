package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gathering-app/internal/entity"
)

// BookingRepository is the booking engine: every method runs as one
// atomic transaction serialized per gathering via the gathering row
// lock. Callers never observe intermediate state.
type BookingRepository interface {
	// Slot operations
	BookSlot(ctx context.Context, gatheringID, userID uuid.UUID) (int, error)
	BookSlotNumber(ctx context.Context, gatheringID, userID uuid.UUID, slotNumber int) error
	CancelSlot(ctx context.Context, gatheringID, userID uuid.UUID) (*entity.Promotion, error)

	// Waitlist operations
	JoinWaitlist(ctx context.Context, gatheringID, userID uuid.UUID, requireFull bool) (int, error)
	LeaveWaitlist(ctx context.Context, gatheringID, userID uuid.UUID) error

	// Query operations
	GetSlots(ctx context.Context, gatheringID uuid.UUID) ([]*entity.Slot, error)
	GetWaitlist(ctx context.Context, gatheringID uuid.UUID) ([]*entity.WaitlistEntry, error)
	CountSlots(ctx context.Context, gatheringID uuid.UUID) (int, error)
}

type GatheringRepository interface {
	Create(ctx context.Context, gathering *entity.Gathering) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Gathering, error)
	GetWithDetails(ctx context.Context, id uuid.UUID) (*entity.GatheringWithDetails, error)
	GetUpcoming(ctx context.Context, after time.Time) ([]*entity.GatheringWithDetails, error)
	GetByCreator(ctx context.Context, creatorID uuid.UUID) ([]*entity.GatheringWithDetails, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.GatheringStatus) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Housekeeping
	CloseFinished(ctx context.Context, before time.Time) (int64, error)
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *entity.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*entity.Profile, error)
	GetByDisplayName(ctx context.Context, displayName string) (*entity.Profile, error)
	LinkTelegram(ctx context.Context, id uuid.UUID, telegramID int64, username string) error
}
