package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gathering-app/internal/entity"
)

// GatheringService covers gathering lifecycle operations.
type GatheringService interface {
	CreateGathering(ctx context.Context, creatorID uuid.UUID, req *CreateGatheringRequest) (*entity.Gathering, error)
	GetGathering(ctx context.Context, id uuid.UUID) (*entity.GatheringWithDetails, error)
	GetUpcomingGatherings(ctx context.Context) ([]*entity.GatheringWithDetails, error)
	GetMyGatherings(ctx context.Context, creatorID uuid.UUID) ([]*entity.GatheringWithDetails, error)
	CancelGathering(ctx context.Context, id, requesterID uuid.UUID) error
	DeleteGathering(ctx context.Context, id, requesterID uuid.UUID) error

	// CloseFinishedGatherings is run periodically by the worker.
	CloseFinishedGatherings(ctx context.Context) (int64, error)
}

// BookingService covers slot and waitlist operations. Every operation
// is atomic: it either fully applies or leaves no trace.
type BookingService interface {
	BookSlot(ctx context.Context, gatheringID, userID uuid.UUID) (*BookingResult, error)
	BookSlotForFriend(ctx context.Context, gatheringID, bookerID uuid.UUID, req *BookForFriendRequest) (*BookingResult, error)
	CancelSlot(ctx context.Context, gatheringID, userID uuid.UUID) error
	JoinWaitlist(ctx context.Context, gatheringID, userID uuid.UUID) (int, error)
	LeaveWaitlist(ctx context.Context, gatheringID, userID uuid.UUID) error
}

type ProfileService interface {
	RegisterProfile(ctx context.Context, req *RegisterProfileRequest) (*entity.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	GetProfileByTelegramID(ctx context.Context, telegramID int64) (*entity.Profile, error)
	LinkTelegram(ctx context.Context, id uuid.UUID, telegramID int64, username string) error
}

// CreateGatheringRequest carries the payload for creating a gathering.
type CreateGatheringRequest struct {
	Title           string             `json:"title" binding:"required,min=3,max=100"`
	Description     string             `json:"description" binding:"max=500"`
	MaxSlots        int                `json:"max_slots" binding:"required,min=2,max=100"`
	GatheringDate   entity.CustomTime  `json:"gathering_date" binding:"required"`
	BookingDeadline *entity.CustomTime `json:"booking_deadline"`
}

// BookForFriendRequest books a slot on behalf of a friend who has no
// account yet. SlotNumber zero means the lowest free number.
type BookForFriendRequest struct {
	FriendName string `json:"friend_name" binding:"required,min=1,max=50"`
	SlotNumber int    `json:"slot_number" binding:"omitempty,min=1"`
}

type RegisterProfileRequest struct {
	DisplayName      string `json:"display_name" binding:"required,min=1,max=50"`
	TelegramID       int64  `json:"telegram_id"`
	TelegramUsername string `json:"telegram_username"`
}

// BookingResult reports the slot assigned by a booking operation.
type BookingResult struct {
	GatheringID uuid.UUID `json:"gathering_id"`
	UserID      uuid.UUID `json:"user_id"`
	SlotNumber  int       `json:"slot_number"`
}

// TaskPublisher publishes background tasks to the queue.
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task mirrors the queue task shape without importing the queue
// package.
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

const (
	TaskTypeSendNotification  = "send_notification"
	TaskTypeGatheringReminder = "gathering_reminder"
)

// Notification subtypes carried in task data under "notification_type".
const (
	NotificationGatheringCreated    = "gathering_created"
	NotificationGatheringAlmostFull = "gathering_almost_full"
	NotificationGatheringFull       = "gathering_full"
	NotificationSlotAvailable       = "slot_available"
)
