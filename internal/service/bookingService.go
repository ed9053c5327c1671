package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "gathering-app/internal/database/postgres"
	"gathering-app/internal/entity"
)

// BookingConfig tunes the booking policy.
type BookingConfig struct {
	// RequireFullForWaitlist refuses waitlist joins while open slots
	// remain.
	RequireFullForWaitlist bool
	// AlmostFullThreshold is the number of remaining slots that
	// triggers the almost-full notification.
	AlmostFullThreshold int
}

type bookingService struct {
	bookingRepo   repository.BookingRepository
	gatheringRepo repository.GatheringRepository
	profileRepo   repository.ProfileRepository
	queue         TaskPublisher
	cfg           BookingConfig
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	gatheringRepo repository.GatheringRepository,
	profileRepo repository.ProfileRepository,
	queue TaskPublisher,
	cfg BookingConfig,
) BookingService {
	if cfg.AlmostFullThreshold <= 0 {
		cfg.AlmostFullThreshold = 1
	}
	return &bookingService{
		bookingRepo:   bookingRepo,
		gatheringRepo: gatheringRepo,
		profileRepo:   profileRepo,
		queue:         queue,
		cfg:           cfg,
	}
}

// BookSlot assigns the lowest free slot number to the user and fires
// capacity notifications when the gathering fills up.
func (s *bookingService) BookSlot(ctx context.Context, gatheringID, userID uuid.UUID) (*BookingResult, error) {
	slotNumber, err := s.bookingRepo.BookSlot(ctx, gatheringID, userID)
	if err != nil {
		return nil, err
	}

	s.notifyCapacityChange(gatheringID)

	return &BookingResult{
		GatheringID: gatheringID,
		UserID:      userID,
		SlotNumber:  slotNumber,
	}, nil
}

// BookSlotForFriend books a slot for someone without an account. A
// guest profile is created for the friend name, or reused when one
// already exists.
func (s *bookingService) BookSlotForFriend(ctx context.Context, gatheringID, bookerID uuid.UUID, req *BookForFriendRequest) (*BookingResult, error) {
	if req.FriendName == "" {
		return nil, fmt.Errorf("%w: friend name is required", entity.ErrInvalidInput)
	}

	friend, err := s.profileRepo.GetByDisplayName(ctx, req.FriendName)
	if errors.Is(err, entity.ErrProfileNotFound) {
		friend = &entity.Profile{
			DisplayName: req.FriendName,
			Guest:       true,
		}
		if err := s.profileRepo.Create(ctx, friend); err != nil {
			return nil, fmt.Errorf("failed to create guest profile: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	var slotNumber int
	if req.SlotNumber > 0 {
		if err := s.bookingRepo.BookSlotNumber(ctx, gatheringID, friend.ID, req.SlotNumber); err != nil {
			return nil, err
		}
		slotNumber = req.SlotNumber
	} else {
		slotNumber, err = s.bookingRepo.BookSlot(ctx, gatheringID, friend.ID)
		if err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"gathering_id": gatheringID,
		"booker_id":    bookerID,
		"friend":       req.FriendName,
		"slot_number":  slotNumber,
	}).Info("slot booked for friend")

	s.notifyCapacityChange(gatheringID)

	return &BookingResult{
		GatheringID: gatheringID,
		UserID:      friend.ID,
		SlotNumber:  slotNumber,
	}, nil
}

// CancelSlot frees the user's slot. Cancelling twice succeeds. When
// the freed slot promotes a waitlisted user, that user is notified.
func (s *bookingService) CancelSlot(ctx context.Context, gatheringID, userID uuid.UUID) error {
	promotion, err := s.bookingRepo.CancelSlot(ctx, gatheringID, userID)
	if err != nil {
		return err
	}

	if promotion != nil {
		s.publishNotification(gatheringID, NotificationSlotAvailable, map[string]interface{}{
			"user_id":     promotion.UserID.String(),
			"slot_number": promotion.SlotNumber,
		})
	}

	return nil
}

func (s *bookingService) JoinWaitlist(ctx context.Context, gatheringID, userID uuid.UUID) (int, error) {
	return s.bookingRepo.JoinWaitlist(ctx, gatheringID, userID, s.cfg.RequireFullForWaitlist)
}

func (s *bookingService) LeaveWaitlist(ctx context.Context, gatheringID, userID uuid.UUID) error {
	return s.bookingRepo.LeaveWaitlist(ctx, gatheringID, userID)
}

// notifyCapacityChange fires the full or almost-full notification
// after a successful booking. Never fails the booking.
func (s *bookingService) notifyCapacityChange(gatheringID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	gathering, err := s.gatheringRepo.GetByID(ctx, gatheringID)
	if err != nil {
		logrus.WithError(err).Warn("failed to load gathering for capacity notification")
		return
	}

	count, err := s.bookingRepo.CountSlots(ctx, gatheringID)
	if err != nil {
		logrus.WithError(err).Warn("failed to count slots for capacity notification")
		return
	}

	remaining := gathering.MaxSlots - count
	switch {
	case remaining == 0:
		s.publishNotification(gatheringID, NotificationGatheringFull, nil)
	case remaining <= s.cfg.AlmostFullThreshold:
		s.publishNotification(gatheringID, NotificationGatheringAlmostFull, map[string]interface{}{
			"current_slots": count,
		})
	}
}

func (s *bookingService) publishNotification(gatheringID uuid.UUID, notificationType string, extra map[string]interface{}) {
	if s.queue == nil {
		return
	}

	data := map[string]interface{}{
		"notification_type": notificationType,
		"gathering_id":      gatheringID.String(),
	}
	for k, v := range extra {
		data[k] = v
	}

	task := &Task{
		ID:   fmt.Sprintf("task_%s", uuid.NewString()),
		Type: TaskTypeSendNotification,
		Data: data,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.WithError(err).WithField("notification_type", notificationType).
			Warn("failed to publish notification task")
	}
}
