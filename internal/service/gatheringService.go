package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "gathering-app/internal/database/postgres"
	"gathering-app/internal/entity"
)

type gatheringService struct {
	gatheringRepo repository.GatheringRepository
	queue         TaskPublisher
	reminderLead  time.Duration
}

// NewGatheringService creates the gathering service. reminderLead is
// how long before the gathering date the reminder fires; zero disables
// reminders.
func NewGatheringService(gatheringRepo repository.GatheringRepository, queue TaskPublisher, reminderLead time.Duration) GatheringService {
	return &gatheringService{
		gatheringRepo: gatheringRepo,
		queue:         queue,
		reminderLead:  reminderLead,
	}
}

// CreateGathering validates the request, stores the gathering and
// announces it. The announcement is fire-and-forget.
func (s *gatheringService) CreateGathering(ctx context.Context, creatorID uuid.UUID, req *CreateGatheringRequest) (*entity.Gathering, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	gathering := &entity.Gathering{
		Title:         req.Title,
		Description:   req.Description,
		CreatorID:     creatorID,
		MaxSlots:      req.MaxSlots,
		GatheringDate: req.GatheringDate.Time,
		Status:        entity.GatheringStatusOpen,
	}
	if req.BookingDeadline != nil && !req.BookingDeadline.IsZero() {
		deadline := req.BookingDeadline.Time
		gathering.BookingDeadline = &deadline
	}

	if err := s.gatheringRepo.Create(ctx, gathering); err != nil {
		return nil, fmt.Errorf("failed to create gathering: %w", err)
	}

	s.publishNotification(gathering.ID, NotificationGatheringCreated, nil)
	s.scheduleReminder(gathering)

	return gathering, nil
}

// scheduleReminder enqueues a delayed reminder task that fires
// reminderLead before the gathering starts. Gatherings starting
// sooner than that get no reminder.
func (s *gatheringService) scheduleReminder(gathering *entity.Gathering) {
	if s.queue == nil || s.reminderLead <= 0 {
		return
	}

	fireAt := gathering.GatheringDate.Add(-s.reminderLead)
	if fireAt.Before(time.Now()) {
		return
	}

	task := &Task{
		ID:        fmt.Sprintf("task_%s", uuid.NewString()),
		Type:      TaskTypeGatheringReminder,
		Data:      map[string]interface{}{"gathering_id": gathering.ID.String()},
		ExecuteAt: fireAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.WithError(err).WithField("gathering_id", gathering.ID).
			Warn("failed to schedule gathering reminder")
	}
}

func validateCreateRequest(req *CreateGatheringRequest) error {
	if len(req.Title) < 3 || len(req.Title) > 100 {
		return fmt.Errorf("%w: title must be 3-100 characters", entity.ErrInvalidInput)
	}
	if len(req.Description) > 500 {
		return fmt.Errorf("%w: description must be at most 500 characters", entity.ErrInvalidInput)
	}
	if req.MaxSlots < 2 || req.MaxSlots > 100 {
		return fmt.Errorf("%w: max_slots must be between 2 and 100", entity.ErrInvalidInput)
	}
	if req.GatheringDate.IsZero() || req.GatheringDate.Before(time.Now()) {
		return entity.ErrGatheringDatePast
	}
	if req.BookingDeadline != nil && !req.BookingDeadline.IsZero() &&
		req.BookingDeadline.After(req.GatheringDate.Time) {
		return fmt.Errorf("%w: booking deadline must not be after the gathering date", entity.ErrInvalidInput)
	}
	return nil
}

func (s *gatheringService) GetGathering(ctx context.Context, id uuid.UUID) (*entity.GatheringWithDetails, error) {
	return s.gatheringRepo.GetWithDetails(ctx, id)
}

func (s *gatheringService) GetUpcomingGatherings(ctx context.Context) ([]*entity.GatheringWithDetails, error) {
	return s.gatheringRepo.GetUpcoming(ctx, time.Now())
}

func (s *gatheringService) GetMyGatherings(ctx context.Context, creatorID uuid.UUID) ([]*entity.GatheringWithDetails, error) {
	return s.gatheringRepo.GetByCreator(ctx, creatorID)
}

// CancelGathering marks the gathering cancelled. Only the creator may
// do this.
func (s *gatheringService) CancelGathering(ctx context.Context, id, requesterID uuid.UUID) error {
	gathering, err := s.gatheringRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if gathering.CreatorID != requesterID {
		return entity.ErrNotCreator
	}

	return s.gatheringRepo.UpdateStatus(ctx, id, entity.GatheringStatusCancelled)
}

// DeleteGathering removes the gathering and its slots and waitlist.
func (s *gatheringService) DeleteGathering(ctx context.Context, id, requesterID uuid.UUID) error {
	gathering, err := s.gatheringRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if gathering.CreatorID != requesterID {
		return entity.ErrNotCreator
	}

	return s.gatheringRepo.Delete(ctx, id)
}

func (s *gatheringService) CloseFinishedGatherings(ctx context.Context) (int64, error) {
	return s.gatheringRepo.CloseFinished(ctx, time.Now())
}

// publishNotification enqueues a notification task. Failures are
// logged and swallowed so they never affect the calling operation.
func (s *gatheringService) publishNotification(gatheringID uuid.UUID, notificationType string, extra map[string]interface{}) {
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
