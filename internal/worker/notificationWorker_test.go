package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gathering-app/internal/entity"
	"gathering-app/internal/service"
	"gathering-app/pkg/queue"
	"gathering-app/pkg/telegram"
)

type sentNotification struct {
	kind       string
	chatID     int64
	title      string
	slotNumber int
}

type stubNotifier struct {
	sent []sentNotification
}

func (s *stubNotifier) NotifyGatheringCreated(ctx context.Context, chatID int64, title string, date time.Time, maxSlots int, url string) error {
	s.sent = append(s.sent, sentNotification{kind: "created", chatID: chatID, title: title})
	return nil
}

func (s *stubNotifier) NotifyGatheringAlmostFull(ctx context.Context, chatID int64, title string, currentSlots, maxSlots int, url string) error {
	s.sent = append(s.sent, sentNotification{kind: "almost_full", chatID: chatID, title: title})
	return nil
}

func (s *stubNotifier) NotifyGatheringFull(ctx context.Context, chatID int64, title string, participants []string, url string) error {
	s.sent = append(s.sent, sentNotification{kind: "full", chatID: chatID, title: title})
	return nil
}

func (s *stubNotifier) NotifySlotAvailable(ctx context.Context, chatID int64, title string, slotNumber int, url string) error {
	s.sent = append(s.sent, sentNotification{kind: "slot_available", chatID: chatID, title: title, slotNumber: slotNumber})
	return nil
}

func (s *stubNotifier) NotifyGatheringReminder(ctx context.Context, chatID int64, title string, date time.Time, url string) error {
	s.sent = append(s.sent, sentNotification{kind: "reminder", chatID: chatID, title: title})
	return nil
}

type stubGatheringService struct {
	service.GatheringService
	details *entity.GatheringWithDetails
}

func (s *stubGatheringService) GetGathering(ctx context.Context, id uuid.UUID) (*entity.GatheringWithDetails, error) {
	if s.details == nil {
		return nil, entity.ErrGatheringNotFound
	}
	return s.details, nil
}

type stubProfileService struct {
	service.ProfileService
	profile *entity.Profile
}

func (s *stubProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	if s.profile == nil {
		return nil, entity.ErrProfileNotFound
	}
	return s.profile, nil
}

func notificationTask(notificationType string, gatheringID uuid.UUID, extra map[string]interface{}) *queue.Task {
	data := map[string]interface{}{
		"notification_type": notificationType,
		"gathering_id":      gatheringID.String(),
	}
	for k, v := range extra {
		data[k] = v
	}
	return &queue.Task{
		ID:   "task_test",
		Type: queue.TaskTypeSendNotification,
		Data: data,
	}
}

func TestHandleTask_SlotAvailableGoesToPromotedUser(t *testing.T) {
	gatheringID := uuid.New()
	userID := uuid.New()
	notifier := &stubNotifier{}

	w := NewNotificationWorker(
		&stubGatheringService{details: &entity.GatheringWithDetails{
			Gathering: entity.Gathering{ID: gatheringID, Title: "Футбол", Status: entity.GatheringStatusOpen},
		}},
		&stubProfileService{profile: &entity.Profile{ID: userID, TelegramID: 777, DisplayName: "Оля"}},
		notifier, 100, "https://example.com")

	task := notificationTask(queue.NotificationSlotAvailable, gatheringID, map[string]interface{}{
		"user_id":     userID.String(),
		"slot_number": 2,
	})
	require.NoError(t, w.HandleTask(task))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "slot_available", notifier.sent[0].kind)
	assert.Equal(t, int64(777), notifier.sent[0].chatID)
	assert.Equal(t, 2, notifier.sent[0].slotNumber)
}

func TestHandleTask_SlotAvailableSkipsUnlinkedUser(t *testing.T) {
	gatheringID := uuid.New()
	userID := uuid.New()
	notifier := &stubNotifier{}

	w := NewNotificationWorker(
		&stubGatheringService{details: &entity.GatheringWithDetails{
			Gathering: entity.Gathering{ID: gatheringID, Title: "Футбол"},
		}},
		&stubProfileService{profile: &entity.Profile{ID: userID, DisplayName: "Гість", Guest: true}},
		notifier, 100, "https://example.com")

	task := notificationTask(queue.NotificationSlotAvailable, gatheringID, map[string]interface{}{
		"user_id": userID.String(),
	})
	require.NoError(t, w.HandleTask(task))
	assert.Empty(t, notifier.sent)
}

func TestHandleTask_FullListsParticipantsToGroupChat(t *testing.T) {
	gatheringID := uuid.New()
	notifier := &stubNotifier{}

	w := NewNotificationWorker(
		&stubGatheringService{details: &entity.GatheringWithDetails{
			Gathering: entity.Gathering{ID: gatheringID, Title: "Настолки"},
			Slots: []*entity.Slot{
				{SlotNumber: 1, User: &entity.Profile{DisplayName: "Оля"}},
				{SlotNumber: 2, User: &entity.Profile{DisplayName: "Тарас"}},
			},
		}},
		&stubProfileService{}, notifier, 100, "https://example.com")

	require.NoError(t, w.HandleTask(notificationTask(queue.NotificationGatheringFull, gatheringID, nil)))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "full", notifier.sent[0].kind)
	assert.Equal(t, int64(100), notifier.sent[0].chatID)
}

func TestHandleTask_GatheringGoneDropsTask(t *testing.T) {
	notifier := &stubNotifier{}
	w := NewNotificationWorker(&stubGatheringService{}, &stubProfileService{}, notifier, 100, "https://example.com")

	err := w.HandleTask(notificationTask(queue.NotificationGatheringCreated, uuid.New(), nil))
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestHandleTask_UnconfiguredBotDoesNotPanic(t *testing.T) {
	gatheringID := uuid.New()

	// A nil *telegram.Bot stored in the Notifier interface is not a
	// nil interface, so the worker must survive it either way.
	w := NewNotificationWorker(
		&stubGatheringService{details: &entity.GatheringWithDetails{
			Gathering: entity.Gathering{ID: gatheringID, Title: "Футбол", Status: entity.GatheringStatusOpen},
		}},
		&stubProfileService{}, (*telegram.Bot)(nil), 100, "https://example.com")

	var err error
	require.NotPanics(t, func() {
		err = w.HandleTask(notificationTask(queue.NotificationGatheringCreated, gatheringID, nil))
	})
	assert.Error(t, err)
}

func TestHandleTask_UnknownTypeFails(t *testing.T) {
	w := NewNotificationWorker(&stubGatheringService{}, &stubProfileService{}, &stubNotifier{}, 100, "https://example.com")

	err := w.HandleTask(&queue.Task{ID: "task_test", Type: "mystery"})
	assert.Error(t, err)
}

func TestHandleTask_ReminderSkipsCancelledGathering(t *testing.T) {
	gatheringID := uuid.New()
	notifier := &stubNotifier{}

	w := NewNotificationWorker(
		&stubGatheringService{details: &entity.GatheringWithDetails{
			Gathering: entity.Gathering{ID: gatheringID, Title: "Футбол", Status: entity.GatheringStatusCancelled},
		}},
		&stubProfileService{}, notifier, 100, "https://example.com")

	task := &queue.Task{
		ID:   "task_test",
		Type: queue.TaskTypeGatheringReminder,
		Data: map[string]interface{}{"gathering_id": gatheringID.String()},
	}
	require.NoError(t, w.HandleTask(task))
	assert.Empty(t, notifier.sent)
}
