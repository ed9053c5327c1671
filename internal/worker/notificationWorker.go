package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gathering-app/internal/entity"
	"gathering-app/internal/service"
	"gathering-app/pkg/queue"
)

// Notifier is the Telegram surface the worker needs. *telegram.Bot
// satisfies it.
type Notifier interface {
	NotifyGatheringCreated(ctx context.Context, chatID int64, title string, date time.Time, maxSlots int, gatheringURL string) error
	NotifyGatheringAlmostFull(ctx context.Context, chatID int64, title string, currentSlots, maxSlots int, gatheringURL string) error
	NotifyGatheringFull(ctx context.Context, chatID int64, title string, participants []string, gatheringURL string) error
	NotifySlotAvailable(ctx context.Context, chatID int64, title string, slotNumber int, gatheringURL string) error
	NotifyGatheringReminder(ctx context.Context, chatID int64, title string, date time.Time, gatheringURL string) error
}

// NotificationWorker consumes notification tasks from the queue and
// delivers Telegram messages. Delivery failures are reported back to
// the queue for retry; missing data (deleted gathering, no linked
// Telegram account) drops the task silently.
type NotificationWorker struct {
	gatheringService service.GatheringService
	profileService   service.ProfileService
	bot              Notifier
	groupChatID      int64
	baseURL          string
}

func NewNotificationWorker(
	gatheringService service.GatheringService,
	profileService service.ProfileService,
	bot Notifier,
	groupChatID int64,
	baseURL string,
) *NotificationWorker {
	return &NotificationWorker{
		gatheringService: gatheringService,
		profileService:   profileService,
		bot:              bot,
		groupChatID:      groupChatID,
		baseURL:          baseURL,
	}
}

// HandleTask dispatches a queue task to the matching notification.
func (w *NotificationWorker) HandleTask(task *queue.Task) error {
	if w.bot == nil {
		return nil
	}

	switch task.Type {
	case queue.TaskTypeSendNotification:
		return w.handleNotification(task)
	case queue.TaskTypeGatheringReminder:
		return w.handleReminder(task)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *NotificationWorker) handleNotification(task *queue.Task) error {
	ctx := context.Background()

	gatheringID, err := uuid.Parse(task.GetString("gathering_id"))
	if err != nil {
		return fmt.Errorf("invalid gathering_id in task data: %v", err)
	}

	details, err := w.gatheringService.GetGathering(ctx, gatheringID)
	if errors.Is(err, entity.ErrGatheringNotFound) {
		logrus.WithField("gathering_id", gatheringID).
			Info("gathering gone, dropping notification")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load gathering %s: %w", gatheringID, err)
	}

	url := w.gatheringURL(gatheringID)

	switch task.GetString("notification_type") {
	case queue.NotificationGatheringCreated:
		return w.bot.NotifyGatheringCreated(ctx, w.groupChatID,
			details.Title, details.GatheringDate, details.MaxSlots, url)

	case queue.NotificationGatheringAlmostFull:
		current := task.GetInt("current_slots")
		if current == 0 {
			current = details.SlotsCount
		}
		return w.bot.NotifyGatheringAlmostFull(ctx, w.groupChatID,
			details.Title, current, details.MaxSlots, url)

	case queue.NotificationGatheringFull:
		participants := make([]string, 0, len(details.Slots))
		for _, slot := range details.Slots {
			if slot.User != nil {
				participants = append(participants, slot.User.DisplayName)
			}
		}
		return w.bot.NotifyGatheringFull(ctx, w.groupChatID,
			details.Title, participants, url)

	case queue.NotificationSlotAvailable:
		return w.notifyPromotedUser(ctx, task, details, url)

	default:
		return fmt.Errorf("unknown notification type: %s", task.GetString("notification_type"))
	}
}

// notifyPromotedUser messages the user who took the freed slot. Users
// without a linked Telegram account are skipped.
func (w *NotificationWorker) notifyPromotedUser(ctx context.Context, task *queue.Task, details *entity.GatheringWithDetails, url string) error {
	userID, err := uuid.Parse(task.GetString("user_id"))
	if err != nil {
		return fmt.Errorf("invalid user_id in task data: %v", err)
	}

	profile, err := w.profileService.GetProfile(ctx, userID)
	if errors.Is(err, entity.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load profile %s: %w", userID, err)
	}

	if profile.TelegramID == 0 {
		logrus.WithField("user_id", userID).
			Debug("promoted user has no telegram account, skipping notification")
		return nil
	}

	return w.bot.NotifySlotAvailable(ctx, profile.TelegramID,
		details.Title, task.GetInt("slot_number"), url)
}

func (w *NotificationWorker) handleReminder(task *queue.Task) error {
	ctx := context.Background()

	gatheringID, err := uuid.Parse(task.GetString("gathering_id"))
	if err != nil {
		return fmt.Errorf("invalid gathering_id in task data: %v", err)
	}

	details, err := w.gatheringService.GetGathering(ctx, gatheringID)
	if errors.Is(err, entity.ErrGatheringNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load gathering %s: %w", gatheringID, err)
	}

	// A reminder for a cancelled gathering would only confuse people.
	if details.Status != entity.GatheringStatusOpen {
		return nil
	}

	return w.bot.NotifyGatheringReminder(ctx, w.groupChatID,
		details.Title, details.GatheringDate, w.gatheringURL(gatheringID))
}

func (w *NotificationWorker) gatheringURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/?gathering=%s", w.baseURL, id)
}
