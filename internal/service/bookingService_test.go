package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gathering-app/internal/entity"
)

type fakeBookingRepo struct {
	bookSlotFn       func(ctx context.Context, gatheringID, userID uuid.UUID) (int, error)
	bookSlotNumberFn func(ctx context.Context, gatheringID, userID uuid.UUID, slotNumber int) error
	cancelSlotFn     func(ctx context.Context, gatheringID, userID uuid.UUID) (*entity.Promotion, error)
	joinWaitlistFn   func(ctx context.Context, gatheringID, userID uuid.UUID, requireFull bool) (int, error)
	leaveWaitlistFn  func(ctx context.Context, gatheringID, userID uuid.UUID) error
	countSlotsFn     func(ctx context.Context, gatheringID uuid.UUID) (int, error)
}

func (f *fakeBookingRepo) BookSlot(ctx context.Context, gatheringID, userID uuid.UUID) (int, error) {
	return f.bookSlotFn(ctx, gatheringID, userID)
}

func (f *fakeBookingRepo) BookSlotNumber(ctx context.Context, gatheringID, userID uuid.UUID, slotNumber int) error {
	return f.bookSlotNumberFn(ctx, gatheringID, userID, slotNumber)
}

func (f *fakeBookingRepo) CancelSlot(ctx context.Context, gatheringID, userID uuid.UUID) (*entity.Promotion, error) {
	return f.cancelSlotFn(ctx, gatheringID, userID)
}

func (f *fakeBookingRepo) JoinWaitlist(ctx context.Context, gatheringID, userID uuid.UUID, requireFull bool) (int, error) {
	return f.joinWaitlistFn(ctx, gatheringID, userID, requireFull)
}

func (f *fakeBookingRepo) LeaveWaitlist(ctx context.Context, gatheringID, userID uuid.UUID) error {
	return f.leaveWaitlistFn(ctx, gatheringID, userID)
}

func (f *fakeBookingRepo) GetSlots(ctx context.Context, gatheringID uuid.UUID) ([]*entity.Slot, error) {
	return nil, nil
}

func (f *fakeBookingRepo) GetWaitlist(ctx context.Context, gatheringID uuid.UUID) ([]*entity.WaitlistEntry, error) {
	return nil, nil
}

func (f *fakeBookingRepo) CountSlots(ctx context.Context, gatheringID uuid.UUID) (int, error) {
	if f.countSlotsFn != nil {
		return f.countSlotsFn(ctx, gatheringID)
	}
	return 0, nil
}

type fakeProfileRepo struct {
	profiles map[string]*entity.Profile // keyed by display name
	created  []*entity.Profile
}

func (f *fakeProfileRepo) Create(ctx context.Context, p *entity.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if f.profiles == nil {
		f.profiles = make(map[string]*entity.Profile)
	}
	f.profiles[p.DisplayName] = p
	f.created = append(f.created, p)
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, entity.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*entity.Profile, error) {
	for _, p := range f.profiles {
		if p.TelegramID == telegramID {
			return p, nil
		}
	}
	return nil, entity.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByDisplayName(ctx context.Context, displayName string) (*entity.Profile, error) {
	if p, ok := f.profiles[displayName]; ok {
		return p, nil
	}
	return nil, entity.ErrProfileNotFound
}

func (f *fakeProfileRepo) LinkTelegram(ctx context.Context, id uuid.UUID, telegramID int64, username string) error {
	return nil
}

type fakePublisher struct {
	tasks []*Task
}

func (f *fakePublisher) Publish(ctx context.Context, task *Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakePublisher) notificationTypes() []string {
	var types []string
	for _, t := range f.tasks {
		if nt, ok := t.Data["notification_type"].(string); ok {
			types = append(types, nt)
		}
	}
	return types
}

type fakeGatheringRepoForBooking struct {
	fakeGatheringRepo
	gathering *entity.Gathering
}

func (f *fakeGatheringRepoForBooking) GetByID(ctx context.Context, id uuid.UUID) (*entity.Gathering, error) {
	if f.gathering == nil {
		return nil, entity.ErrGatheringNotFound
	}
	return f.gathering, nil
}

func TestBookSlot_NotifiesWhenFull(t *testing.T) {
	gatheringID := uuid.New()
	userID := uuid.New()
	publisher := &fakePublisher{}

	bookingRepo := &fakeBookingRepo{
		bookSlotFn: func(ctx context.Context, gID, uID uuid.UUID) (int, error) {
			return 5, nil
		},
		countSlotsFn: func(ctx context.Context, gID uuid.UUID) (int, error) {
			return 5, nil
		},
	}
	gatheringRepo := &fakeGatheringRepoForBooking{
		gathering: &entity.Gathering{ID: gatheringID, MaxSlots: 5},
	}

	svc := NewBookingService(bookingRepo, gatheringRepo, &fakeProfileRepo{}, publisher, BookingConfig{})

	result, err := svc.BookSlot(context.Background(), gatheringID, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, result.SlotNumber)
	assert.Equal(t, []string{NotificationGatheringFull}, publisher.notificationTypes())
}

func TestBookSlot_NotifiesWhenAlmostFull(t *testing.T) {
	gatheringID := uuid.New()
	publisher := &fakePublisher{}

	bookingRepo := &fakeBookingRepo{
		bookSlotFn: func(ctx context.Context, gID, uID uuid.UUID) (int, error) {
			return 4, nil
		},
		countSlotsFn: func(ctx context.Context, gID uuid.UUID) (int, error) {
			return 4, nil
		},
	}
	gatheringRepo := &fakeGatheringRepoForBooking{
		gathering: &entity.Gathering{ID: gatheringID, MaxSlots: 5},
	}

	svc := NewBookingService(bookingRepo, gatheringRepo, &fakeProfileRepo{}, publisher, BookingConfig{AlmostFullThreshold: 1})

	_, err := svc.BookSlot(context.Background(), gatheringID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []string{NotificationGatheringAlmostFull}, publisher.notificationTypes())
}

func TestBookSlot_NoNotificationBelowThreshold(t *testing.T) {
	gatheringID := uuid.New()
	publisher := &fakePublisher{}

	bookingRepo := &fakeBookingRepo{
		bookSlotFn: func(ctx context.Context, gID, uID uuid.UUID) (int, error) {
			return 1, nil
		},
		countSlotsFn: func(ctx context.Context, gID uuid.UUID) (int, error) {
			return 1, nil
		},
	}
	gatheringRepo := &fakeGatheringRepoForBooking{
		gathering: &entity.Gathering{ID: gatheringID, MaxSlots: 5},
	}

	svc := NewBookingService(bookingRepo, gatheringRepo, &fakeProfileRepo{}, publisher, BookingConfig{})

	_, err := svc.BookSlot(context.Background(), gatheringID, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, publisher.tasks)
}

func TestBookSlot_ErrorDoesNotNotify(t *testing.T) {
	publisher := &fakePublisher{}

	bookingRepo := &fakeBookingRepo{
		bookSlotFn: func(ctx context.Context, gID, uID uuid.UUID) (int, error) {
			return 0, entity.ErrNoSlotsAvailable
		},
	}

	svc := NewBookingService(bookingRepo, &fakeGatheringRepoForBooking{}, &fakeProfileRepo{}, publisher, BookingConfig{})

	_, err := svc.BookSlot(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, entity.ErrNoSlotsAvailable)
	assert.Empty(t, publisher.tasks)
}

func TestCancelSlot_NotifiesPromotedUser(t *testing.T) {
	gatheringID := uuid.New()
	promotedID := uuid.New()
	publisher := &fakePublisher{}

	bookingRepo := &fakeBookingRepo{
		cancelSlotFn: func(ctx context.Context, gID, uID uuid.UUID) (*entity.Promotion, error) {
			return &entity.Promotion{GatheringID: gID, UserID: promotedID, SlotNumber: 3}, nil
		},
	}

	svc := NewBookingService(bookingRepo, &fakeGatheringRepoForBooking{}, &fakeProfileRepo{}, publisher, BookingConfig{})

	require.NoError(t, svc.CancelSlot(context.Background(), gatheringID, uuid.New()))

	require.Len(t, publisher.tasks, 1)
	task := publisher.tasks[0]
	assert.Equal(t, NotificationSlotAvailable, task.Data["notification_type"])
	assert.Equal(t, promotedID.String(), task.Data["user_id"])
	assert.Equal(t, 3, task.Data["slot_number"])
}

func TestCancelSlot_NoPromotionNoNotification(t *testing.T) {
	publisher := &fakePublisher{}

	bookingRepo := &fakeBookingRepo{
		cancelSlotFn: func(ctx context.Context, gID, uID uuid.UUID) (*entity.Promotion, error) {
			return nil, nil
		},
	}

	svc := NewBookingService(bookingRepo, &fakeGatheringRepoForBooking{}, &fakeProfileRepo{}, publisher, BookingConfig{})

	require.NoError(t, svc.CancelSlot(context.Background(), uuid.New(), uuid.New()))
	assert.Empty(t, publisher.tasks)
}

func TestJoinWaitlist_PassesPolicyFlag(t *testing.T) {
	var gotRequireFull bool

	bookingRepo := &fakeBookingRepo{
		joinWaitlistFn: func(ctx context.Context, gID, uID uuid.UUID, requireFull bool) (int, error) {
			gotRequireFull = requireFull
			return 1, nil
		},
	}

	svc := NewBookingService(bookingRepo, &fakeGatheringRepoForBooking{}, &fakeProfileRepo{}, &fakePublisher{},
		BookingConfig{RequireFullForWaitlist: true})

	position, err := svc.JoinWaitlist(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, position)
	assert.True(t, gotRequireFull)
}

func TestBookSlotForFriend_CreatesGuestProfile(t *testing.T) {
	gatheringID := uuid.New()
	profileRepo := &fakeProfileRepo{}

	var bookedUserID uuid.UUID
	bookingRepo := &fakeBookingRepo{
		bookSlotFn: func(ctx context.Context, gID, uID uuid.UUID) (int, error) {
			bookedUserID = uID
			return 2, nil
		},
		countSlotsFn: func(ctx context.Context, gID uuid.UUID) (int, error) {
			return 2, nil
		},
	}
	gatheringRepo := &fakeGatheringRepoForBooking{
		gathering: &entity.Gathering{ID: gatheringID, MaxSlots: 10},
	}

	svc := NewBookingService(bookingRepo, gatheringRepo, profileRepo, &fakePublisher{}, BookingConfig{})

	result, err := svc.BookSlotForFriend(context.Background(), gatheringID, uuid.New(),
		&BookForFriendRequest{FriendName: "Андрій"})
	require.NoError(t, err)

	require.Len(t, profileRepo.created, 1)
	guest := profileRepo.created[0]
	assert.True(t, guest.Guest)
	assert.Equal(t, "Андрій", guest.DisplayName)
	assert.Equal(t, guest.ID, bookedUserID)
	assert.Equal(t, 2, result.SlotNumber)
}

func TestBookSlotForFriend_ReusesExistingProfileAndSlotNumber(t *testing.T) {
	gatheringID := uuid.New()
	existing := &entity.Profile{ID: uuid.New(), DisplayName: "Андрій", Guest: true}
	profileRepo := &fakeProfileRepo{profiles: map[string]*entity.Profile{"Андрій": existing}}

	var gotSlotNumber int
	var gotUserID uuid.UUID
	bookingRepo := &fakeBookingRepo{
		bookSlotNumberFn: func(ctx context.Context, gID, uID uuid.UUID, slotNumber int) error {
			gotUserID = uID
			gotSlotNumber = slotNumber
			return nil
		},
		countSlotsFn: func(ctx context.Context, gID uuid.UUID) (int, error) {
			return 3, nil
		},
	}
	gatheringRepo := &fakeGatheringRepoForBooking{
		gathering: &entity.Gathering{ID: gatheringID, MaxSlots: 10},
	}

	svc := NewBookingService(bookingRepo, gatheringRepo, profileRepo, &fakePublisher{}, BookingConfig{})

	result, err := svc.BookSlotForFriend(context.Background(), gatheringID, uuid.New(),
		&BookForFriendRequest{FriendName: "Андрій", SlotNumber: 7})
	require.NoError(t, err)

	assert.Empty(t, profileRepo.created)
	assert.Equal(t, existing.ID, gotUserID)
	assert.Equal(t, 7, gotSlotNumber)
	assert.Equal(t, 7, result.SlotNumber)
}
