package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gathering-app/internal/entity"
)

type fakeGatheringRepo struct {
	created      []*entity.Gathering
	byID         map[uuid.UUID]*entity.Gathering
	statusUpdate map[uuid.UUID]entity.GatheringStatus
	deleted      []uuid.UUID
	closedCount  int64
}

func (f *fakeGatheringRepo) Create(ctx context.Context, g *entity.Gathering) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	f.created = append(f.created, g)
	return nil
}

func (f *fakeGatheringRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Gathering, error) {
	if g, ok := f.byID[id]; ok {
		return g, nil
	}
	return nil, entity.ErrGatheringNotFound
}

func (f *fakeGatheringRepo) GetWithDetails(ctx context.Context, id uuid.UUID) (*entity.GatheringWithDetails, error) {
	g, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entity.GatheringWithDetails{Gathering: *g}, nil
}

func (f *fakeGatheringRepo) GetUpcoming(ctx context.Context, after time.Time) ([]*entity.GatheringWithDetails, error) {
	return nil, nil
}

func (f *fakeGatheringRepo) GetByCreator(ctx context.Context, creatorID uuid.UUID) ([]*entity.GatheringWithDetails, error) {
	return nil, nil
}

func (f *fakeGatheringRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.GatheringStatus) error {
	if f.statusUpdate == nil {
		f.statusUpdate = make(map[uuid.UUID]entity.GatheringStatus)
	}
	f.statusUpdate[id] = status
	return nil
}

func (f *fakeGatheringRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGatheringRepo) CloseFinished(ctx context.Context, before time.Time) (int64, error) {
	return f.closedCount, nil
}

func futureTime(d time.Duration) entity.CustomTime {
	return entity.CustomTime{Time: time.Now().Add(d)}
}

func TestCreateGathering_PublishesCreatedNotification(t *testing.T) {
	repo := &fakeGatheringRepo{}
	publisher := &fakePublisher{}
	svc := NewGatheringService(repo, publisher, 0)

	creatorID := uuid.New()
	g, err := svc.CreateGathering(context.Background(), creatorID, &CreateGatheringRequest{
		Title:         "Футбол у неділю",
		MaxSlots:      10,
		GatheringDate: futureTime(48 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, creatorID, g.CreatorID)
	assert.Equal(t, entity.GatheringStatusOpen, g.Status)
	require.Len(t, publisher.tasks, 1)
	assert.Equal(t, NotificationGatheringCreated, publisher.tasks[0].Data["notification_type"])
	assert.Equal(t, g.ID.String(), publisher.tasks[0].Data["gathering_id"])
}

func TestCreateGathering_SchedulesDelayedReminder(t *testing.T) {
	repo := &fakeGatheringRepo{}
	publisher := &fakePublisher{}
	svc := NewGatheringService(repo, publisher, 2*time.Hour)

	g, err := svc.CreateGathering(context.Background(), uuid.New(), &CreateGatheringRequest{
		Title:         "Настолки",
		MaxSlots:      6,
		GatheringDate: futureTime(48 * time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, publisher.tasks, 2)
	reminder := publisher.tasks[1]
	assert.Equal(t, TaskTypeGatheringReminder, reminder.Type)
	assert.Equal(t, g.ID.String(), reminder.Data["gathering_id"])
	assert.WithinDuration(t, g.GatheringDate.Add(-2*time.Hour), reminder.ExecuteAt, time.Second)
}

func TestCreateGathering_NoReminderForImminentGathering(t *testing.T) {
	publisher := &fakePublisher{}
	svc := NewGatheringService(&fakeGatheringRepo{}, publisher, 24*time.Hour)

	_, err := svc.CreateGathering(context.Background(), uuid.New(), &CreateGatheringRequest{
		Title:         "Настолки",
		MaxSlots:      6,
		GatheringDate: futureTime(time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, publisher.tasks, 1)
	assert.Equal(t, TaskTypeSendNotification, publisher.tasks[0].Type)
}

func TestCreateGathering_Validation(t *testing.T) {
	svc := NewGatheringService(&fakeGatheringRepo{}, &fakePublisher{}, 0)
	ctx := context.Background()
	creatorID := uuid.New()

	tests := []struct {
		name    string
		req     *CreateGatheringRequest
		wantErr error
	}{
		{
			name: "title too short",
			req: &CreateGatheringRequest{
				Title: "ab", MaxSlots: 5, GatheringDate: futureTime(time.Hour),
			},
			wantErr: entity.ErrInvalidInput,
		},
		{
			name: "too few slots",
			req: &CreateGatheringRequest{
				Title: "Шахи", MaxSlots: 1, GatheringDate: futureTime(time.Hour),
			},
			wantErr: entity.ErrInvalidInput,
		},
		{
			name: "date in the past",
			req: &CreateGatheringRequest{
				Title: "Шахи", MaxSlots: 4, GatheringDate: futureTime(-time.Hour),
			},
			wantErr: entity.ErrGatheringDatePast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGathering(ctx, creatorID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateGathering_DeadlineAfterDateRejected(t *testing.T) {
	svc := NewGatheringService(&fakeGatheringRepo{}, &fakePublisher{}, 0)

	deadline := futureTime(72 * time.Hour)
	_, err := svc.CreateGathering(context.Background(), uuid.New(), &CreateGatheringRequest{
		Title:           "Настолки",
		MaxSlots:        6,
		GatheringDate:   futureTime(48 * time.Hour),
		BookingDeadline: &deadline,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestCancelGathering_OnlyCreator(t *testing.T) {
	id := uuid.New()
	creatorID := uuid.New()
	repo := &fakeGatheringRepo{
		byID: map[uuid.UUID]*entity.Gathering{
			id: {ID: id, CreatorID: creatorID, Status: entity.GatheringStatusOpen},
		},
	}
	svc := NewGatheringService(repo, &fakePublisher{}, 0)

	err := svc.CancelGathering(context.Background(), id, uuid.New())
	assert.ErrorIs(t, err, entity.ErrNotCreator)

	require.NoError(t, svc.CancelGathering(context.Background(), id, creatorID))
	assert.Equal(t, entity.GatheringStatusCancelled, repo.statusUpdate[id])
}

func TestDeleteGathering_OnlyCreator(t *testing.T) {
	id := uuid.New()
	creatorID := uuid.New()
	repo := &fakeGatheringRepo{
		byID: map[uuid.UUID]*entity.Gathering{
			id: {ID: id, CreatorID: creatorID},
		},
	}
	svc := NewGatheringService(repo, &fakePublisher{}, 0)

	assert.ErrorIs(t, svc.DeleteGathering(context.Background(), id, uuid.New()), entity.ErrNotCreator)

	require.NoError(t, svc.DeleteGathering(context.Background(), id, creatorID))
	assert.Equal(t, []uuid.UUID{id}, repo.deleted)
}

func TestCloseFinishedGatherings(t *testing.T) {
	repo := &fakeGatheringRepo{closedCount: 3}
	svc := NewGatheringService(repo, &fakePublisher{}, 0)

	closed, err := svc.CloseFinishedGatherings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), closed)
}
