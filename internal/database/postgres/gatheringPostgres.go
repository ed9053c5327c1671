package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gathering-app/internal/entity"
)

type gatheringRepository struct {
	db *sql.DB
}

func NewGatheringRepository(db *sql.DB) GatheringRepository {
	return &gatheringRepository{db: db}
}

func (r *gatheringRepository) Create(ctx context.Context, g *entity.Gathering) error {
	query := `
		INSERT INTO gatherings (id, title, description, creator_id, max_slots, gathering_date, booking_deadline, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Status == "" {
		g.Status = entity.GatheringStatusOpen
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.Title, nullString(g.Description), g.CreatorID, g.MaxSlots,
		g.GatheringDate, nullTime(g.BookingDeadline), g.Status, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create gathering: %w", err)
	}
	return nil
}

func (r *gatheringRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Gathering, error) {
	query := `
		SELECT id, title, description, creator_id, max_slots, gathering_date, booking_deadline, status, created_at
		FROM gatherings
		WHERE id = $1
	`

	g, err := scanGathering(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrGatheringNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gathering: %w", err)
	}
	return g, nil
}

// GetWithDetails returns the gathering together with its creator, the
// full slot roster ordered by number and the waitlist ordered by
// position.
func (r *gatheringRepository) GetWithDetails(ctx context.Context, id uuid.UUID) (*entity.GatheringWithDetails, error) {
	g, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &entity.GatheringWithDetails{Gathering: *g}

	creatorQuery := `
		SELECT id, telegram_id, telegram_username, display_name, guest, created_at
		FROM profiles
		WHERE id = $1
	`
	creator, err := scanProfile(r.db.QueryRowContext(ctx, creatorQuery, g.CreatorID))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	if err == nil {
		details.Creator = creator
	}

	slotsQuery := `
		SELECT s.id, s.gathering_id, s.user_id, s.slot_number, s.booked_at,
			p.display_name, p.telegram_username
		FROM slots s
		JOIN profiles p ON s.user_id = p.id
		WHERE s.gathering_id = $1
		ORDER BY s.slot_number
	`
	rows, err := r.db.QueryContext(ctx, slotsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s entity.Slot
		var user entity.Profile
		var username sql.NullString
		if err := rows.Scan(&s.ID, &s.GatheringID, &s.UserID, &s.SlotNumber, &s.BookedAt,
			&user.DisplayName, &username); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		user.ID = s.UserID
		user.TelegramUsername = username.String
		s.User = &user
		details.Slots = append(details.Slots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}

	waitlistQuery := `
		SELECT w.id, w.gathering_id, w.user_id, w.position, w.joined_at,
			p.display_name, p.telegram_username
		FROM waitlist w
		JOIN profiles p ON w.user_id = p.id
		WHERE w.gathering_id = $1
		ORDER BY w.position
	`
	wrows, err := r.db.QueryContext(ctx, waitlistQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist: %w", err)
	}
	defer wrows.Close()

	for wrows.Next() {
		var e entity.WaitlistEntry
		var user entity.Profile
		var username sql.NullString
		if err := wrows.Scan(&e.ID, &e.GatheringID, &e.UserID, &e.Position, &e.JoinedAt,
			&user.DisplayName, &username); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		user.ID = e.UserID
		user.TelegramUsername = username.String
		e.User = &user
		details.Waitlist = append(details.Waitlist, &e)
	}
	if err := wrows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waitlist: %w", err)
	}

	details.SlotsCount = len(details.Slots)
	details.WaitlistCount = len(details.Waitlist)
	details.IsFull = details.SlotsCount >= g.MaxSlots

	return details, nil
}

// GetUpcoming lists gatherings after the given moment with derived
// counters. Rosters are not loaded for list views.
func (r *gatheringRepository) GetUpcoming(ctx context.Context, after time.Time) ([]*entity.GatheringWithDetails, error) {
	query := `
		SELECT g.id, g.title, g.description, g.creator_id, g.max_slots, g.gathering_date, g.booking_deadline, g.status, g.created_at,
			(SELECT COUNT(*) FROM slots s WHERE s.gathering_id = g.id) AS slots_count,
			(SELECT COUNT(*) FROM waitlist w WHERE w.gathering_id = g.id) AS waitlist_count
		FROM gatherings g
		WHERE g.gathering_date > $1 AND g.status = $2
		ORDER BY g.gathering_date
	`
	return r.queryList(ctx, query, after, entity.GatheringStatusOpen)
}

func (r *gatheringRepository) GetByCreator(ctx context.Context, creatorID uuid.UUID) ([]*entity.GatheringWithDetails, error) {
	query := `
		SELECT g.id, g.title, g.description, g.creator_id, g.max_slots, g.gathering_date, g.booking_deadline, g.status, g.created_at,
			(SELECT COUNT(*) FROM slots s WHERE s.gathering_id = g.id) AS slots_count,
			(SELECT COUNT(*) FROM waitlist w WHERE w.gathering_id = g.id) AS waitlist_count
		FROM gatherings g
		WHERE g.creator_id = $1
		ORDER BY g.gathering_date DESC
	`
	return r.queryList(ctx, query, creatorID)
}

func (r *gatheringRepository) queryList(ctx context.Context, query string, args ...interface{}) ([]*entity.GatheringWithDetails, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gatherings: %w", err)
	}
	defer rows.Close()

	var gatherings []*entity.GatheringWithDetails
	for rows.Next() {
		var d entity.GatheringWithDetails
		var description sql.NullString
		var creatorID sql.NullString
		var deadline sql.NullTime
		err := rows.Scan(
			&d.ID, &d.Title, &description, &creatorID, &d.MaxSlots,
			&d.GatheringDate, &deadline, &d.Status, &d.CreatedAt,
			&d.SlotsCount, &d.WaitlistCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gathering: %w", err)
		}
		d.Description = description.String
		if creatorID.Valid {
			d.CreatorID, _ = uuid.Parse(creatorID.String)
		}
		if deadline.Valid {
			d.BookingDeadline = &deadline.Time
		}
		d.IsFull = d.SlotsCount >= d.MaxSlots
		gatherings = append(gatherings, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gatherings: %w", err)
	}

	return gatherings, nil
}

func (r *gatheringRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.GatheringStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE gatherings SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update gathering status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrGatheringNotFound
	}
	return nil
}

// Delete removes the gathering; slots and waitlist rows go with it via
// ON DELETE CASCADE.
func (r *gatheringRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gatherings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gathering: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrGatheringNotFound
	}
	return nil
}

// CloseFinished marks open gatherings whose date has passed as closed
// and returns how many rows changed.
func (r *gatheringRepository) CloseFinished(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE gatherings SET status = $1 WHERE status = $2 AND gathering_date < $3`,
		entity.GatheringStatusClosed, entity.GatheringStatusOpen, before)
	if err != nil {
		return 0, fmt.Errorf("failed to close finished gatherings: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGathering(row rowScanner) (*entity.Gathering, error) {
	var g entity.Gathering
	var description sql.NullString
	var creatorID sql.NullString
	var deadline sql.NullTime

	err := row.Scan(
		&g.ID, &g.Title, &description, &creatorID, &g.MaxSlots,
		&g.GatheringDate, &deadline, &g.Status, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Description = description.String
	if creatorID.Valid {
		g.CreatorID, _ = uuid.Parse(creatorID.String)
	}
	if deadline.Valid {
		g.BookingDeadline = &deadline.Time
	}
	return &g, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
