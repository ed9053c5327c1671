package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gathering-app/internal/entity"
	"gathering-app/internal/waitlist"
)

const (
	bookingMaxAttempts = 3
	bookingRetryDelay  = 50 * time.Millisecond
)

type bookingRepository struct {
	db          *sql.DB
	maxAttempts int
	retryDelay  time.Duration
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{
		db:          db,
		maxAttempts: bookingMaxAttempts,
		retryDelay:  bookingRetryDelay,
	}
}

// withGatheringTx runs fn inside a transaction after taking the
// gathering row lock, so every engine operation on the same gathering
// is serialized at row granularity. Serialization conflicts and
// deadlocks are retried with backoff; domain outcomes are returned to
// the caller unchanged.
func (r *bookingRepository) withGatheringTx(ctx context.Context, gatheringID uuid.UUID, fn func(tx *sql.Tx, g *entity.Gathering) error) error {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.retryDelay * time.Duration(1<<(attempt-1))):
			}
		}

		err := r.runOnce(ctx, gatheringID, fn)
		if err == nil || !isRetryableConflict(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %v", entity.ErrConcurrentUpdate, r.maxAttempts, lastErr)
}

func (r *bookingRepository) runOnce(ctx context.Context, gatheringID uuid.UUID, fn func(tx *sql.Tx, g *entity.Gathering) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := lockGathering(ctx, tx, gatheringID)
	if err != nil {
		return err
	}

	if err := fn(tx, g); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockGathering takes the per-gathering write lock for the duration of
// the transaction. Returns entity.ErrGatheringNotFound when no row
// exists.
func lockGathering(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*entity.Gathering, error) {
	query := `
		SELECT id, title, description, creator_id, max_slots, gathering_date, booking_deadline, status, created_at
		FROM gatherings
		WHERE id = $1
		FOR UPDATE
	`

	var g entity.Gathering
	var description sql.NullString
	var creatorID sql.NullString
	var deadline sql.NullTime

	err := tx.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.Title,
		&description,
		&creatorID,
		&g.MaxSlots,
		&g.GatheringDate,
		&deadline,
		&g.Status,
		&g.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrGatheringNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock gathering: %w", err)
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

// BookSlot assigns the lowest unused slot number to the user, checking
// availability, deadline, capacity and duplicate booking inside the
// same transaction.
func (r *bookingRepository) BookSlot(ctx context.Context, gatheringID, userID uuid.UUID) (int, error) {
	var slotNumber int

	err := r.withGatheringTx(ctx, gatheringID, func(tx *sql.Tx, g *entity.Gathering) error {
		if !g.BookingOpen(time.Now()) {
			return entity.ErrGatheringNotAvailable
		}

		hasSlot, err := userHasSlot(ctx, tx, gatheringID, userID)
		if err != nil {
			return err
		}
		if hasSlot {
			return entity.ErrAlreadyBooked
		}

		occupied, err := occupiedSlotNumbers(ctx, tx, gatheringID)
		if err != nil {
			return err
		}

		number, ok := waitlist.LowestFreeSlot(occupied, g.MaxSlots)
		if !ok {
			return entity.ErrNoSlotsAvailable
		}

		if err := insertSlot(ctx, tx, gatheringID, userID, number); err != nil {
			return err
		}
		slotNumber = number
		return nil
	})
	if errors.Is(err, entity.ErrGatheringNotFound) {
		return 0, entity.ErrGatheringNotAvailable
	}
	if err != nil {
		return 0, err
	}

	return slotNumber, nil
}

// BookSlotNumber books a specific slot number for the user (direct
// assignment, used by guest booking).
func (r *bookingRepository) BookSlotNumber(ctx context.Context, gatheringID, userID uuid.UUID, slotNumber int) error {
	err := r.withGatheringTx(ctx, gatheringID, func(tx *sql.Tx, g *entity.Gathering) error {
		if !g.BookingOpen(time.Now()) {
			return entity.ErrGatheringNotAvailable
		}
		if slotNumber < 1 || slotNumber > g.MaxSlots {
			return entity.ErrInvalidSlotNumber
		}

		hasSlot, err := userHasSlot(ctx, tx, gatheringID, userID)
		if err != nil {
			return err
		}
		if hasSlot {
			return entity.ErrAlreadyBooked
		}

		occupied, err := occupiedSlotNumbers(ctx, tx, gatheringID)
		if err != nil {
			return err
		}
		for _, n := range occupied {
			if n == slotNumber {
				return entity.ErrSlotTaken
			}
		}

		return insertSlot(ctx, tx, gatheringID, userID, slotNumber)
	})
	if errors.Is(err, entity.ErrGatheringNotFound) {
		return entity.ErrGatheringNotAvailable
	}
	return err
}

// CancelSlot deletes the caller's slot. Cancelling a slot that does
// not exist is a successful no-op, so cancelling twice is not
// observably different from cancelling once. When a slot is actually
// freed the promotion policy runs in the same transaction: the
// earliest waitlist entry takes the freed slot number and the rest of
// the queue shifts down.
func (r *bookingRepository) CancelSlot(ctx context.Context, gatheringID, userID uuid.UUID) (*entity.Promotion, error) {
	var promotion *entity.Promotion

	err := r.withGatheringTx(ctx, gatheringID, func(tx *sql.Tx, g *entity.Gathering) error {
		var freedNumber int
		query := `DELETE FROM slots WHERE gathering_id = $1 AND user_id = $2 RETURNING slot_number`
		err := tx.QueryRowContext(ctx, query, gatheringID, userID).Scan(&freedNumber)
		if err == sql.ErrNoRows {
			return nil // nothing to cancel
		}
		if err != nil {
			return fmt.Errorf("failed to delete slot: %w", err)
		}

		entries, err := lockedWaitlist(ctx, tx, gatheringID)
		if err != nil {
			return err
		}

		candidate, ok := waitlist.PromoteCandidate(entries)
		if !ok {
			return nil // freed number stays available for the next booking
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM waitlist WHERE id = $1`, candidate.ID); err != nil {
			return fmt.Errorf("failed to remove promoted entry: %w", err)
		}

		if err := insertSlot(ctx, tx, gatheringID, candidate.UserID, freedNumber); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE waitlist SET position = position - 1 WHERE gathering_id = $1 AND position > $2`,
			gatheringID, candidate.Position); err != nil {
			return fmt.Errorf("failed to renumber waitlist: %w", err)
		}

		promotion = &entity.Promotion{
			GatheringID: gatheringID,
			UserID:      candidate.UserID,
			SlotNumber:  freedNumber,
		}
		return nil
	})
	if errors.Is(err, entity.ErrGatheringNotFound) {
		return nil, nil // gathering gone, cancellation is a no-op
	}
	if err != nil {
		return nil, err
	}

	return promotion, nil
}

// JoinWaitlist appends the user at the tail of the queue. When
// requireFull is set, joining is refused while the gathering still has
// open slots.
func (r *bookingRepository) JoinWaitlist(ctx context.Context, gatheringID, userID uuid.UUID, requireFull bool) (int, error) {
	var position int

	err := r.withGatheringTx(ctx, gatheringID, func(tx *sql.Tx, g *entity.Gathering) error {
		hasSlot, err := userHasSlot(ctx, tx, gatheringID, userID)
		if err != nil {
			return err
		}
		if hasSlot {
			return entity.ErrAlreadyHasSlot
		}

		var inWaitlist bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM waitlist WHERE gathering_id = $1 AND user_id = $2)`,
			gatheringID, userID).Scan(&inWaitlist)
		if err != nil {
			return fmt.Errorf("failed to check waitlist membership: %w", err)
		}
		if inWaitlist {
			return entity.ErrAlreadyInWaitlist
		}

		if requireFull {
			var slotCount int
			err = tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM slots WHERE gathering_id = $1`, gatheringID).Scan(&slotCount)
			if err != nil {
				return fmt.Errorf("failed to count slots: %w", err)
			}
			if slotCount < g.MaxSlots {
				return entity.ErrGatheringNotFull
			}
		}

		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM waitlist WHERE gathering_id = $1`, gatheringID).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count waitlist: %w", err)
		}

		position = count + 1
		_, err = tx.ExecContext(ctx,
			`INSERT INTO waitlist (id, gathering_id, user_id, position, joined_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), gatheringID, userID, position, time.Now())
		if err != nil {
			return translateConstraint(err)
		}
		return nil
	})
	if errors.Is(err, entity.ErrGatheringNotFound) {
		return 0, entity.ErrGatheringNotAvailable
	}
	if err != nil {
		return 0, err
	}

	return position, nil
}

// LeaveWaitlist removes the caller's entry and closes the position
// gap. Unlike CancelSlot this is strict: leaving a queue you are not
// in is an error.
func (r *bookingRepository) LeaveWaitlist(ctx context.Context, gatheringID, userID uuid.UUID) error {
	err := r.withGatheringTx(ctx, gatheringID, func(tx *sql.Tx, g *entity.Gathering) error {
		var removedPos int
		query := `DELETE FROM waitlist WHERE gathering_id = $1 AND user_id = $2 RETURNING position`
		err := tx.QueryRowContext(ctx, query, gatheringID, userID).Scan(&removedPos)
		if err == sql.ErrNoRows {
			return entity.ErrNotInWaitlist
		}
		if err != nil {
			return fmt.Errorf("failed to delete waitlist entry: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE waitlist SET position = position - 1 WHERE gathering_id = $1 AND position > $2`,
			gatheringID, removedPos)
		if err != nil {
			return fmt.Errorf("failed to renumber waitlist: %w", err)
		}
		return nil
	})
	if errors.Is(err, entity.ErrGatheringNotFound) {
		return entity.ErrNotInWaitlist
	}
	return err
}

func (r *bookingRepository) GetSlots(ctx context.Context, gatheringID uuid.UUID) ([]*entity.Slot, error) {
	query := `
		SELECT s.id, s.gathering_id, s.user_id, s.slot_number, s.booked_at,
			p.display_name, p.telegram_username
		FROM slots s
		JOIN profiles p ON s.user_id = p.id
		WHERE s.gathering_id = $1
		ORDER BY s.slot_number
	`

	rows, err := r.db.QueryContext(ctx, query, gatheringID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var slots []*entity.Slot
	for rows.Next() {
		var s entity.Slot
		var user entity.Profile
		var username sql.NullString
		err := rows.Scan(
			&s.ID,
			&s.GatheringID,
			&s.UserID,
			&s.SlotNumber,
			&s.BookedAt,
			&user.DisplayName,
			&username,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		user.ID = s.UserID
		user.TelegramUsername = username.String
		s.User = &user
		slots = append(slots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}

	return slots, nil
}

func (r *bookingRepository) GetWaitlist(ctx context.Context, gatheringID uuid.UUID) ([]*entity.WaitlistEntry, error) {
	query := `
		SELECT w.id, w.gathering_id, w.user_id, w.position, w.joined_at,
			p.display_name, p.telegram_username
		FROM waitlist w
		JOIN profiles p ON w.user_id = p.id
		WHERE w.gathering_id = $1
		ORDER BY w.position
	`

	rows, err := r.db.QueryContext(ctx, query, gatheringID)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist: %w", err)
	}
	defer rows.Close()

	var entries []*entity.WaitlistEntry
	for rows.Next() {
		var e entity.WaitlistEntry
		var user entity.Profile
		var username sql.NullString
		err := rows.Scan(
			&e.ID,
			&e.GatheringID,
			&e.UserID,
			&e.Position,
			&e.JoinedAt,
			&user.DisplayName,
			&username,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		user.ID = e.UserID
		user.TelegramUsername = username.String
		e.User = &user
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waitlist: %w", err)
	}

	return entries, nil
}

func (r *bookingRepository) CountSlots(ctx context.Context, gatheringID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE gathering_id = $1`, gatheringID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

func userHasSlot(ctx context.Context, tx *sql.Tx, gatheringID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM slots WHERE gathering_id = $1 AND user_id = $2)`,
		gatheringID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing slot: %w", err)
	}
	return exists, nil
}

func occupiedSlotNumbers(ctx context.Context, tx *sql.Tx, gatheringID uuid.UUID) ([]int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT slot_number FROM slots WHERE gathering_id = $1 ORDER BY slot_number`, gatheringID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot numbers: %w", err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan slot number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func insertSlot(ctx context.Context, tx *sql.Tx, gatheringID, userID uuid.UUID, number int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO slots (id, gathering_id, user_id, slot_number, booked_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), gatheringID, userID, number, time.Now())
	if err != nil {
		return translateConstraint(err)
	}
	return nil
}

// lockedWaitlist reads the gathering's queue under FOR UPDATE so a
// promotion cannot interleave with a concurrent join/leave.
func lockedWaitlist(ctx context.Context, tx *sql.Tx, gatheringID uuid.UUID) ([]*entity.WaitlistEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, gathering_id, user_id, position, joined_at FROM waitlist WHERE gathering_id = $1 ORDER BY position FOR UPDATE`,
		gatheringID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock waitlist: %w", err)
	}
	defer rows.Close()

	var entries []*entity.WaitlistEntry
	for rows.Next() {
		var e entity.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.GatheringID, &e.UserID, &e.Position, &e.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// translateConstraint maps low-level unique-constraint violations onto
// domain outcomes so they never leak to callers as raw storage errors.
func translateConstraint(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return fmt.Errorf("storage error: %w", err)
	}

	switch pqErr.Constraint {
	case "slots_gathering_user_key":
		return entity.ErrAlreadyBooked
	case "slots_gathering_number_key":
		return entity.ErrSlotTaken
	case "waitlist_gathering_user_key":
		return entity.ErrAlreadyInWaitlist
	case "waitlist_gathering_position_key":
		// Duplicate positions can only mean two writers slipped past
		// the gathering lock.
		return entity.ErrConcurrentUpdate
	default:
		return fmt.Errorf("constraint violation: %w", err)
	}
}

// isRetryableConflict reports whether the transaction hit a transient
// serialization failure or deadlock and should be retried. Domain
// outcomes and validation failures are never retried.
func isRetryableConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}
