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
)

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, p *entity.Profile) error {
	query := `
		INSERT INTO profiles (id, telegram_id, telegram_username, display_name, guest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	var telegramID sql.NullInt64
	if p.TelegramID != 0 {
		telegramID = sql.NullInt64{Int64: p.TelegramID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		p.ID, telegramID, nullString(p.TelegramUsername), p.DisplayName, p.Guest, p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrTelegramIDExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	query := `
		SELECT id, telegram_id, telegram_username, display_name, guest, created_at
		FROM profiles
		WHERE id = $1
	`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *profileRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*entity.Profile, error) {
	query := `
		SELECT id, telegram_id, telegram_username, display_name, guest, created_at
		FROM profiles
		WHERE telegram_id = $1
	`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, telegramID))
	if err == sql.ErrNoRows {
		return nil, entity.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by telegram id: %w", err)
	}
	return p, nil
}

func (r *profileRepository) GetByDisplayName(ctx context.Context, displayName string) (*entity.Profile, error) {
	query := `
		SELECT id, telegram_id, telegram_username, display_name, guest, created_at
		FROM profiles
		WHERE display_name = $1
	`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, displayName))
	if err == sql.ErrNoRows {
		return nil, entity.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by display name: %w", err)
	}
	return p, nil
}

// LinkTelegram attaches a Telegram identity to an existing profile,
// typically a guest profile claimed by its real owner.
func (r *profileRepository) LinkTelegram(ctx context.Context, id uuid.UUID, telegramID int64, username string) error {
	query := `
		UPDATE profiles
		SET telegram_id = $1, telegram_username = $2, guest = false
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, telegramID, nullString(username), id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrTelegramIDExists
		}
		return fmt.Errorf("failed to link telegram: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrProfileNotFound
	}
	return nil
}

func scanProfile(row rowScanner) (*entity.Profile, error) {
	var p entity.Profile
	var telegramID sql.NullInt64
	var username sql.NullString

	err := row.Scan(&p.ID, &telegramID, &username, &p.DisplayName, &p.Guest, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.TelegramID = telegramID.Int64
	p.TelegramUsername = username.String
	return &p, nil
}
