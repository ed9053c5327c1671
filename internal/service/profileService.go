package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	repository "gathering-app/internal/database/postgres"
	"gathering-app/internal/entity"
)

type profileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

func (s *profileService) RegisterProfile(ctx context.Context, req *RegisterProfileRequest) (*entity.Profile, error) {
	if len(req.DisplayName) == 0 || len(req.DisplayName) > 50 {
		return nil, fmt.Errorf("%w: display name must be 1-50 characters", entity.ErrInvalidInput)
	}

	profile := &entity.Profile{
		TelegramID:       req.TelegramID,
		TelegramUsername: req.TelegramUsername,
		DisplayName:      req.DisplayName,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

func (s *profileService) GetProfileByTelegramID(ctx context.Context, telegramID int64) (*entity.Profile, error) {
	return s.profileRepo.GetByTelegramID(ctx, telegramID)
}

func (s *profileService) LinkTelegram(ctx context.Context, id uuid.UUID, telegramID int64, username string) error {
	if telegramID == 0 {
		return fmt.Errorf("%w: telegram id is required", entity.ErrInvalidInput)
	}
	return s.profileRepo.LinkTelegram(ctx, id, telegramID, username)
}
