package usecase

import (
	"context"

	"party-service/internal/domain"
	"party-service/internal/repository"
	"party-service/pkg/xerrors"
)

type UserUsecase struct {
	users repository.UserRepository
}

func NewUserUsecase(users repository.UserRepository) *UserUsecase {
	return &UserUsecase{users: users}
}

// RegisterToken replaces the user's whole token array. Single active device:
// a fresh login supersedes whatever device held the account before.
func (uc *UserUsecase) RegisterToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return xerrors.ErrInvalidInput
	}
	return uc.users.ReplaceTokens(ctx, userID, []string{token})
}

func (uc *UserUsecase) UpdateSettings(ctx context.Context, userID string, s domain.NotificationSettings) error {
	return uc.users.UpdateSettings(ctx, userID, s)
}

func (uc *UserUsecase) GetSettings(ctx context.Context, userID string) (domain.NotificationSettings, error) {
	u, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	return u.Settings, nil
}
