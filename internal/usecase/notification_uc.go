package usecase

import (
	"context"

	"party-service/internal/domain"
	"party-service/internal/repository"
	"party-service/pkg/xerrors"
)

// NotificationUsecase serves the in-app notification list the client renders.
type NotificationUsecase struct {
	repo repository.NotificationRepository
}

func NewNotificationUsecase(repo repository.NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{repo: repo}
}

func (uc *NotificationUsecase) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.UserNotification, error) {
	if limit <= 0 {
		limit = 20
	}
	return uc.repo.ListByUser(ctx, userID, limit, offset)
}

func (uc *NotificationUsecase) ListUnread(ctx context.Context, userID string, limit, offset int) ([]*domain.UserNotification, error) {
	if limit <= 0 {
		limit = 20
	}
	return uc.repo.ListUnread(ctx, userID, limit, offset)
}

func (uc *NotificationUsecase) CountUnread(ctx context.Context, userID string) (int, error) {
	return uc.repo.CountUnread(ctx, userID)
}

func (uc *NotificationUsecase) MarkAsRead(ctx context.Context, id int64, userID string) error {
	if id <= 0 {
		return xerrors.ErrInvalidInput
	}
	return uc.repo.MarkAsRead(ctx, id, userID)
}
