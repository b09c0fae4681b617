package repository

import (
	"context"
	"encoding/json"

	"party-service/internal/domain"
	"party-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository aggregates all in-app notification record operations.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.UserNotification) (*domain.UserNotification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.UserNotification, error)
	ListUnread(ctx context.Context, userID string, limit, offset int) ([]*domain.UserNotification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, id int64, userID string) error

	// Bulk cleanup. All three delete in WriteBatchLimit-sized chunks, looping
	// until nothing matches, so no single statement exceeds the store's write
	// batch limit.
	DeletePartyScopedForUser(ctx context.Context, userID, partyID string) (int, error)
	DeletePartyScoped(ctx context.Context, partyID string) (int, error)
	DeleteRequestScopedForUser(ctx context.Context, userID, requestID string) (int, error)
}

type pgNotificationRepo struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepo{db: db}
}

const notificationColumns = `id, user_id, type, title, message, data, is_read, created_at`

func scanNotification(row pgx.Row) (*domain.UserNotification, error) {
	var (
		n    domain.UserNotification
		data []byte
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&data,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

func (r *pgNotificationRepo) Create(ctx context.Context, n *domain.UserNotification) (*domain.UserNotification, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO notifications (user_id, type, title, message, data, is_read)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING ` + notificationColumns + `
	`
	return scanNotification(r.db.QueryRow(ctx, query, n.UserID, n.Type, n.Title, n.Message, data))
}

func (r *pgNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.UserNotification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *pgNotificationRepo) ListUnread(ctx context.Context, userID string, limit, offset int) ([]*domain.UserNotification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND is_read = false
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *pgNotificationRepo) list(ctx context.Context, query string, args ...any) ([]*domain.UserNotification, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.UserNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *pgNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *pgNotificationRepo) MarkAsRead(ctx context.Context, id int64, userID string) error {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE id = $1 AND user_id = $2 AND is_read = false
	`
	ct, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *pgNotificationRepo) DeletePartyScopedForUser(ctx context.Context, userID, partyID string) (int, error) {
	query := `
		DELETE FROM notifications
		WHERE id IN (
			SELECT id FROM notifications
			WHERE user_id = $1 AND data->>'party_id' = $2
			LIMIT $3
		)
	`
	return r.deleteChunked(ctx, query, userID, partyID)
}

func (r *pgNotificationRepo) DeletePartyScoped(ctx context.Context, partyID string) (int, error) {
	query := `
		DELETE FROM notifications
		WHERE id IN (
			SELECT id FROM notifications
			WHERE data->>'party_id' = $1
			LIMIT $2
		)
	`
	total := 0
	for {
		ct, err := r.db.Exec(ctx, query, partyID, WriteBatchLimit)
		if err != nil {
			return total, err
		}
		total += int(ct.RowsAffected())
		if ct.RowsAffected() < WriteBatchLimit {
			return total, nil
		}
	}
}

func (r *pgNotificationRepo) DeleteRequestScopedForUser(ctx context.Context, userID, requestID string) (int, error) {
	query := `
		DELETE FROM notifications
		WHERE id IN (
			SELECT id FROM notifications
			WHERE user_id = $1 AND data->>'request_id' = $2
			LIMIT $3
		)
	`
	return r.deleteChunked(ctx, query, userID, requestID)
}

func (r *pgNotificationRepo) deleteChunked(ctx context.Context, query, userID, scopeID string) (int, error) {
	total := 0
	for {
		ct, err := r.db.Exec(ctx, query, userID, scopeID, WriteBatchLimit)
		if err != nil {
			return total, err
		}
		total += int(ct.RowsAffected())
		if ct.RowsAffected() < WriteBatchLimit {
			return total, nil
		}
	}
}
