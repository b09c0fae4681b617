package repository

import (
	"context"
	"encoding/json"

	"party-service/internal/domain"
	"party-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetMany resolves tokens and preferences for a whole audience in one
	// round trip. Missing ids are silently absent from the result.
	GetMany(ctx context.Context, ids []string) ([]*domain.User, error)
	ListAllWithPartyPushEnabled(ctx context.Context) ([]*domain.User, error)
	// ReplaceTokens overwrites the whole token array: one active device per
	// user, a fresh login replaces rather than appends.
	ReplaceTokens(ctx context.Context, userID string, tokens []string) error
	// RemoveTokens prunes dead tokens with a native atomic array update. The
	// WHERE overlap guard skips the write entirely when nothing would change.
	RemoveTokens(ctx context.Context, userID string, dead []string) error
	UpdateSettings(ctx context.Context, userID string, s domain.NotificationSettings) error
}

type pgUserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &pgUserRepo{db: db}
}

const userColumns = `id, nickname, fcm_tokens, notification_settings, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u        domain.User
		settings []byte
	)
	err := row.Scan(&u.ID, &u.Nickname, &u.FCMTokens, &settings, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	u.Settings = domain.DefaultSettings()
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &u.Settings); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *pgUserRepo) GetMany(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *pgUserRepo) ListAllWithPartyPushEnabled(ctx context.Context) ([]*domain.User, error) {
	// Settings default to enabled when the user never saved preferences.
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE notification_settings IS NULL
		   OR (
			COALESCE((notification_settings->>'enabled')::bool, true)
			AND COALESCE((notification_settings->>'party')::bool, true)
		   )
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *pgUserRepo) ReplaceTokens(ctx context.Context, userID string, tokens []string) error {
	query := `UPDATE users SET fcm_tokens = $1 WHERE id = $2`
	ct, err := r.db.Exec(ctx, query, tokens, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *pgUserRepo) RemoveTokens(ctx context.Context, userID string, dead []string) error {
	if len(dead) == 0 {
		return nil
	}
	query := `
		UPDATE users
		SET fcm_tokens = (
			SELECT COALESCE(array_agg(t), '{}')
			FROM unnest(fcm_tokens) AS t
			WHERE NOT (t = ANY($1))
		)
		WHERE id = $2 AND fcm_tokens && $1
	`
	_, err := r.db.Exec(ctx, query, dead, userID)
	return err
}

func (r *pgUserRepo) UpdateSettings(ctx context.Context, userID string, s domain.NotificationSettings) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	query := `UPDATE users SET notification_settings = $1 WHERE id = $2`
	ct, err := r.db.Exec(ctx, query, payload, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
