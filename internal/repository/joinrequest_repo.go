package repository

import (
	"context"

	"party-service/internal/domain"
	"party-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JoinRequestRepository interface {
	Create(ctx context.Context, req *domain.JoinRequest) error
	GetByID(ctx context.Context, id string) (*domain.JoinRequest, error)
	HasPending(ctx context.Context, partyID, requesterID string) (bool, error)
	// ResolveIfPending flips a pending request to a terminal status. The WHERE
	// guard makes concurrent double-accept/double-decline lose cleanly instead
	// of overwriting a terminal state.
	ResolveIfPending(ctx context.Context, id string, status domain.RequestStatus) error
	ListPendingByParty(ctx context.Context, partyID string) ([]*domain.JoinRequest, error)
}

type pgJoinRequestRepo struct {
	db *pgxpool.Pool
}

func NewJoinRequestRepository(db *pgxpool.Pool) JoinRequestRepository {
	return &pgJoinRequestRepo{db: db}
}

const requestColumns = `id, party_id, leader_id, requester_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.JoinRequest, error) {
	var req domain.JoinRequest
	err := row.Scan(
		&req.ID,
		&req.PartyID,
		&req.LeaderID,
		&req.RequesterID,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, xerrors.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *pgJoinRequestRepo) Create(ctx context.Context, req *domain.JoinRequest) error {
	query := `
		INSERT INTO join_requests (id, party_id, leader_id, requester_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.PartyID, req.LeaderID, req.RequesterID, req.Status)
	return err
}

func (r *pgJoinRequestRepo) GetByID(ctx context.Context, id string) (*domain.JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE id = $1`
	return scanRequest(r.db.QueryRow(ctx, query, id))
}

func (r *pgJoinRequestRepo) HasPending(ctx context.Context, partyID, requesterID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM join_requests
			WHERE party_id = $1 AND requester_id = $2 AND status = 'pending'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, partyID, requesterID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *pgJoinRequestRepo) ResolveIfPending(ctx context.Context, id string, status domain.RequestStatus) error {
	query := `
		UPDATE join_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`
	ct, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrRequestResolved
	}
	return nil
}

func (r *pgJoinRequestRepo) ListPendingByParty(ctx context.Context, partyID string) ([]*domain.JoinRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM join_requests
		WHERE party_id = $1 AND status = 'pending'
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.JoinRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
