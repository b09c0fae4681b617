package repository

import (
	"context"
	"encoding/json"
	"time"

	"party-service/internal/domain"
	"party-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WriteBatchLimit caps every bulk delete chunk and mirrors the push batch size.
const WriteBatchLimit = 500

// PartyRepository aggregates all party document operations.
type PartyRepository interface {
	Create(ctx context.Context, p *domain.Party) error
	GetByID(ctx context.Context, id string) (*domain.Party, error)
	UpdateStatus(ctx context.Context, id string, status domain.PartyStatus, reason domain.EndReason) error
	// AddMember and RemoveMember are native atomic set updates, not
	// read-modify-write, so concurrent joins/leaves never lose each other.
	AddMember(ctx context.Context, partyID, userID string) error
	RemoveMember(ctx context.Context, partyID, userID string) error
	// SetArrived flips the status and writes the ledger in one statement.
	SetArrived(ctx context.Context, id string, s *domain.Settlement) error
	UpdateSettlement(ctx context.Context, id string, s *domain.Settlement) error
	ListCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Party, error)
	Delete(ctx context.Context, id string) error
}

type pgPartyRepo struct {
	db *pgxpool.Pool
}

func NewPartyRepository(db *pgxpool.Pool) PartyRepository {
	return &pgPartyRepo{db: db}
}

const partyColumns = `
	id, leader_id, members, status, departure, destination,
	departure_time, end_reason, settlement, created_at, updated_at
`

func scanParty(row pgx.Row) (*domain.Party, error) {
	var (
		p          domain.Party
		endReason  *string
		settlement []byte
	)
	err := row.Scan(
		&p.ID,
		&p.LeaderID,
		&p.Members,
		&p.Status,
		&p.Departure,
		&p.Destination,
		&p.DepartureTime,
		&endReason,
		&settlement,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, xerrors.ErrPartyNotFound
		}
		return nil, err
	}
	if endReason != nil {
		p.EndReason = domain.EndReason(*endReason)
	}
	if len(settlement) > 0 {
		var s domain.Settlement
		if err := json.Unmarshal(settlement, &s); err != nil {
			return nil, err
		}
		p.Settlement = &s
	}
	return &p, nil
}

func (r *pgPartyRepo) Create(ctx context.Context, p *domain.Party) error {
	query := `
		INSERT INTO parties (
			id, leader_id, members, status, departure, destination,
			departure_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.LeaderID,
		p.Members,
		p.Status,
		p.Departure,
		p.Destination,
		p.DepartureTime,
	)
	return err
}

func (r *pgPartyRepo) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE id = $1`
	return scanParty(r.db.QueryRow(ctx, query, id))
}

func (r *pgPartyRepo) UpdateStatus(ctx context.Context, id string, status domain.PartyStatus, reason domain.EndReason) error {
	query := `
		UPDATE parties
		SET status = $1,
		    end_reason = COALESCE(NULLIF($2, ''), end_reason),
		    updated_at = NOW()
		WHERE id = $3 AND status <> 'ended'
	`
	ct, err := r.db.Exec(ctx, query, status, string(reason), id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrPartyNotFound
	}
	return nil
}

func (r *pgPartyRepo) AddMember(ctx context.Context, partyID, userID string) error {
	query := `
		UPDATE parties
		SET members = array_append(members, $1), updated_at = NOW()
		WHERE id = $2
		  AND status <> 'ended'
		  AND NOT ($1 = ANY(members))
	`
	ct, err := r.db.Exec(ctx, query, userID, partyID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrAlreadyMember
	}
	return nil
}

func (r *pgPartyRepo) RemoveMember(ctx context.Context, partyID, userID string) error {
	query := `
		UPDATE parties
		SET members = array_remove(members, $1), updated_at = NOW()
		WHERE id = $2
		  AND status <> 'ended'
		  AND $1 = ANY(members)
	`
	ct, err := r.db.Exec(ctx, query, userID, partyID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrNotMember
	}
	return nil
}

func (r *pgPartyRepo) SetArrived(ctx context.Context, id string, s *domain.Settlement) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	query := `
		UPDATE parties
		SET status = 'arrived', settlement = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('open', 'closed')
	`
	ct, err := r.db.Exec(ctx, query, payload, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrInvalidTransition
	}
	return nil
}

func (r *pgPartyRepo) UpdateSettlement(ctx context.Context, id string, s *domain.Settlement) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	query := `
		UPDATE parties
		SET settlement = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'arrived'
	`
	ct, err := r.db.Exec(ctx, query, payload, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrSettlementFrozen
	}
	return nil
}

func (r *pgPartyRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Party, error) {
	query := `
		SELECT ` + partyColumns + `
		FROM parties
		WHERE created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parties []*domain.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

func (r *pgPartyRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM parties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrPartyNotFound
	}
	return nil
}
