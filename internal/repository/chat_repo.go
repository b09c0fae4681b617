package repository

import (
	"context"

	"party-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository interface {
	Create(ctx context.Context, m *domain.ChatMessage) error
	ListByParty(ctx context.Context, partyID string, limit, offset int) ([]*domain.ChatMessage, error)
	// DeleteByParty removes a party's whole message history in bounded chunks.
	DeleteByParty(ctx context.Context, partyID string) (int, error)
}

type pgChatRepo struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) ChatRepository {
	return &pgChatRepo{db: db}
}

func (r *pgChatRepo) Create(ctx context.Context, m *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, party_id, sender_id, sender_name, type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, m.ID, m.PartyID, m.SenderID, m.SenderName, m.Type, m.Content)
	return err
}

func (r *pgChatRepo) ListByParty(ctx context.Context, partyID string, limit, offset int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, party_id, sender_id, sender_name, type, content, created_at
		FROM chat_messages
		WHERE party_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, partyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.PartyID, &m.SenderID, &m.SenderName, &m.Type, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (r *pgChatRepo) DeleteByParty(ctx context.Context, partyID string) (int, error) {
	query := `
		DELETE FROM chat_messages
		WHERE id IN (
			SELECT id FROM chat_messages
			WHERE party_id = $1
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
