package usecase

import (
	"context"
	"log"

	"party-service/internal/domain"
	"party-service/internal/events"
	"party-service/internal/repository"
	"party-service/pkg/id"
	"party-service/pkg/xerrors"
)

type ChatUsecase struct {
	chats   repository.ChatRepository
	parties repository.PartyRepository
	users   repository.UserRepository
	pub     events.Publisher
}

func NewChatUsecase(chats repository.ChatRepository, parties repository.PartyRepository, users repository.UserRepository, pub events.Publisher) *ChatUsecase {
	return &ChatUsecase{chats: chats, parties: parties, users: users, pub: pub}
}

func (uc *ChatUsecase) PostMessage(ctx context.Context, partyID, senderID, content string) (*domain.ChatMessage, error) {
	party, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !party.HasMember(senderID) {
		return nil, xerrors.ErrNotMember
	}

	senderName := senderID
	if u, err := uc.users.GetByID(ctx, senderID); err == nil && u.Nickname != "" {
		senderName = u.Nickname
	}

	msg := &domain.ChatMessage{
		ID:         id.New(),
		PartyID:    partyID,
		SenderID:   senderID,
		SenderName: senderName,
		Type:       domain.ChatText,
		Content:    content,
	}
	if err := uc.chats.Create(ctx, msg); err != nil {
		return nil, err
	}

	if err := uc.pub.Publish(ctx, &domain.ChangeEvent{Type: domain.EventChatMessage, Chat: msg}); err != nil {
		log.Printf("⚠️ [CHAT] failed to publish message event: %v", err)
	}
	return msg, nil
}

func (uc *ChatUsecase) ListMessages(ctx context.Context, partyID, userID string, limit, offset int) ([]*domain.ChatMessage, error) {
	party, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !party.HasMember(userID) {
		return nil, xerrors.ErrNotMember
	}
	if limit <= 0 {
		limit = 50
	}
	return uc.chats.ListByParty(ctx, partyID, limit, offset)
}
