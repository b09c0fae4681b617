package usecase

import (
	"context"
	"fmt"
	"log"

	"party-service/internal/domain"
	"party-service/internal/events"
	"party-service/internal/repository"
	"party-service/pkg/id"
	"party-service/pkg/xerrors"
)

// JoinRequestUsecase manages the one-way lifecycle of a join request:
// pending -> accepted | declined | canceled, terminal once set.
type JoinRequestUsecase struct {
	requests repository.JoinRequestRepository
	parties  repository.PartyRepository
	chats    repository.ChatRepository
	users    repository.UserRepository
	pub      events.Publisher
}

func NewJoinRequestUsecase(
	requests repository.JoinRequestRepository,
	parties repository.PartyRepository,
	chats repository.ChatRepository,
	users repository.UserRepository,
	pub events.Publisher,
) *JoinRequestUsecase {
	return &JoinRequestUsecase{
		requests: requests,
		parties:  parties,
		chats:    chats,
		users:    users,
		pub:      pub,
	}
}

func (uc *JoinRequestUsecase) Create(ctx context.Context, partyID, requesterID string) (*domain.JoinRequest, error) {
	party, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.Status != domain.PartyOpen {
		return nil, xerrors.ErrInvalidRequest
	}
	if party.HasMember(requesterID) {
		return nil, xerrors.ErrAlreadyMember
	}
	pending, err := uc.requests.HasPending(ctx, partyID, requesterID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, xerrors.ErrDuplicateRequest
	}

	req := &domain.JoinRequest{
		ID:          id.New(),
		PartyID:     partyID,
		LeaderID:    party.LeaderID,
		RequesterID: requesterID,
		Status:      domain.RequestPending,
	}
	if err := uc.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	created, err := uc.requests.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	uc.publishRequestWritten(ctx, nil, created)
	return created, nil
}

// Accept flips the request and then adds the requester to the party. The two
// writes are not atomic; the accepted-but-not-yet-member window is a known,
// short-lived inconsistency.
func (uc *JoinRequestUsecase) Accept(ctx context.Context, requestID, actorID string) error {
	before, err := uc.resolve(ctx, requestID, actorID, domain.RequestAccepted)
	if err != nil {
		return err
	}

	if err := uc.parties.AddMember(ctx, before.PartyID, before.RequesterID); err != nil {
		// Request is already terminal at this point; log loudly, the member
		// add can be retried by the leader re-inviting.
		log.Printf("⚠️ [REQUEST] accepted %s but member add failed: %v", requestID, err)
		return err
	}

	uc.postJoinSystemMessage(ctx, before.PartyID, before.RequesterID)

	after, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	uc.publishRequestWritten(ctx, before, after)
	return nil
}

func (uc *JoinRequestUsecase) Decline(ctx context.Context, requestID, actorID string) error {
	before, err := uc.resolve(ctx, requestID, actorID, domain.RequestDeclined)
	if err != nil {
		return err
	}
	after, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	uc.publishRequestWritten(ctx, before, after)
	return nil
}

// Cancel is the requester withdrawing. The leader's live view of the request
// closes on its own; the dispatch side sends no push for this transition.
func (uc *JoinRequestUsecase) Cancel(ctx context.Context, requestID, requesterID string) error {
	before, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if before.RequesterID != requesterID {
		return xerrors.ErrForbidden
	}
	if before.Resolved() {
		return xerrors.ErrRequestResolved
	}
	if err := uc.requests.ResolveIfPending(ctx, requestID, domain.RequestCanceled); err != nil {
		return err
	}
	after, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	uc.publishRequestWritten(ctx, before, after)
	return nil
}

// ListPendingByParty is leader-only; requesters track their own request by id.
func (uc *JoinRequestUsecase) ListPendingByParty(ctx context.Context, partyID, actorID string) ([]*domain.JoinRequest, error) {
	party, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.LeaderID != actorID {
		return nil, xerrors.ErrNotLeader
	}
	return uc.requests.ListPendingByParty(ctx, partyID)
}

// resolve re-reads the request and aborts unless it is still pending, then
// flips it with a second conditional guard in SQL. Double-accepts under
// concurrent submission short-circuit silently at the caller with
// ErrRequestResolved; expected under concurrent submission, not an error to
// surface.
func (uc *JoinRequestUsecase) resolve(ctx context.Context, requestID, actorID string, status domain.RequestStatus) (*domain.JoinRequest, error) {
	before, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if before.LeaderID != actorID {
		return nil, xerrors.ErrForbidden
	}
	if before.Resolved() {
		return nil, xerrors.ErrRequestResolved
	}
	if err := uc.requests.ResolveIfPending(ctx, requestID, status); err != nil {
		return nil, err
	}
	return before, nil
}

func (uc *JoinRequestUsecase) postJoinSystemMessage(ctx context.Context, partyID, userID string) {
	name := userID
	if u, err := uc.users.GetByID(ctx, userID); err == nil && u.Nickname != "" {
		name = u.Nickname
	}
	msg := &domain.ChatMessage{
		ID:       id.New(),
		PartyID:  partyID,
		SenderID: userID,
		Type:     domain.ChatSystem,
		Content:  fmt.Sprintf("%s joined the party", name),
	}
	if err := uc.chats.Create(ctx, msg); err != nil {
		log.Printf("[REQUEST] join system message failed for party %s: %v", partyID, err)
		return
	}
	uc.publish(ctx, &domain.ChangeEvent{Type: domain.EventChatMessage, Chat: msg})
}

func (uc *JoinRequestUsecase) publishRequestWritten(ctx context.Context, before, after *domain.JoinRequest) {
	uc.publish(ctx, &domain.ChangeEvent{
		Type:          domain.EventRequestWritten,
		RequestBefore: before,
		RequestAfter:  after,
	})
}

func (uc *JoinRequestUsecase) publish(ctx context.Context, e *domain.ChangeEvent) {
	if err := uc.pub.Publish(ctx, e); err != nil {
		log.Printf("⚠️ [REQUEST] failed to publish %s: %v", e.Type, err)
	}
}
