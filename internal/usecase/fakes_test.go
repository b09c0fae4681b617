package usecase

import (
	"context"
	"time"

	"party-service/internal/domain"
	"party-service/pkg/xerrors"
)

// Stateful in-memory stores so the usecases exercise their real guard logic.

type memPartyRepo struct {
	parties map[string]*domain.Party
}

func newMemPartyRepo(parties ...*domain.Party) *memPartyRepo {
	r := &memPartyRepo{parties: make(map[string]*domain.Party)}
	for _, p := range parties {
		r.parties[p.ID] = p
	}
	return r
}

func (r *memPartyRepo) Create(_ context.Context, p *domain.Party) error {
	cp := *p
	r.parties[p.ID] = &cp
	return nil
}

func (r *memPartyRepo) GetByID(_ context.Context, id string) (*domain.Party, error) {
	p, ok := r.parties[id]
	if !ok {
		return nil, xerrors.ErrPartyNotFound
	}
	cp := *p
	cp.Members = append([]string(nil), p.Members...)
	return &cp, nil
}

func (r *memPartyRepo) UpdateStatus(_ context.Context, id string, status domain.PartyStatus, reason domain.EndReason) error {
	p, ok := r.parties[id]
	if !ok {
		return xerrors.ErrPartyNotFound
	}
	if p.Status == domain.PartyEnded {
		return xerrors.ErrPartyEnded
	}
	p.Status = status
	if reason != "" {
		p.EndReason = reason
	}
	return nil
}

func (r *memPartyRepo) AddMember(_ context.Context, partyID, userID string) error {
	p, ok := r.parties[partyID]
	if !ok {
		return xerrors.ErrPartyNotFound
	}
	if p.HasMember(userID) {
		return xerrors.ErrAlreadyMember
	}
	p.Members = append(p.Members, userID)
	return nil
}

func (r *memPartyRepo) RemoveMember(_ context.Context, partyID, userID string) error {
	p, ok := r.parties[partyID]
	if !ok {
		return xerrors.ErrPartyNotFound
	}
	if !p.HasMember(userID) {
		return xerrors.ErrNotMember
	}
	p.Members = p.MembersExcept(userID)
	return nil
}

func (r *memPartyRepo) SetArrived(_ context.Context, id string, s *domain.Settlement) error {
	p, ok := r.parties[id]
	if !ok {
		return xerrors.ErrPartyNotFound
	}
	if p.Status != domain.PartyOpen && p.Status != domain.PartyClosed {
		return xerrors.ErrInvalidTransition
	}
	p.Status = domain.PartyArrived
	p.Settlement = s
	return nil
}

func (r *memPartyRepo) UpdateSettlement(_ context.Context, id string, s *domain.Settlement) error {
	p, ok := r.parties[id]
	if !ok {
		return xerrors.ErrPartyNotFound
	}
	if p.Status != domain.PartyArrived {
		return xerrors.ErrSettlementFrozen
	}
	p.Settlement = s
	return nil
}

func (r *memPartyRepo) ListCreatedBefore(context.Context, time.Time, int) ([]*domain.Party, error) {
	return nil, nil
}

func (r *memPartyRepo) Delete(_ context.Context, id string) error {
	delete(r.parties, id)
	return nil
}

type memRequestRepo struct {
	requests map[string]*domain.JoinRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[string]*domain.JoinRequest)}
}

func (r *memRequestRepo) Create(_ context.Context, req *domain.JoinRequest) error {
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, id string) (*domain.JoinRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, xerrors.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRequestRepo) HasPending(_ context.Context, partyID, requesterID string) (bool, error) {
	for _, req := range r.requests {
		if req.PartyID == partyID && req.RequesterID == requesterID && req.Status == domain.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRequestRepo) ResolveIfPending(_ context.Context, id string, status domain.RequestStatus) error {
	req, ok := r.requests[id]
	if !ok {
		return xerrors.ErrRequestNotFound
	}
	if req.Status != domain.RequestPending {
		return xerrors.ErrRequestResolved
	}
	req.Status = status
	return nil
}

func (r *memRequestRepo) ListPendingByParty(_ context.Context, partyID string) ([]*domain.JoinRequest, error) {
	var out []*domain.JoinRequest
	for _, req := range r.requests {
		if req.PartyID == partyID && req.Status == domain.RequestPending {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memChatRepo struct {
	messages []*domain.ChatMessage
}

func (r *memChatRepo) Create(_ context.Context, m *domain.ChatMessage) error {
	r.messages = append(r.messages, m)
	return nil
}

func (r *memChatRepo) ListByParty(_ context.Context, partyID string, _, _ int) ([]*domain.ChatMessage, error) {
	var out []*domain.ChatMessage
	for _, m := range r.messages {
		if m.PartyID == partyID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memChatRepo) DeleteByParty(context.Context, string) (int, error) { return 0, nil }

type memUserRepo struct {
	users map[string]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetMany(_ context.Context, ids []string) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUserRepo) ListAllWithPartyPushEnabled(context.Context) ([]*domain.User, error) {
	return nil, nil
}

func (r *memUserRepo) ReplaceTokens(_ context.Context, userID string, tokens []string) error {
	if u, ok := r.users[userID]; ok {
		u.FCMTokens = tokens
	}
	return nil
}

func (r *memUserRepo) RemoveTokens(context.Context, string, []string) error { return nil }

func (r *memUserRepo) UpdateSettings(_ context.Context, userID string, s domain.NotificationSettings) error {
	if u, ok := r.users[userID]; ok {
		u.Settings = s
	}
	return nil
}

type memMarkers struct {
	marked map[string]bool // "partyID/userID" -> set
	err    error
}

func newMemMarkers() *memMarkers {
	return &memMarkers{marked: make(map[string]bool)}
}

func (m *memMarkers) Set(_ context.Context, partyID, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.marked[partyID+"/"+userID] = true
	return nil
}

func (m *memMarkers) Consume(_ context.Context, partyID, userID string) (bool, error) {
	key := partyID + "/" + userID
	ok := m.marked[key]
	delete(m.marked, key)
	return ok, nil
}

type capturePublisher struct {
	events []*domain.ChangeEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e *domain.ChangeEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) lastOfType(t domain.EventType) *domain.ChangeEvent {
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == t {
			return p.events[i]
		}
	}
	return nil
}
