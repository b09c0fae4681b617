package dispatch

import (
	"context"
	"errors"
	"time"

	"party-service/internal/domain"
	"party-service/pkg/push"
	"party-service/pkg/xerrors"
)

// In-memory stand-ins for the dispatch pipeline's dependencies. Only the
// methods the pipeline actually touches do real work; the rest satisfy the
// interfaces.

type fakePartyRepo struct {
	parties map[string]*domain.Party
}

func newFakePartyRepo(parties ...*domain.Party) *fakePartyRepo {
	r := &fakePartyRepo{parties: make(map[string]*domain.Party)}
	for _, p := range parties {
		r.parties[p.ID] = p
	}
	return r
}

func (r *fakePartyRepo) Create(_ context.Context, p *domain.Party) error {
	r.parties[p.ID] = p
	return nil
}

func (r *fakePartyRepo) GetByID(_ context.Context, id string) (*domain.Party, error) {
	p, ok := r.parties[id]
	if !ok {
		return nil, xerrors.ErrPartyNotFound
	}
	return p, nil
}

func (r *fakePartyRepo) UpdateStatus(context.Context, string, domain.PartyStatus, domain.EndReason) error {
	return nil
}
func (r *fakePartyRepo) AddMember(context.Context, string, string) error    { return nil }
func (r *fakePartyRepo) RemoveMember(context.Context, string, string) error { return nil }
func (r *fakePartyRepo) SetArrived(context.Context, string, *domain.Settlement) error {
	return nil
}
func (r *fakePartyRepo) UpdateSettlement(context.Context, string, *domain.Settlement) error {
	return nil
}
func (r *fakePartyRepo) ListCreatedBefore(context.Context, time.Time, int) ([]*domain.Party, error) {
	return nil, nil
}
func (r *fakePartyRepo) Delete(context.Context, string) error { return nil }

type purgeCall struct {
	userID  string
	partyID string
}

type fakeNotifRepo struct {
	created []*domain.UserNotification
	nextID  int64

	purgedForUser  []purgeCall
	purgedParties  []string
	purgedRequests []purgeCall
}

func (r *fakeNotifRepo) Create(_ context.Context, n *domain.UserNotification) (*domain.UserNotification, error) {
	r.nextID++
	out := *n
	out.ID = r.nextID
	out.CreatedAt = time.Now()
	r.created = append(r.created, &out)
	return &out, nil
}

func (r *fakeNotifRepo) ListByUser(context.Context, string, int, int) ([]*domain.UserNotification, error) {
	return nil, nil
}
func (r *fakeNotifRepo) ListUnread(context.Context, string, int, int) ([]*domain.UserNotification, error) {
	return nil, nil
}
func (r *fakeNotifRepo) CountUnread(context.Context, string) (int, error) { return 0, nil }
func (r *fakeNotifRepo) MarkAsRead(context.Context, int64, string) error  { return nil }

func (r *fakeNotifRepo) DeletePartyScopedForUser(_ context.Context, userID, partyID string) (int, error) {
	r.purgedForUser = append(r.purgedForUser, purgeCall{userID: userID, partyID: partyID})
	return 0, nil
}

func (r *fakeNotifRepo) DeletePartyScoped(_ context.Context, partyID string) (int, error) {
	r.purgedParties = append(r.purgedParties, partyID)
	return 0, nil
}

func (r *fakeNotifRepo) DeleteRequestScopedForUser(_ context.Context, userID, requestID string) (int, error) {
	r.purgedRequests = append(r.purgedRequests, purgeCall{userID: userID, partyID: requestID})
	return 0, nil
}

// createdFor returns the types of in-app records written for a user, in order.
func (r *fakeNotifRepo) createdFor(userID string) []domain.NotificationType {
	var out []domain.NotificationType
	for _, n := range r.created {
		if n.UserID == userID {
			out = append(out, n.Type)
		}
	}
	return out
}

type fakeUserRepo struct {
	users   map[string]*domain.User
	removed map[string][]string // userID -> tokens pruned
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User), removed: make(map[string][]string)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetMany(_ context.Context, ids []string) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListAllWithPartyPushEnabled(context.Context) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.users {
		if u.Settings.Enabled && u.Settings.Party {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ReplaceTokens(_ context.Context, userID string, tokens []string) error {
	if u, ok := r.users[userID]; ok {
		u.FCMTokens = tokens
	}
	return nil
}

func (r *fakeUserRepo) RemoveTokens(_ context.Context, userID string, dead []string) error {
	r.removed[userID] = append(r.removed[userID], dead...)
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	var kept []string
	deadSet := make(map[string]struct{}, len(dead))
	for _, d := range dead {
		deadSet[d] = struct{}{}
	}
	for _, tok := range u.FCMTokens {
		if _, isDead := deadSet[tok]; !isDead {
			kept = append(kept, tok)
		}
	}
	u.FCMTokens = kept
	return nil
}

func (r *fakeUserRepo) UpdateSettings(_ context.Context, userID string, s domain.NotificationSettings) error {
	if u, ok := r.users[userID]; ok {
		u.Settings = s
	}
	return nil
}

type fakeSender struct {
	batches    [][]string
	failBatch  int // 1-based index of a batch that errors out; 0 means none
	deadTokens map[string]struct{}
}

func (s *fakeSender) Send(_ context.Context, tokens []string, _ *domain.PushMessage) (*push.Report, error) {
	s.batches = append(s.batches, tokens)
	if s.failBatch == len(s.batches) {
		return nil, errors.New("push service unavailable")
	}
	report := &push.Report{}
	for _, tok := range tokens {
		if _, dead := s.deadTokens[tok]; dead {
			report.Failure++
			report.DeadTokens = append(report.DeadTokens, tok)
		} else {
			report.Success++
		}
	}
	return report, nil
}

func (s *fakeSender) sentTokens() []string {
	var out []string
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

type fakeRealtime struct {
	sent map[string][]*domain.UserNotification
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{sent: make(map[string][]*domain.UserNotification)}
}

func (f *fakeRealtime) Send(userID string, n *domain.UserNotification) {
	f.sent[userID] = append(f.sent[userID], n)
}

type fakeMarkers struct {
	marked map[string]bool // "partyID/userID" -> set
	err    error
}

func newFakeMarkers() *fakeMarkers {
	return &fakeMarkers{marked: make(map[string]bool)}
}

func (m *fakeMarkers) Set(_ context.Context, partyID, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.marked[partyID+"/"+userID] = true
	return nil
}

func (m *fakeMarkers) Consume(_ context.Context, partyID, userID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := partyID + "/" + userID
	ok := m.marked[key]
	delete(m.marked, key)
	return ok, nil
}
