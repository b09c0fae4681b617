package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"party-service/internal/domain"
	"party-service/pkg/push"
)

func testUser(id string, tokens ...string) *domain.User {
	return &domain.User{
		ID:        id,
		Nickname:  id,
		FCMTokens: tokens,
		Settings:  domain.DefaultSettings(),
	}
}

func testParty(id string, members ...string) *domain.Party {
	return &domain.Party{
		ID:          id,
		LeaderID:    members[0],
		Members:     members,
		Status:      domain.PartyOpen,
		Departure:   "Main Gate",
		Destination: "Station",
	}
}

type testHarness struct {
	dispatcher *Dispatcher
	parties    *fakePartyRepo
	notifs     *fakeNotifRepo
	users      *fakeUserRepo
	sender     *fakeSender
	realtime   *fakeRealtime
}

func newHarness(parties []*domain.Party, users ...*domain.User) *testHarness {
	h := &testHarness{
		parties:  newFakePartyRepo(parties...),
		notifs:   &fakeNotifRepo{},
		users:    newFakeUserRepo(users...),
		sender:   &fakeSender{},
		realtime: newFakeRealtime(),
	}
	hygiene := NewTokenHygiene(h.users)
	h.dispatcher = NewDispatcher(h.parties, h.notifs, h.users, h.sender, hygiene, h.realtime)
	return h
}

func TestPartyCreatedFansOutToEveryoneButLeader(t *testing.T) {
	p := testParty("p1", "leader")
	h := newHarness([]*domain.Party{p},
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
		testUser("bob", "tok-bob"),
	)

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:       domain.EventPartyWritten,
		PartyAfter: p,
	})

	if got := h.notifs.createdFor("leader"); len(got) != 0 {
		t.Errorf("leader got %d in-app records, want 0", len(got))
	}
	for _, u := range []string{"alice", "bob"} {
		got := h.notifs.createdFor(u)
		if len(got) != 1 || got[0] != domain.PartyCreated {
			t.Errorf("%s records = %v, want one party_created", u, got)
		}
	}
	for _, tok := range h.sender.sentTokens() {
		if tok == "tok-leader" {
			t.Error("push went to the leader's own token")
		}
	}
}

func TestPartyClosedIsPushOnly(t *testing.T) {
	before := testParty("p1", "leader", "alice")
	after := testParty("p1", "leader", "alice")
	after.Status = domain.PartyClosed
	h := newHarness([]*domain.Party{after},
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
	)

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:        domain.EventPartyWritten,
		PartyBefore: before,
		PartyAfter:  after,
	})

	if len(h.notifs.created) != 0 {
		t.Errorf("party close wrote %d in-app records, want 0", len(h.notifs.created))
	}
	sent := h.sender.sentTokens()
	if len(sent) != 1 || sent[0] != "tok-alice" {
		t.Errorf("push tokens = %v, want [tok-alice]", sent)
	}
}

func TestPartyReopenIsSilent(t *testing.T) {
	before := testParty("p1", "leader", "alice")
	before.Status = domain.PartyClosed
	after := testParty("p1", "leader", "alice")
	h := newHarness([]*domain.Party{after},
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
	)

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:        domain.EventPartyWritten,
		PartyBefore: before,
		PartyAfter:  after,
	})

	if len(h.notifs.created) != 0 || len(h.sender.batches) != 0 {
		t.Errorf("reopen produced %d records and %d push batches, want none",
			len(h.notifs.created), len(h.sender.batches))
	}
}

func TestPartyArrivedNotifiesMembers(t *testing.T) {
	before := testParty("p1", "leader", "alice", "bob")
	after := testParty("p1", "leader", "alice", "bob")
	after.Status = domain.PartyArrived
	after.Settlement = domain.NewSettlement(30000, after.Members, "leader", time.Now())
	h := newHarness([]*domain.Party{after},
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
		testUser("bob", "tok-bob"),
	)

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:        domain.EventPartyWritten,
		PartyBefore: before,
		PartyAfter:  after,
	})

	for _, u := range []string{"alice", "bob"} {
		got := h.notifs.createdFor(u)
		if len(got) != 1 || got[0] != domain.NotifPartyArrived {
			t.Errorf("%s records = %v, want one party_arrived", u, got)
		}
	}
	// Arrival seeds the ledger but must not trigger settlement_completed.
	for _, n := range h.notifs.created {
		if n.Type == domain.NotifSettlementCompleted {
			t.Error("settlement_completed fired on arrival seeding")
		}
	}
}

func TestSettlementCompletedFiresExactlyOnce(t *testing.T) {
	mk := func(settledAll bool) *domain.Party {
		p := testParty("p1", "leader", "alice")
		p.Status = domain.PartyArrived
		p.Settlement = domain.NewSettlement(20000, p.Members, "leader", time.Now())
		if settledAll {
			p.Settlement.MarkSettled("alice", time.Now())
		}
		return p
	}

	h := newHarness([]*domain.Party{mk(true)},
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
	)

	// The completing write: alice flips the last unsettled entry.
	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:        domain.EventPartyWritten,
		PartyBefore: mk(false),
		PartyAfter:  mk(true),
	})

	completed := 0
	for _, n := range h.notifs.created {
		if n.Type == domain.NotifSettlementCompleted {
			completed++
		}
	}
	if completed != 2 {
		t.Fatalf("settlement_completed records = %d, want 2 (whole member list, leader included)", completed)
	}

	// Redelivery of an already-completed snapshot must be a no-op.
	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:        domain.EventPartyWritten,
		PartyBefore: mk(true),
		PartyAfter:  mk(true),
	})
	for _, n := range h.notifs.created[2:] {
		if n.Type == domain.NotifSettlementCompleted {
			t.Error("settlement_completed fired again on redelivery")
		}
	}
}

func TestPartyDeletedPurgesBeforeNotice(t *testing.T) {
	before := testParty("p1", "leader", "alice")
	h := newHarness(nil,
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
	)

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:        domain.EventPartyDeleted,
		PartyBefore: before,
	})

	if len(h.notifs.purgedParties) != 1 || h.notifs.purgedParties[0] != "p1" {
		t.Errorf("purged parties = %v, want [p1]", h.notifs.purgedParties)
	}
	got := h.notifs.createdFor("alice")
	if len(got) != 1 || got[0] != domain.PartyDeleted {
		t.Errorf("alice records = %v, want one party_deleted", got)
	}
	if len(h.notifs.createdFor("leader")) != 0 {
		t.Error("disband notice went to the leader who disbanded")
	}
}

func TestRequestLifecycleRouting(t *testing.T) {
	req := &domain.JoinRequest{
		ID:          "r1",
		PartyID:     "p1",
		LeaderID:    "leader",
		RequesterID: "alice",
		Status:      domain.RequestPending,
	}
	h := newHarness(nil,
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
	)

	// Created: notice goes to the leader only.
	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:         domain.EventRequestWritten,
		RequestAfter: req,
	})
	if got := h.notifs.createdFor("leader"); len(got) != 1 || got[0] != domain.JoinRequestCreated {
		t.Errorf("leader records = %v, want one join_request", got)
	}
	if len(h.notifs.createdFor("alice")) != 0 {
		t.Error("requester notified about their own request")
	}

	// Accepted: requester notified, leader's request-scoped records purged.
	accepted := *req
	accepted.Status = domain.RequestAccepted
	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:          domain.EventRequestWritten,
		RequestBefore: req,
		RequestAfter:  &accepted,
	})
	if got := h.notifs.createdFor("alice"); len(got) != 1 || got[0] != domain.JoinRequestAccepted {
		t.Errorf("alice records = %v, want one request_accepted", got)
	}
	if len(h.notifs.purgedRequests) != 1 || h.notifs.purgedRequests[0] != (purgeCall{userID: "leader", partyID: "r1"}) {
		t.Errorf("request purges = %v, want leader/r1", h.notifs.purgedRequests)
	}

	// Canceled: nothing is delivered.
	recordsBefore := len(h.notifs.created)
	canceled := *req
	canceled.Status = domain.RequestCanceled
	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:          domain.EventRequestWritten,
		RequestBefore: req,
		RequestAfter:  &canceled,
	})
	if len(h.notifs.created) != recordsBefore || len(h.sender.batches) != 2 {
		t.Error("cancel produced deliveries, want none")
	}
}

func TestChatMessageRouting(t *testing.T) {
	p := testParty("p1", "leader", "alice", "bob")
	h := newHarness([]*domain.Party{p},
		testUser("leader", "tok-leader"),
		testUser("alice", "tok-alice"),
		testUser("bob", "tok-bob"),
	)

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type: domain.EventChatMessage,
		Chat: &domain.ChatMessage{ID: "m1", PartyID: "p1", SenderID: "alice", Type: domain.ChatText, Content: "on my way"},
	})

	if len(h.notifs.createdFor("alice")) != 0 {
		t.Error("sender got an in-app record for their own message")
	}
	for _, u := range []string{"leader", "bob"} {
		if got := h.notifs.createdFor(u); len(got) != 1 || got[0] != domain.ChatMessageReceived {
			t.Errorf("%s records = %v, want one chat_message", u, got)
		}
	}

	// System messages push but leave no in-app record.
	recordsBefore := len(h.notifs.created)
	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type: domain.EventChatMessage,
		Chat: &domain.ChatMessage{ID: "m2", PartyID: "p1", SenderID: "bob", Type: domain.ChatSystem, Content: "bob joined the party"},
	})
	if len(h.notifs.created) != recordsBefore {
		t.Error("system message wrote in-app records")
	}
	if len(h.sender.batches) != 2 {
		t.Errorf("push batches = %d, want 2 (one per message)", len(h.sender.batches))
	}
}

func TestPreferencesGatePushNotRecords(t *testing.T) {
	p := testParty("p1", "leader", "alice")
	muted := testUser("alice", "tok-alice")
	muted.Settings.Chat = false
	h := newHarness([]*domain.Party{p}, testUser("leader", "tok-leader"), muted)

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type: domain.EventChatMessage,
		Chat: &domain.ChatMessage{ID: "m1", PartyID: "p1", SenderID: "leader", Type: domain.ChatText, Content: "hello"},
	})

	if got := h.notifs.createdFor("alice"); len(got) != 1 {
		t.Errorf("alice records = %v, want the in-app record despite muted chat", got)
	}
	if len(h.sender.batches) != 0 {
		t.Errorf("push batches = %d, want 0 for a fully muted audience", len(h.sender.batches))
	}
	if got := h.realtime.sent["alice"]; len(got) != 1 {
		t.Errorf("realtime sends to alice = %d, want 1", len(got))
	}
}

func TestPushChunkingAndFailureIsolation(t *testing.T) {
	// 3 users x 400 tokens = 1200 tokens: two full chunks and a 200 remainder.
	var users []*domain.User
	members := []string{"leader"}
	for i := 0; i < 3; i++ {
		uid := fmt.Sprintf("u%d", i)
		members = append(members, uid)
		tokens := make([]string, 400)
		for j := range tokens {
			tokens[j] = fmt.Sprintf("%s-tok-%d", uid, j)
		}
		users = append(users, testUser(uid, tokens...))
	}
	users = append(users, testUser("leader", "tok-leader"))

	before := testParty("p1", members...)
	after := testParty("p1", members...)
	after.Status = domain.PartyClosed

	h := newHarness([]*domain.Party{after}, users...)
	h.sender.failBatch = 2
	h.sender.deadTokens = map[string]struct{}{
		"u0-tok-0":   {}, // chunk 1
		"u2-tok-300": {}, // chunk 3
	}

	h.dispatcher.HandleEvent(context.Background(), &domain.ChangeEvent{
		Type:        domain.EventPartyWritten,
		PartyBefore: before,
		PartyAfter:  after,
	})

	if len(h.sender.batches) != 3 {
		t.Fatalf("push batches = %d, want 3", len(h.sender.batches))
	}
	if n := len(h.sender.batches[0]); n != push.BatchLimit {
		t.Errorf("batch 1 size = %d, want %d", n, push.BatchLimit)
	}
	if n := len(h.sender.batches[2]); n != 200 {
		t.Errorf("batch 3 size = %d, want 200 (later chunks still attempted after a failure)", n)
	}

	// Dead tokens reported by the surviving chunks get pruned per owner.
	if got := h.users.removed["u0"]; len(got) != 1 || got[0] != "u0-tok-0" {
		t.Errorf("pruned for u0 = %v, want [u0-tok-0]", got)
	}
	if got := h.users.removed["u2"]; len(got) != 1 || got[0] != "u2-tok-300" {
		t.Errorf("pruned for u2 = %v, want [u2-tok-300]", got)
	}
	if got := h.users.removed["u1"]; len(got) != 0 {
		t.Errorf("pruned for u1 = %v, want none", got)
	}
}
