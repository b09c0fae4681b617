package dispatch

import (
	"context"
	"log"

	"party-service/internal/domain"
	"party-service/internal/repository"
	"party-service/pkg/push"
)

// RealtimeNotifier mirrors fresh in-app records to open app sessions.
type RealtimeNotifier interface {
	Send(userID string, n *domain.UserNotification)
}

// Dispatcher converts change events into push deliveries plus durable in-app
// notification records. Every handler path fails open: a missing document or a
// delivery error is logged and swallowed, never propagated. The feed is
// at-least-once and an escaping error would only buy a redelivery storm.
type Dispatcher struct {
	parties  repository.PartyRepository
	notifs   repository.NotificationRepository
	users    repository.UserRepository
	sender   push.Sender
	hygiene  *TokenHygiene
	realtime RealtimeNotifier
}

func NewDispatcher(
	parties repository.PartyRepository,
	notifs repository.NotificationRepository,
	users repository.UserRepository,
	sender push.Sender,
	hygiene *TokenHygiene,
	realtime RealtimeNotifier,
) *Dispatcher {
	return &Dispatcher{
		parties:  parties,
		notifs:   notifs,
		users:    users,
		sender:   sender,
		hygiene:  hygiene,
		realtime: realtime,
	}
}

func (d *Dispatcher) HandleEvent(ctx context.Context, e *domain.ChangeEvent) {
	switch e.Type {
	case domain.EventPartyWritten:
		d.onPartyWritten(ctx, e.PartyBefore, e.PartyAfter)
	case domain.EventPartyDeleted:
		d.onPartyDeleted(ctx, e.PartyBefore)
	case domain.EventRequestWritten:
		d.onRequestWritten(ctx, e.RequestBefore, e.RequestAfter)
	case domain.EventChatMessage:
		d.onChatMessage(ctx, e.Chat)
	}
}

// -----------------------------
// Party events
// -----------------------------

func (d *Dispatcher) onPartyWritten(ctx context.Context, before, after *domain.Party) {
	if after == nil {
		return
	}
	if before == nil {
		d.onPartyCreated(ctx, after)
		return
	}

	if before.Status != after.Status {
		switch after.Status {
		case domain.PartyClosed:
			// Push only; the in-app record is deliberately suppressed, and
			// reopening (closed -> open) is fully silent.
			d.deliverTo(ctx, after.MembersExcept(after.LeaderID), domain.NotifPartyClosed, composePartyClosed(after), false)
		case domain.PartyArrived:
			d.deliverTo(ctx, after.MembersExcept(after.LeaderID), domain.NotifPartyArrived, composePartyArrived(after), true)
		}
		// open (reopen) and ended produce nothing here: disband rides the
		// party.deleted event and a settlement end was already announced by
		// the completion transition below.
	}

	// Settlement completion fires only on the not-all-settled -> all-settled
	// transition. Comparing before and after keeps redelivered events and
	// unrelated party writes from re-notifying.
	if before.Settlement != nil && !before.Settlement.AllSettled() &&
		after.Settlement != nil && after.Settlement.AllSettled() {
		d.deliverTo(ctx, after.Members, domain.NotifSettlementCompleted, composeSettlementCompleted(after), true)
	}
}

func (d *Dispatcher) onPartyCreated(ctx context.Context, p *domain.Party) {
	users, err := d.users.ListAllWithPartyPushEnabled(ctx)
	if err != nil {
		log.Printf("[DISPATCH] party %s created: audience lookup failed: %v", p.ID, err)
		return
	}
	audience := make([]*domain.User, 0, len(users))
	for _, u := range users {
		if u.ID != p.LeaderID {
			audience = append(audience, u)
		}
	}
	d.deliverToUsers(ctx, audience, domain.PartyCreated, composePartyCreated(p), true)
}

func (d *Dispatcher) onPartyDeleted(ctx context.Context, before *domain.Party) {
	if before == nil {
		return
	}
	// Purge first so members don't keep ghost records pointing at a dead
	// party; the disband notice itself is written after the purge.
	if n, err := d.notifs.DeletePartyScoped(ctx, before.ID); err != nil {
		log.Printf("[DISPATCH] party %s deleted: record purge failed after %d: %v", before.ID, n, err)
	}
	d.deliverTo(ctx, before.MembersExcept(before.LeaderID), domain.PartyDeleted, composePartyDeleted(before), true)
}

// -----------------------------
// Join request events
// -----------------------------

func (d *Dispatcher) onRequestWritten(ctx context.Context, before, after *domain.JoinRequest) {
	if after == nil {
		return
	}
	if before == nil {
		d.deliverTo(ctx, []string{after.LeaderID}, domain.JoinRequestCreated, composeJoinRequestCreated(after), true)
		return
	}
	if before.Status != domain.RequestPending || after.Status == before.Status {
		return // terminal states never change again; nothing to announce
	}

	switch after.Status {
	case domain.RequestAccepted, domain.RequestDeclined:
		t := domain.JoinRequestAccepted
		if after.Status == domain.RequestDeclined {
			t = domain.JoinRequestDeclined
		}
		d.deliverTo(ctx, []string{after.RequesterID}, t, composeJoinRequestResolved(after), true)

		// A resolved request should not linger in the leader's list.
		if _, err := d.notifs.DeleteRequestScopedForUser(ctx, after.LeaderID, after.ID); err != nil {
			log.Printf("[DISPATCH] request %s: leader record purge failed: %v", after.ID, err)
		}
	case domain.RequestCanceled:
		// The leader's live view of the request closes on its own; no push.
	}
}

// -----------------------------
// Chat events
// -----------------------------

func (d *Dispatcher) onChatMessage(ctx context.Context, m *domain.ChatMessage) {
	if m == nil {
		return
	}
	party, err := d.parties.GetByID(ctx, m.PartyID)
	if err != nil {
		log.Printf("[DISPATCH] chat %s: party %s not found, skipping: %v", m.ID, m.PartyID, err)
		return
	}
	inApp := m.Type == domain.ChatText
	d.deliverTo(ctx, party.MembersExcept(m.SenderID), domain.ChatMessageReceived, composeChatMessage(m), inApp)
}

// -----------------------------
// Delivery core
// -----------------------------

// deliverTo resolves recipient ids to user documents and delivers. Recipients
// without a user document are skipped (logged, fail open).
func (d *Dispatcher) deliverTo(ctx context.Context, recipientIDs []string, t domain.NotificationType, msg *domain.PushMessage, inApp bool) {
	if len(recipientIDs) == 0 {
		return
	}
	users, err := d.users.GetMany(ctx, recipientIDs)
	if err != nil {
		log.Printf("[DISPATCH] %s: recipient lookup failed: %v", t, err)
		return
	}
	if len(users) < len(recipientIDs) {
		log.Printf("[DISPATCH] %s: %d of %d recipients have no user document", t, len(recipientIDs)-len(users), len(recipientIDs))
	}
	d.deliverToUsers(ctx, users, t, msg, inApp)
}

// deliverToUsers is the fan-out core. In-app record creation and push delivery
// are independent: a failure in one never blocks the other. In-app records are
// written for the whole audience regardless of push preferences; preferences
// gate the push path only, checked per recipient on every event.
func (d *Dispatcher) deliverToUsers(ctx context.Context, users []*domain.User, t domain.NotificationType, msg *domain.PushMessage, inApp bool) {
	if inApp {
		for _, u := range users {
			record := &domain.UserNotification{
				UserID:  u.ID,
				Type:    t,
				Title:   msg.Title,
				Message: msg.Body,
				Data:    msg.Data,
			}
			created, err := d.notifs.Create(ctx, record)
			if err != nil {
				log.Printf("[DISPATCH] %s: in-app record for %s failed: %v", t, u.ID, err)
				continue
			}
			if d.realtime != nil {
				d.realtime.Send(u.ID, created)
			}
		}
	}

	d.pushToUsers(ctx, users, t, msg)
}

func (d *Dispatcher) pushToUsers(ctx context.Context, users []*domain.User, t domain.NotificationType, msg *domain.PushMessage) {
	var tokens []string
	owner := make(map[string]string) // token -> user id, for hygiene grouping
	for _, u := range users {
		if !u.Settings.Allows(t) {
			continue
		}
		for _, tok := range u.FCMTokens {
			tokens = append(tokens, tok)
			owner[tok] = u.ID
		}
	}
	if len(tokens) == 0 {
		return
	}

	// Chunk to the push service's per-call limit. A failed chunk is logged
	// and the loop moves on: successes already recorded in earlier chunks
	// stay recorded, later chunks still get their attempt.
	var dead []string
	sent, failed := 0, 0
	for start := 0; start < len(tokens); start += push.BatchLimit {
		end := start + push.BatchLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		report, err := d.sender.Send(ctx, tokens[start:end], msg)
		if err != nil {
			log.Printf("[DISPATCH] %s: push batch %d-%d failed: %v", t, start, end, err)
			continue
		}
		sent += report.Success
		failed += report.Failure
		dead = append(dead, report.DeadTokens...)
	}
	log.Printf("[DISPATCH] %s: pushed to %d tokens (%d ok, %d failed)", t, len(tokens), sent, failed)

	if len(dead) == 0 {
		return
	}
	deadByUser := make(map[string][]string)
	for _, tok := range dead {
		uid := owner[tok]
		deadByUser[uid] = append(deadByUser[uid], tok)
	}
	d.hygiene.PruneDead(ctx, deadByUser)
}
