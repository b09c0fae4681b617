package dispatch

import (
	"context"
	"log"

	"party-service/internal/domain"
	"party-service/internal/repository"
)

// Watcher diffs a party's member list across each update to tell kicks from
// voluntary leaves. A leaving member marks themselves first (short-lived,
// consume-once marker); a shrink without a matching marker is a kick.
type Watcher struct {
	markers    repository.LeaveMarkerRepository
	notifs     repository.NotificationRepository
	dispatcher *Dispatcher
}

func NewWatcher(markers repository.LeaveMarkerRepository, notifs repository.NotificationRepository, dispatcher *Dispatcher) *Watcher {
	return &Watcher{markers: markers, notifs: notifs, dispatcher: dispatcher}
}

func (w *Watcher) HandleEvent(ctx context.Context, e *domain.ChangeEvent) {
	if e.Type != domain.EventPartyWritten || e.PartyBefore == nil || e.PartyAfter == nil {
		return
	}
	w.onMembersChanged(ctx, e.PartyBefore, e.PartyAfter)
}

func (w *Watcher) onMembersChanged(ctx context.Context, before, after *domain.Party) {
	kicked := diffMembers(before.Members, after.Members)
	if len(kicked) == 0 {
		return
	}

	// A self-leave removes exactly one member, so the marker is only checked
	// against a single-element shrink. Markers are keyed per user; checking one
	// member never touches another member's marker. Best effort: the marker's
	// TTL is its validity window.
	if len(kicked) == 1 {
		marked, err := w.markers.Consume(ctx, after.ID, kicked[0])
		if err != nil {
			log.Printf("[WATCHER] party %s: marker lookup failed, treating as kick: %v", after.ID, err)
		} else if marked {
			log.Printf("[WATCHER] party %s: %s left voluntarily", after.ID, kicked[0])
			return
		}
	}

	for _, userID := range kicked {
		if userID == after.LeaderID {
			continue // the leader cannot be removed through this path
		}
		// Drop the member's party-scoped records so nothing deep-links into a
		// party they can no longer see, then write the kick notice on top.
		if _, err := w.notifs.DeletePartyScopedForUser(ctx, userID, after.ID); err != nil {
			log.Printf("[WATCHER] party %s: purge for kicked %s failed: %v", after.ID, userID, err)
		}
		w.dispatcher.deliverTo(ctx, []string{userID}, domain.MemberKicked, composeMemberKicked(after), true)
	}
}

// diffMembers returns before \ after, preserving before's order.
func diffMembers(before, after []string) []string {
	remaining := make(map[string]struct{}, len(after))
	for _, m := range after {
		remaining[m] = struct{}{}
	}
	var removed []string
	for _, m := range before {
		if _, ok := remaining[m]; !ok {
			removed = append(removed, m)
		}
	}
	return removed
}
