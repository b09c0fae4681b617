package usecase

import (
	"context"
	"log"
	"time"

	"party-service/internal/domain"
	"party-service/internal/events"
	"party-service/internal/repository"
	"party-service/pkg/id"
	"party-service/pkg/xerrors"
)

// PartyUsecase owns party status transitions. Writes go to the store first;
// the change event (with before/after snapshots) is published afterwards so
// the dispatch side can classify the delta without re-reading.
type PartyUsecase struct {
	parties repository.PartyRepository
	markers repository.LeaveMarkerRepository
	pub     events.Publisher
}

func NewPartyUsecase(parties repository.PartyRepository, markers repository.LeaveMarkerRepository, pub events.Publisher) *PartyUsecase {
	return &PartyUsecase{parties: parties, markers: markers, pub: pub}
}

func (uc *PartyUsecase) Create(ctx context.Context, leaderID, departure, destination string, departureTime time.Time) (*domain.Party, error) {
	p := &domain.Party{
		ID:            id.New(),
		LeaderID:      leaderID,
		Members:       []string{leaderID},
		Status:        domain.PartyOpen,
		Departure:     departure,
		Destination:   destination,
		DepartureTime: departureTime,
	}
	if err := uc.parties.Create(ctx, p); err != nil {
		return nil, err
	}
	created, err := uc.parties.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	uc.publishPartyWritten(ctx, nil, created)
	return created, nil
}

func (uc *PartyUsecase) GetByID(ctx context.Context, partyID string) (*domain.Party, error) {
	return uc.parties.GetByID(ctx, partyID)
}

// ToggleStatus flips open <-> closed.
func (uc *PartyUsecase) ToggleStatus(ctx context.Context, partyID, actorID string) (*domain.Party, error) {
	before, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if before.LeaderID != actorID {
		return nil, xerrors.ErrNotLeader
	}

	target := domain.PartyClosed
	if before.Status == domain.PartyClosed {
		target = domain.PartyOpen
	}
	if !domain.CanTransition(before.Status, target) {
		return nil, xerrors.ErrInvalidTransition
	}
	if err := uc.parties.UpdateStatus(ctx, partyID, target, ""); err != nil {
		return nil, err
	}

	after, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	uc.publishPartyWritten(ctx, before, after)
	return after, nil
}

// ConfirmArrival flips the party to arrived and seeds the settlement ledger in
// the same write. The ledger's member key set is frozen here: later membership
// changes never re-sync it.
func (uc *PartyUsecase) ConfirmArrival(ctx context.Context, partyID, actorID string, fare int64, splitMembers []string) (*domain.Party, error) {
	before, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if before.LeaderID != actorID {
		return nil, xerrors.ErrNotLeader
	}
	if !domain.CanTransition(before.Status, domain.PartyArrived) {
		return nil, xerrors.ErrInvalidTransition
	}
	if len(splitMembers) == 0 || fare <= 0 {
		return nil, xerrors.ErrEmptySplit
	}
	for _, m := range splitMembers {
		if !before.HasMember(m) {
			return nil, xerrors.ErrNotMember
		}
	}

	s := domain.NewSettlement(fare, splitMembers, before.LeaderID, time.Now())
	if err := uc.parties.SetArrived(ctx, partyID, s); err != nil {
		return nil, err
	}

	after, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	uc.publishPartyWritten(ctx, before, after)
	return after, nil
}

// MarkSettled records one member's payment. The flag only ever flips false ->
// true; re-marking is rejected.
func (uc *PartyUsecase) MarkSettled(ctx context.Context, partyID, actorID, memberID string) (*domain.Party, error) {
	before, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if before.LeaderID != actorID {
		return nil, xerrors.ErrNotLeader
	}
	if before.Settlement == nil {
		return nil, xerrors.ErrSettlementMissing
	}

	updated := cloneSettlement(before.Settlement)
	if !updated.MarkSettled(memberID, time.Now()) {
		return nil, xerrors.ErrAlreadySettled
	}
	if err := uc.parties.UpdateSettlement(ctx, partyID, updated); err != nil {
		return nil, err
	}

	after, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	uc.publishPartyWritten(ctx, before, after)
	return after, nil
}

// End finishes an arrived party. Allowed with an incomplete ledger (force
// end); nobody is retroactively marked settled.
func (uc *PartyUsecase) End(ctx context.Context, partyID, actorID string) error {
	before, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return err
	}
	if before.LeaderID != actorID {
		return xerrors.ErrNotLeader
	}
	if before.Status != domain.PartyArrived {
		return xerrors.ErrInvalidTransition
	}
	if err := uc.parties.UpdateStatus(ctx, partyID, domain.PartyEnded, domain.EndReasonArrived); err != nil {
		return err
	}

	after, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return err
	}
	uc.publishPartyWritten(ctx, before, after)
	return nil
}

// Disband ends a party before arrival. Soft delete: the row stays, the status
// becomes ended, and the dispatch side treats it as a deletion (record purge
// plus disband notice).
func (uc *PartyUsecase) Disband(ctx context.Context, partyID, actorID string) error {
	before, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return err
	}
	if before.LeaderID != actorID {
		return xerrors.ErrNotLeader
	}
	if before.Status == domain.PartyEnded {
		return xerrors.ErrPartyEnded
	}
	if err := uc.parties.UpdateStatus(ctx, partyID, domain.PartyEnded, domain.EndReasonCancelled); err != nil {
		return err
	}

	uc.publish(ctx, &domain.ChangeEvent{
		Type:        domain.EventPartyDeleted,
		PartyBefore: before,
	})
	return nil
}

// Leave removes the caller from the party. The self-leave marker is written
// before the membership shrink so the watcher can tell this apart from a kick.
func (uc *PartyUsecase) Leave(ctx context.Context, partyID, userID string) error {
	before, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return err
	}
	if before.LeaderID == userID {
		return xerrors.ErrLeaderCannotLeave
	}
	if err := uc.markers.Set(ctx, partyID, userID); err != nil {
		// Worst case without the marker is a spurious kick notice; the leave
		// itself must still go through.
		log.Printf("[PARTY] leave marker write failed for %s on %s: %v", userID, partyID, err)
	}
	if err := uc.parties.RemoveMember(ctx, partyID, userID); err != nil {
		return err
	}

	after, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return err
	}
	uc.publishPartyWritten(ctx, before, after)
	return nil
}

// Kick removes a member by leader action. No marker: the watcher will see the
// shrink without one and classify it as a kick.
func (uc *PartyUsecase) Kick(ctx context.Context, partyID, actorID, memberID string) error {
	before, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return err
	}
	if before.LeaderID != actorID {
		return xerrors.ErrNotLeader
	}
	if memberID == before.LeaderID {
		return xerrors.ErrInvalidInput
	}
	if err := uc.parties.RemoveMember(ctx, partyID, memberID); err != nil {
		return err
	}

	after, err := uc.parties.GetByID(ctx, partyID)
	if err != nil {
		return err
	}
	uc.publishPartyWritten(ctx, before, after)
	return nil
}

func (uc *PartyUsecase) publishPartyWritten(ctx context.Context, before, after *domain.Party) {
	uc.publish(ctx, &domain.ChangeEvent{
		Type:        domain.EventPartyWritten,
		PartyBefore: before,
		PartyAfter:  after,
	})
}

func (uc *PartyUsecase) publish(ctx context.Context, e *domain.ChangeEvent) {
	if err := uc.pub.Publish(ctx, e); err != nil {
		// The write already happened; losing the event costs a notification,
		// failing the request would cost the user's action.
		log.Printf("⚠️ [PARTY] failed to publish %s: %v", e.Type, err)
	}
}

func cloneSettlement(s *domain.Settlement) *domain.Settlement {
	out := &domain.Settlement{
		Status:    s.Status,
		PerPerson: s.PerPerson,
		Members:   make(map[string]*domain.SettlementEntry, len(s.Members)),
		CreatedAt: s.CreatedAt,
	}
	for k, v := range s.Members {
		entry := *v
		out.Members[k] = &entry
	}
	return out
}
