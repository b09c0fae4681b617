package domain

import "time"

type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
)

// SettlementEntry tracks one member's share. The settled flag is monotonic:
// it only ever flips false -> true.
type SettlementEntry struct {
	Settled   bool       `json:"settled"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// Settlement is the fare-splitting ledger embedded in a party. Its member key
// set is captured at arrival confirmation and never re-synced afterward.
type Settlement struct {
	Status    SettlementStatus            `json:"status"`
	PerPerson int64                       `json:"per_person_amount"`
	Members   map[string]*SettlementEntry `json:"members"`
	CreatedAt time.Time                   `json:"created_at"`
}

// NewSettlement seeds the ledger at arrival confirmation. Per-person share is
// the integer floor of fare / count. The leader's entry starts settled if the
// leader is part of the split.
func NewSettlement(fare int64, splitMembers []string, leaderID string, now time.Time) *Settlement {
	s := &Settlement{
		Status:    SettlementPending,
		PerPerson: fare / int64(len(splitMembers)),
		Members:   make(map[string]*SettlementEntry, len(splitMembers)),
		CreatedAt: now,
	}
	for _, m := range splitMembers {
		entry := &SettlementEntry{}
		if m == leaderID {
			at := now
			entry.Settled = true
			entry.SettledAt = &at
		}
		s.Members[m] = entry
	}
	// A leader-only split seeds every entry settled; nobody is left to flip
	// the status later, so it completes at creation.
	if s.AllSettled() {
		s.Status = SettlementCompleted
	}
	return s
}

func (s *Settlement) AllSettled() bool {
	if s == nil || len(s.Members) == 0 {
		return false
	}
	for _, e := range s.Members {
		if !e.Settled {
			return false
		}
	}
	return true
}

// MarkSettled flips one member's flag. Returns false when the member is not in
// the ledger or is already settled.
func (s *Settlement) MarkSettled(memberID string, now time.Time) bool {
	e, ok := s.Members[memberID]
	if !ok || e.Settled {
		return false
	}
	at := now
	e.Settled = true
	e.SettledAt = &at
	if s.AllSettled() {
		s.Status = SettlementCompleted
	}
	return true
}
