package domain

import "time"

type PartyStatus string

const (
	PartyOpen    PartyStatus = "open"
	PartyClosed  PartyStatus = "closed"
	PartyArrived PartyStatus = "arrived"
	PartyEnded   PartyStatus = "ended"
)

type EndReason string

const (
	EndReasonArrived   EndReason = "arrived"
	EndReasonCancelled EndReason = "cancelled"
)

// Party is one ride-share unit. The leader is always present in Members
// until the party ends; termination is a status flip, never a row delete.
type Party struct {
	ID            string      `json:"id"`
	LeaderID      string      `json:"leader_id"`
	Members       []string    `json:"members"`
	Status        PartyStatus `json:"status"`
	Departure     string      `json:"departure"`
	Destination   string      `json:"destination"`
	DepartureTime time.Time   `json:"departure_time"`
	EndReason     EndReason   `json:"end_reason,omitempty"`
	Settlement    *Settlement `json:"settlement,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CanTransition is the single authority on party status changes.
// ended is terminal: nothing leaves it.
func CanTransition(from, to PartyStatus) bool {
	if from == PartyEnded {
		return false
	}
	switch to {
	case PartyOpen:
		return from == PartyClosed
	case PartyClosed:
		return from == PartyOpen
	case PartyArrived:
		return from == PartyOpen || from == PartyClosed
	case PartyEnded:
		return true // any non-ended state may be ended (disband or settlement end)
	}
	return false
}

func (p *Party) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// MembersExcept returns the member list minus the given user, preserving order.
func (p *Party) MembersExcept(userID string) []string {
	out := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		if m != userID {
			out = append(out, m)
		}
	}
	return out
}
