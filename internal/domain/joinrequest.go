package domain

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
	RequestCanceled RequestStatus = "canceled"
)

// JoinRequest is one rider's application to join one party. Status moves
// one-way out of pending and is never revisited; rows are kept as history.
type JoinRequest struct {
	ID          string        `json:"id"`
	PartyID     string        `json:"party_id"`
	LeaderID    string        `json:"leader_id"`
	RequesterID string        `json:"requester_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (r *JoinRequest) Resolved() bool {
	return r.Status != RequestPending
}
