package domain

import "time"

type EventType string

const (
	EventPartyWritten   EventType = "party.written"
	EventPartyDeleted   EventType = "party.deleted"
	EventRequestWritten EventType = "request.written"
	EventChatMessage    EventType = "chat.message"
)

// ChangeEvent is one document mutation as seen by the dispatch side. Writers
// snapshot the document before and after the write so consumers can classify
// the delta without re-reading (and can stay idempotent under redelivery).
//
// Delivery is at-least-once: the same event may arrive more than once and
// handlers must tolerate that.
type ChangeEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	PartyBefore *Party `json:"party_before,omitempty"`
	PartyAfter  *Party `json:"party_after,omitempty"`

	RequestBefore *JoinRequest `json:"request_before,omitempty"`
	RequestAfter  *JoinRequest `json:"request_after,omitempty"`

	Chat *ChatMessage `json:"chat,omitempty"`
}
