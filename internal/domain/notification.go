package domain

import "time"

// NotificationType is the `type` discriminator carried in every push data bag.
// Clients deep-link off these values, so they are part of the wire contract.
type NotificationType string

const (
	PartyCreated        NotificationType = "party_created"
	JoinRequestCreated  NotificationType = "join_request"
	JoinRequestAccepted NotificationType = "request_accepted"
	JoinRequestDeclined NotificationType = "request_declined"
	NotifPartyClosed         NotificationType = "party_closed"
	NotifPartyArrived        NotificationType = "party_arrived"
	NotifSettlementCompleted NotificationType = "settlement_completed"
	MemberKicked        NotificationType = "member_kicked"
	PartyDeleted        NotificationType = "party_deleted"
	ChatMessageReceived NotificationType = "chat_message"
)

// UserNotification is a per-user in-app record, written independently of
// whether the push was delivered or even attempted.
type UserNotification struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}

// PushMessage is one composed push payload for a set of recipients. Data always
// carries the type discriminator plus correlation ids (party_id, request_id...).
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}
