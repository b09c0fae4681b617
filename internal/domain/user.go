package domain

import "time"

// NotificationSettings is the per-user preference set: a master switch plus
// per-feature switches. Evaluated per recipient on every event, never cached.
type NotificationSettings struct {
	Enabled bool `json:"enabled"`
	Party   bool `json:"party"`
	Request bool `json:"request"`
	Chat    bool `json:"chat"`
}

// DefaultSettings applies to users who never touched their preferences.
func DefaultSettings() NotificationSettings {
	return NotificationSettings{Enabled: true, Party: true, Request: true, Chat: true}
}

// Allows reports whether a notification of the given type may be pushed to
// this user.
func (s NotificationSettings) Allows(t NotificationType) bool {
	if !s.Enabled {
		return false
	}
	switch t {
	case PartyCreated, NotifPartyClosed, NotifPartyArrived, NotifSettlementCompleted, MemberKicked, PartyDeleted:
		return s.Party
	case JoinRequestCreated, JoinRequestAccepted, JoinRequestDeclined:
		return s.Request
	case ChatMessageReceived:
		return s.Chat
	}
	return true
}

// User holds the notification-relevant slice of a user document. FCMTokens is
// replaced wholesale on login (single active device policy).
type User struct {
	ID        string               `json:"id"`
	Nickname  string               `json:"nickname"`
	FCMTokens []string             `json:"fcm_tokens"`
	Settings  NotificationSettings `json:"notification_settings"`
	CreatedAt time.Time            `json:"created_at"`
}
