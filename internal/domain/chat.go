package domain

import "time"

type ChatMessageType string

const (
	ChatText    ChatMessageType = "text"
	ChatSystem  ChatMessageType = "system"
	ChatAccount ChatMessageType = "account"
)

// ChatMessage lives in a per-party message collection. system and account
// messages are pushed but never produce in-app notification records.
type ChatMessage struct {
	ID         string          `json:"id"`
	PartyID    string          `json:"party_id"`
	SenderID   string          `json:"sender_id"`
	SenderName string          `json:"sender_name"`
	Type       ChatMessageType `json:"type"`
	Content    string          `json:"content"`
	CreatedAt  time.Time       `json:"created_at"`
}
