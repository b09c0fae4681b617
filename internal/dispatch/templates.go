package dispatch

import (
	"fmt"

	"party-service/internal/domain"
)

// Message composition is a pure function of the triggering event's payload, so
// redelivering the same event reproduces the identical message. The data bag
// always carries the type discriminator plus correlation ids. That map is the
// wire contract clients deep-link from, keep it stable.

func composePartyCreated(p *domain.Party) *domain.PushMessage {
	return &domain.PushMessage{
		Title: "New ride party",
		Body:  fmt.Sprintf("%s → %s, departs %s", p.Departure, p.Destination, p.DepartureTime.Format("15:04")),
		Data: map[string]string{
			"type":     string(domain.PartyCreated),
			"party_id": p.ID,
		},
	}
}

func composePartyClosed(p *domain.Party) *domain.PushMessage {
	return &domain.PushMessage{
		Title: "Party closed",
		Body:  fmt.Sprintf("Recruiting for %s → %s is closed", p.Departure, p.Destination),
		Data: map[string]string{
			"type":     string(domain.NotifPartyClosed),
			"party_id": p.ID,
		},
	}
}

func composePartyArrived(p *domain.Party) *domain.PushMessage {
	body := "You have arrived. Check your fare share."
	if p.Settlement != nil {
		body = fmt.Sprintf("You have arrived. Your share is %d won.", p.Settlement.PerPerson)
	}
	return &domain.PushMessage{
		Title: "Arrived",
		Body:  body,
		Data: map[string]string{
			"type":     string(domain.NotifPartyArrived),
			"party_id": p.ID,
		},
	}
}

func composeSettlementCompleted(p *domain.Party) *domain.PushMessage {
	return &domain.PushMessage{
		Title: "Settlement complete",
		Body:  fmt.Sprintf("Everyone settled up for %s → %s", p.Departure, p.Destination),
		Data: map[string]string{
			"type":     string(domain.NotifSettlementCompleted),
			"party_id": p.ID,
		},
	}
}

func composePartyDeleted(p *domain.Party) *domain.PushMessage {
	return &domain.PushMessage{
		Title: "Party disbanded",
		Body:  fmt.Sprintf("The party %s → %s was disbanded by its leader", p.Departure, p.Destination),
		Data: map[string]string{
			"type":     string(domain.PartyDeleted),
			"party_id": p.ID,
		},
	}
}

func composeMemberKicked(p *domain.Party) *domain.PushMessage {
	return &domain.PushMessage{
		Title: "Removed from party",
		Body:  fmt.Sprintf("You were removed from the party %s → %s", p.Departure, p.Destination),
		Data: map[string]string{
			"type":     string(domain.MemberKicked),
			"party_id": p.ID,
		},
	}
}

func composeJoinRequestCreated(req *domain.JoinRequest) *domain.PushMessage {
	return &domain.PushMessage{
		Title: "New join request",
		Body:  "Someone wants to join your ride party",
		Data: map[string]string{
			"type":       string(domain.JoinRequestCreated),
			"party_id":   req.PartyID,
			"request_id": req.ID,
		},
	}
}

func composeJoinRequestResolved(req *domain.JoinRequest) *domain.PushMessage {
	t := domain.JoinRequestAccepted
	body := "Your join request was accepted"
	if req.Status == domain.RequestDeclined {
		t = domain.JoinRequestDeclined
		body = "Your join request was declined"
	}
	return &domain.PushMessage{
		Title: "Join request update",
		Body:  body,
		Data: map[string]string{
			"type":       string(t),
			"party_id":   req.PartyID,
			"request_id": req.ID,
		},
	}
}

func composeChatMessage(m *domain.ChatMessage) *domain.PushMessage {
	title := m.SenderName
	if title == "" {
		title = "New message"
	}
	return &domain.PushMessage{
		Title: title,
		Body:  m.Content,
		Data: map[string]string{
			"type":         string(domain.ChatMessageReceived),
			"party_id":     m.PartyID,
			"chat_room_id": m.PartyID,
		},
	}
}
