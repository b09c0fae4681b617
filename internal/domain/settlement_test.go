package domain

import (
	"testing"
	"time"
)

func TestNewSettlement(t *testing.T) {
	now := time.Now()
	s := NewSettlement(30000, []string{"leader", "alice", "bob"}, "leader", now)

	if s.PerPerson != 10000 {
		t.Errorf("PerPerson = %d, want 10000", s.PerPerson)
	}
	if s.Status != SettlementPending {
		t.Errorf("Status = %s, want %s", s.Status, SettlementPending)
	}
	if len(s.Members) != 3 {
		t.Fatalf("len(Members) = %d, want 3", len(s.Members))
	}
	if !s.Members["leader"].Settled {
		t.Error("leader entry should start settled")
	}
	if s.Members["alice"].Settled || s.Members["bob"].Settled {
		t.Error("non-leader entries should start unsettled")
	}
}

func TestNewSettlementIntegerFloor(t *testing.T) {
	s := NewSettlement(10000, []string{"leader", "alice", "bob"}, "leader", time.Now())
	if s.PerPerson != 3333 {
		t.Errorf("PerPerson = %d, want 3333 (integer floor)", s.PerPerson)
	}
}

func TestNewSettlementLeaderOnlySplitCompletesImmediately(t *testing.T) {
	s := NewSettlement(12000, []string{"leader"}, "leader", time.Now())
	if !s.Members["leader"].Settled {
		t.Fatal("leader entry should start settled")
	}
	// Nobody is left to mark, so a pending status could never complete.
	if s.Status != SettlementCompleted {
		t.Errorf("Status = %s, want %s", s.Status, SettlementCompleted)
	}
	if !s.AllSettled() {
		t.Error("AllSettled = false for a fully seeded ledger")
	}
}

func TestNewSettlementLeaderOutsideSplit(t *testing.T) {
	s := NewSettlement(20000, []string{"alice", "bob"}, "leader", time.Now())
	if len(s.Members) != 2 {
		t.Fatalf("len(Members) = %d, want 2", len(s.Members))
	}
	if s.Members["alice"].Settled || s.Members["bob"].Settled {
		t.Error("no entry should start settled when leader is outside the split")
	}
}

func TestAllSettled(t *testing.T) {
	var nilLedger *Settlement
	if nilLedger.AllSettled() {
		t.Error("nil ledger must report not settled")
	}
	empty := &Settlement{Members: map[string]*SettlementEntry{}}
	if empty.AllSettled() {
		t.Error("empty ledger must report not settled")
	}
}

func TestMarkSettled(t *testing.T) {
	now := time.Now()
	s := NewSettlement(30000, []string{"leader", "alice", "bob"}, "leader", now)

	if !s.MarkSettled("alice", now) {
		t.Fatal("first MarkSettled(alice) should succeed")
	}
	if s.MarkSettled("alice", now) {
		t.Error("second MarkSettled(alice) should be rejected")
	}
	if s.MarkSettled("stranger", now) {
		t.Error("MarkSettled on a non-ledger member should be rejected")
	}
	if s.Status == SettlementCompleted {
		t.Error("ledger completed with bob still unsettled")
	}

	if !s.MarkSettled("bob", now) {
		t.Fatal("MarkSettled(bob) should succeed")
	}
	if !s.AllSettled() {
		t.Error("AllSettled = false after every member settled")
	}
	if s.Status != SettlementCompleted {
		t.Errorf("Status = %s, want %s", s.Status, SettlementCompleted)
	}
}

func TestSettingsAllows(t *testing.T) {
	tests := []struct {
		name     string
		settings NotificationSettings
		typ      NotificationType
		want     bool
	}{
		{"defaults allow party", DefaultSettings(), NotifPartyArrived, true},
		{"defaults allow chat", DefaultSettings(), ChatMessageReceived, true},
		{"master switch off", NotificationSettings{Enabled: false, Party: true}, NotifPartyArrived, false},
		{"party off", NotificationSettings{Enabled: true, Party: false, Chat: true}, NotifPartyClosed, false},
		{"party off leaves chat alone", NotificationSettings{Enabled: true, Party: false, Chat: true}, ChatMessageReceived, true},
		{"request off", NotificationSettings{Enabled: true, Request: false}, JoinRequestAccepted, false},
		{"kick counts as party", NotificationSettings{Enabled: true, Party: false}, MemberKicked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.Allows(tt.typ); got != tt.want {
				t.Errorf("Allows(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}
