package mock

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"
)

func TestGenerator_SamplesFromSets(t *testing.T) {
	g := NewGenerator(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		if id := g.ContactID(); !slices.Contains(ContactIDs, id) {
			t.Fatalf("ContactID() = %q, not a seed contact", id)
		}
		if text := g.MessageText(); !slices.Contains(Replies, text) {
			t.Fatalf("MessageText() = %q, not a canned reply", text)
		}
		if p := g.Presence(); !p.Valid() {
			t.Fatalf("Presence() = %q, invalid", p)
		}
		if n := g.UnreadCount(); n < 0 || n > 2 {
			t.Fatalf("UnreadCount() = %d, want 0..2", n)
		}
		if f := g.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64() = %v, want [0,1)", f)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(rand.NewPCG(7, 7))
	b := NewGenerator(rand.NewPCG(7, 7))

	for i := 0; i < 20; i++ {
		if a.MessageText() != b.MessageText() {
			t.Fatal("generators with the same seed diverged")
		}
	}
}

func TestSeedData(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	contacts := Contacts(now)
	if len(contacts) != len(ContactIDs) {
		t.Fatalf("len(Contacts) = %d, want %d", len(contacts), len(ContactIDs))
	}
	for i, c := range contacts {
		if c.ID != ContactIDs[i] {
			t.Errorf("contact %d ID = %q, want %q", i, c.ID, ContactIDs[i])
		}
		if !c.LastMessageTime.Before(now) {
			t.Errorf("contact %s LastMessageTime not before now", c.ID)
		}
	}

	messages := Messages(now)
	if len(messages) != 8 {
		t.Fatalf("len(Messages) = %d, want 8", len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].ContactID == messages[i-1].ContactID && messages[i].Timestamp.Before(messages[i-1].Timestamp) {
			t.Errorf("message %s is older than the one before it", messages[i].ID)
		}
	}
}
