package mock

import (
	"math/rand/v2"
	"sync"

	"github.com/rickgao/chatlink/internal/model"
)

// ContactIDs are the ids of the seed contacts.
var ContactIDs = []string{"1", "2", "3", "4", "5", "6", "7", "8"}

// PresenceStatuses are sampled for simulated presence changes.
var PresenceStatuses = []model.PresenceStatus{
	model.PresenceOnline,
	model.PresenceAway,
	model.PresenceOffline,
}

// Replies are the canned texts used for simulated inbound messages.
var Replies = []string{
	"Hey there!",
	"How's your day going?",
	"Just wanted to check in.",
	"Are you free to chat?",
	"Hope you're doing well!",
	"What are you up to?",
	"Long time no see!",
	"Thanks for earlier!",
	"Did you see the news?",
	"Let's catch up soon!",
}

// Generator draws simulated content. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator. A nil src seeds from the runtime.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// Float64 returns a uniform draw in [0,1).
func (g *Generator) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

// MessageText returns a random canned reply.
func (g *Generator) MessageText() string {
	return Replies[g.intN(len(Replies))]
}

// ContactID returns a random seed contact id.
func (g *Generator) ContactID() string {
	return ContactIDs[g.intN(len(ContactIDs))]
}

// Presence returns a random presence status.
func (g *Generator) Presence() model.PresenceStatus {
	return PresenceStatuses[g.intN(len(PresenceStatuses))]
}

// UnreadCount returns an initial unread count in [0,2].
func (g *Generator) UnreadCount() int {
	return g.intN(3)
}

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}
