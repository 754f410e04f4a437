package connection

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler creates timers and reports the current time. The manager never
// calls time.AfterFunc directly, so tests can drive it with a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
func (systemScheduler) Now() time.Time                            { return time.Now() }

// SystemScheduler runs timers on the runtime clock.
var SystemScheduler Scheduler = systemScheduler{}

type timerKind int

const (
	timerHandshake timerKind = iota
	timerReconnect
	timerHeartbeat
	timerTraffic
	timerDelivery
	timerTyping
)

func (k timerKind) String() string {
	switch k {
	case timerHandshake:
		return "handshake"
	case timerReconnect:
		return "reconnect"
	case timerHeartbeat:
		return "heartbeat"
	case timerTraffic:
		return "traffic"
	case timerDelivery:
		return "delivery"
	case timerTyping:
		return "typing"
	default:
		return "unknown"
	}
}

type trackedTimer struct {
	kind  timerKind
	timer Timer
}

// timerSet tracks every outstanding timer by id. A callback whose id is no
// longer tracked must not run: it was cancelled after its goroutine started.
// Guarded by the manager mutex.
type timerSet struct {
	nextID uint64
	active map[uint64]trackedTimer
}

func newTimerSet() timerSet {
	return timerSet{active: make(map[uint64]trackedTimer)}
}

func (s *timerSet) reserve() uint64 {
	s.nextID++
	return s.nextID
}

func (s *timerSet) track(id uint64, kind timerKind, t Timer) {
	s.active[id] = trackedTimer{kind: kind, timer: t}
}

// take removes id and reports whether it was still live.
func (s *timerSet) take(id uint64) bool {
	if _, ok := s.active[id]; !ok {
		return false
	}
	delete(s.active, id)
	return true
}

// cancel stops and forgets every timer of the given kinds.
func (s *timerSet) cancel(kinds ...timerKind) int {
	n := 0
	for id, tt := range s.active {
		for _, k := range kinds {
			if tt.kind == k {
				tt.timer.Stop()
				delete(s.active, id)
				n++
				break
			}
		}
	}
	return n
}

// cancelAll stops and forgets every timer.
func (s *timerSet) cancelAll() int {
	n := len(s.active)
	for id, tt := range s.active {
		tt.timer.Stop()
		delete(s.active, id)
	}
	return n
}

func (s *timerSet) pending(kind timerKind) int {
	n := 0
	for _, tt := range s.active {
		if tt.kind == kind {
			n++
		}
	}
	return n
}

func (s *timerSet) len() int {
	return len(s.active)
}
