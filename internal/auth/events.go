package auth

import (
	"time"

	"github.com/dvcrn/bank-api-client/internal/credentials"
)

// EventType names an authentication state change.
type EventType int

const (
	EventLoggedIn EventType = iota + 1
	EventRefreshed
	EventLoggedOut
	EventExpired
)

func (t EventType) String() string {
	switch t {
	case EventLoggedIn:
		return "logged_in"
	case EventRefreshed:
		return "refreshed"
	case EventLoggedOut:
		return "logged_out"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the state change is committed.
type Event struct {
	Type          EventType
	Authenticated bool
	Principal     *credentials.Principal
	At            time.Time
}

// subscriberBuffer is the per-subscriber backlog before events are dropped.
const subscriberBuffer = 16

// subscribe registers a listener. The returned func unsubscribes and closes
// the channel.
func (c *coordinator) subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, subscriberBuffer)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// emitLocked fans an event out without blocking; a subscriber that stopped
// draining loses events rather than stalling the coordinator.
func (c *coordinator) emitLocked(t EventType, principal *credentials.Principal) {
	ev := Event{
		Type:          t,
		Authenticated: t == EventLoggedIn || t == EventRefreshed,
		At:            time.Now(),
	}
	if principal != nil {
		cp := *principal
		ev.Principal = &cp
	}
	for id, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.log.Warn().Int("subscriber", id).Str("event", t.String()).Msg("Subscriber backlog full, event dropped")
		}
	}
}
