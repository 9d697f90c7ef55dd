package interview

import (
	"sync"
	"time"
)

// Event types published to live subscribers.
const (
	EventState    = "state"
	EventQuestion = "question"
	EventFeedback = "feedback"
	EventAnswer   = "answer"
	EventEnded    = "ended"
	EventDeleted  = "deleted"
)

// Event is one message on a session's live stream.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

// Broker fans session events out to subscribers. Slow subscribers miss events rather than
// blocking the interview.
type Broker struct {
	buffer int

	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewBroker returns a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{buffer: buffer, subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for sessionID and a function that unsubscribes and
// closes it.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Event]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[sessionID]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(b.subs, sessionID)
				}
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every subscriber of e.SessionID without blocking.
func (b *Broker) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[e.SessionID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// CloseSession disconnects every subscriber of sessionID.
func (b *Broker) CloseSession(sessionID string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
}

// Subscribers reports how many listeners sessionID has.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
