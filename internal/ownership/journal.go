package ownership

import (
	"fmt"
	"sync"

	"github.com/roach88/crossbind/internal/ir"
)

// EventKind names a tracker mutation.
type EventKind string

const (
	EventWrap         EventKind = "wrap"
	EventAdopt        EventKind = "adopt"   // Peer now owns Wrapper
	EventRelease      EventKind = "release" // Peer no longer owns Wrapper
	EventToNative     EventKind = "to_native"
	EventToScript     EventKind = "to_script"
	EventInvalidate   EventKind = "invalidate"
	EventDestroy      EventKind = "destroy"
	EventCollect      EventKind = "collect"
	EventKeepAlive    EventKind = "keep_alive"
	EventKeepAliveDel EventKind = "keep_alive_clear"
)

// Event is one journaled tracker mutation.
type Event struct {
	Seq     int64        `json:"seq"`
	Kind    EventKind    `json:"kind"`
	Wrapper ir.WrapperID `json:"wrapper"`
	Type    ir.TypeID    `json:"type,omitempty"`
	Peer    ir.WrapperID `json:"peer,omitempty"`
	Key     string       `json:"key,omitempty"`
}

func (e Event) String() string {
	s := fmt.Sprintf("%d %s %s", e.Seq, e.Kind, e.Wrapper)
	if e.Type != "" {
		s += " type=" + string(e.Type)
	}
	if e.Peer != "" {
		s += " peer=" + string(e.Peer)
	}
	if e.Key != "" {
		s += " key=" + e.Key
	}
	return s
}

// Journal receives every tracker mutation in seq order. The SQLite store
// implements it; MemoryJournal serves tests and scenario traces.
type Journal interface {
	Record(ev Event) error
}

// MemoryJournal keeps events in memory.
type MemoryJournal struct {
	mu     sync.Mutex
	events []Event
}

// Record appends ev.
func (j *MemoryJournal) Record(ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (j *MemoryJournal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Event(nil), j.events...)
}

// Reset drops every recorded event.
func (j *MemoryJournal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = nil
}

type discardJournal struct{}

func (discardJournal) Record(Event) error { return nil }
