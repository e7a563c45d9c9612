package engine

import "github.com/lumen-labs/lumen-core/internal/led"

// DefaultSubscriberBuffer is the event buffer used when Subscribe is
// handed a non-positive size.
const DefaultSubscriberBuffer = 32

// Event is one state-change notification. Most events carry a sparse
// delta in Cells; after a subscriber has missed events its next one
// arrives with Full set and the complete state in Snapshot instead.
// Seq increases by one per published change, so a gap tells a
// consumer it is looking at a resync.
type Event struct {
	Seq      uint64           `json:"seq"`
	Full     bool             `json:"full,omitempty"`
	Cells    []led.CellChange `json:"cells,omitempty"`
	Snapshot []led.Color      `json:"snapshot,omitempty"`
}

type subscriber struct {
	ch     chan Event
	resync bool
	drops  int
}

// Subscribe registers a change listener and returns its event channel
// plus a cancel function. The channel closes on cancel or engine
// shutdown. Delivery never blocks the engine: a subscriber that lets
// its buffer fill misses deltas and is handed a full snapshot on the
// next event instead.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	sub := &subscriber{ch: make(chan Event, buffer)}
	e.subs[id] = sub
	return sub.ch, func() { e.unsubscribe(id) }
}

func (e *Engine) unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub, ok := e.subs[id]
	if !ok {
		return
	}
	delete(e.subs, id)
	close(sub.ch)
}

// publish fans one event out to every subscriber. Runs on the engine
// goroutine; sends happen under the subscriber lock so a concurrent
// unsubscribe cannot close a channel mid-send.
func (e *Engine) publish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var full *Event
	for _, sub := range e.subs {
		out := ev
		if sub.resync {
			if full == nil {
				f := Event{Seq: ev.Seq, Full: true, Snapshot: e.state.Snapshot()}
				full = &f
			}
			out = *full
		}
		select {
		case sub.ch <- out:
			sub.resync = false
		default:
			sub.resync = true
			sub.drops++
			e.logger.Debug("subscriber lagging, will resync", "dropped", sub.drops)
		}
	}
}
