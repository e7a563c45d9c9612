package engine

import (
	"testing"

	"github.com/lumen-labs/lumen-core/internal/command"
	"github.com/lumen-labs/lumen-core/internal/led"
)

func TestSlowSubscriberResyncsWithSnapshot(t *testing.T) {
	e, _ := newTestEngine(nil)
	events, cancel := e.Subscribe(1)
	defer cancel()

	red := led.Color{R: 255}
	green := led.Color{G: 255}
	blue := led.Color{B: 255}

	// First delta fills the single-slot buffer; the second is dropped.
	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(0), Color: red})
	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(1), Color: green})

	ev := recvEvent(t, events)
	if ev.Full || len(ev.Cells) != 1 || ev.Cells[0].ID != 0 {
		t.Fatalf("first event = %+v, want delta for cell 0", ev)
	}

	// With the drop recorded, the next publish upgrades to a snapshot
	// covering everything missed.
	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(2), Color: blue})
	ev = recvEvent(t, events)
	if !ev.Full {
		t.Fatalf("resync event = %+v, want full snapshot", ev)
	}
	if len(ev.Snapshot) != led.CellCount {
		t.Fatalf("snapshot has %d cells, want %d", len(ev.Snapshot), led.CellCount)
	}
	if ev.Snapshot[0] != red || ev.Snapshot[1] != green || ev.Snapshot[2] != blue {
		t.Errorf("snapshot cells = %v %v %v, want red green blue",
			ev.Snapshot[0], ev.Snapshot[1], ev.Snapshot[2])
	}
	if ev.Seq != 3 {
		t.Errorf("resync Seq = %d, want 3", ev.Seq)
	}

	// Once caught up the subscriber is back on deltas.
	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(3), Color: red})
	ev = recvEvent(t, events)
	if ev.Full || len(ev.Cells) != 1 || ev.Cells[0].ID != 3 {
		t.Errorf("post-resync event = %+v, want delta for cell 3", ev)
	}
}

func TestSeqSharedAcrossSubscribers(t *testing.T) {
	e, _ := newTestEngine(nil)
	a, cancelA := e.Subscribe(4)
	defer cancelA()
	b, cancelB := e.Subscribe(4)
	defer cancelB()

	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(0), Color: led.White})

	evA := recvEvent(t, a)
	evB := recvEvent(t, b)
	if evA.Seq != evB.Seq {
		t.Errorf("subscriber seqs differ: %d vs %d", evA.Seq, evB.Seq)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	e, _ := newTestEngine(nil)
	events, cancel := e.Subscribe(4)

	cancel()
	if _, ok := <-events; ok {
		t.Error("channel still open after cancel")
	}

	// Cancelling twice must not panic, and publishes after cancel must
	// not reach the dead channel.
	cancel()
	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(0), Color: led.White})
}

func TestSubscribeAfterShutdown(t *testing.T) {
	e, _ := newTestEngine(nil)
	e.shutdown()

	events, cancel := e.Subscribe(4)
	defer cancel()
	if _, ok := <-events; ok {
		t.Error("subscription on a stopped engine delivered an event")
	}
}

func TestNoEventWhenNothingChanges(t *testing.T) {
	e, _ := newTestEngine(nil)

	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(0), Color: led.White})

	events, cancel := e.Subscribe(4)
	defer cancel()

	// Writing the value a cell already shows is not a change.
	e.applyCommand(command.Command{Type: command.TypeLed, ID: intPtr(0), Color: led.White})
	wantNoEvent(t, events)
}
