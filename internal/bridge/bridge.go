package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumen-labs/lumen-core/internal/command"
	"github.com/lumen-labs/lumen-core/internal/engine"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/mqtt"
	"github.com/lumen-labs/lumen-core/internal/led"
	"github.com/lumen-labs/lumen-core/internal/program"
)

const (
	// commandTimeout bounds one engine apply triggered from the broker.
	commandTimeout = 5 * time.Second

	// eventBuffer sizes the engine subscription. A slow broker link
	// costs us deltas, not correctness: once we drain the backlog the
	// engine hands over a full snapshot.
	eventBuffer = 64

	// statusBuffer absorbs scheduler transitions between relay wakeups.
	// Programs step at human speeds, so this never fills in practice.
	statusBuffer = 16

	// Commands and lifecycle events must arrive. Frame deltas are
	// superseded by the next frame, so losing one is harmless.
	qosCommand = 1
	qosDelta   = 0
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broker is the slice of the MQTT client the bridge uses. Production
// passes *mqtt.Client; tests substitute a recorder.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// snapshotMessage is the retained full-state payload. The publish at
// startup carries the active pattern; resyncs after a backlog carry
// cells only, matching the WebSocket feed.
type snapshotMessage struct {
	Seq     uint64   `json:"seq"`
	Cells   []string `json:"cells"`
	Pattern string   `json:"pattern,omitempty"`
	Paused  bool     `json:"paused,omitempty"`
}

// deltaMessage is one frame's sparse changes.
type deltaMessage struct {
	Seq   uint64      `json:"seq"`
	Cells []cellValue `json:"cells"`
}

type cellValue struct {
	ID    int    `json:"id"`
	Color string `json:"color"`
}

// ackMessage reports the outcome of one inbound command or program
// envelope on the ack topic.
type ackMessage struct {
	Success     bool      `json:"success"`
	Command     string    `json:"command,omitempty"`
	ExecutionID string    `json:"execution_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Options carries the bridge's dependencies.
type Options struct {
	// Broker publishes and subscribes lamp topics. Required.
	Broker Broker

	// Engine executes inbound commands and feeds the state topics.
	// Required.
	Engine *engine.Engine

	// Logger receives bridge activity. Optional.
	Logger Logger
}

// Bridge mirrors lamp state and control onto broker topics. Create one
// with New, wire the scheduler with SetScheduler, attach it with Start
// and detach it with Stop. Register it as a scheduler notifier to feed
// the program status topic.
type Bridge struct {
	broker    Broker
	engine    *engine.Engine
	scheduler *program.Scheduler
	logger    Logger
	topics    mqtt.Topics

	statusCh chan program.StatusEvent

	ctx       context.Context
	ctxCancel context.CancelFunc
	unsub     func()
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New validates the dependencies and builds a bridge.
func New(opts Options) (*Bridge, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		broker:   opts.Broker,
		engine:   opts.Engine,
		logger:   logger,
		statusCh: make(chan program.StatusEvent, statusBuffer),
	}, nil
}

// SetScheduler wires the program runner. The bridge is usually one of
// the scheduler's notifiers, which makes construction circular: create
// the bridge first, hand it to program.New, then call this before
// Start.
func (b *Bridge) SetScheduler(s *program.Scheduler) {
	b.scheduler = s
}

// Start subscribes the control topics, publishes the initial retained
// snapshot and begins relaying engine events to the state topics. The
// context bounds the bridge's lifetime alongside Stop.
func (b *Bridge) Start(ctx context.Context) error {
	if b.scheduler == nil {
		return fmt.Errorf("scheduler is required, call SetScheduler first")
	}
	b.ctx, b.ctxCancel = context.WithCancel(ctx)

	if err := b.broker.Subscribe(b.topics.Command(), qosCommand, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing %s: %w", b.topics.Command(), err)
	}
	if err := b.broker.Subscribe(b.topics.Program(), qosCommand, b.handleProgram); err != nil {
		return fmt.Errorf("subscribing %s: %w", b.topics.Program(), err)
	}

	b.publishInitialSnapshot()

	events, unsub := b.engine.Subscribe(eventBuffer)
	b.unsub = unsub
	b.wg.Add(1)
	go b.relay(events)

	b.logger.Info("mqtt bridge started",
		"command_topic", b.topics.Command(),
		"program_topic", b.topics.Program())
	return nil
}

// Stop detaches the bridge from the engine and stops relaying. Safe to
// call more than once. Broker subscriptions die with the client
// connection, so they are not torn down individually.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.ctxCancel != nil {
			b.ctxCancel()
		}
		if b.unsub != nil {
			b.unsub()
		}
		b.wg.Wait()
		b.logger.Info("mqtt bridge stopped")
	})
}

// ProgramEvent queues one scheduler transition for publication.
// Implements the scheduler's Notifier: calls arrive inside its
// critical section, so this must not block on the network. The relay
// goroutine does the actual publish.
func (b *Bridge) ProgramEvent(ev program.StatusEvent) {
	select {
	case b.statusCh <- ev:
	default:
		b.logger.Warn("dropping program event, status queue full",
			"kind", ev.Kind, "execution_id", ev.ExecutionID)
	}
}

// relay drains engine events and queued program transitions onto their
// topics until the bridge stops or the engine shuts down.
func (b *Bridge) relay(events <-chan engine.Event) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Full {
				b.publishSnapshot(snapshotMessage{Seq: ev.Seq, Cells: hexCells(ev.Snapshot)})
			} else {
				b.publishDelta(ev)
			}
		case st := <-b.statusCh:
			b.publishStatus(st)
		}
	}
}

// publishInitialSnapshot retains the current lamp state so subscribers
// joining before the first change still see the lamp.
func (b *Bridge) publishInitialSnapshot() {
	view, err := b.engine.View(b.ctx)
	if err != nil {
		b.logger.Error("reading state for initial snapshot", "error", err)
		return
	}
	b.publishSnapshot(snapshotMessage{
		Seq:     view.Seq,
		Cells:   hexCells(view.Cells),
		Pattern: view.Pattern,
		Paused:  view.Paused,
	})
}

func (b *Bridge) publishSnapshot(msg snapshotMessage) {
	if !b.broker.IsConnected() {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling snapshot", "error", err)
		return
	}
	if err := b.broker.PublishRetained(b.topics.StateSnapshot(), payload); err != nil {
		b.logger.Warn("publishing snapshot", "error", err)
	}
}

func (b *Bridge) publishDelta(ev engine.Event) {
	if !b.broker.IsConnected() {
		return
	}
	msg := deltaMessage{Seq: ev.Seq, Cells: make([]cellValue, len(ev.Cells))}
	for i, change := range ev.Cells {
		msg.Cells[i] = cellValue{ID: change.ID, Color: change.Color.Hex()}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling delta", "error", err)
		return
	}
	if err := b.broker.Publish(b.topics.StateDelta(), payload, qosDelta, false); err != nil {
		b.logger.Warn("publishing delta", "error", err)
	}
}

func (b *Bridge) publishStatus(ev program.StatusEvent) {
	if !b.broker.IsConnected() {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("marshalling program event", "error", err)
		return
	}
	if err := b.broker.Publish(b.topics.ProgramStatus(), payload, qosCommand, false); err != nil {
		b.logger.Warn("publishing program event", "error", err)
	}
}

// handleCommand applies one inbound command envelope and acknowledges
// it. Runs on the MQTT client's handler goroutine.
func (b *Bridge) handleCommand(_ string, payload []byte) error {
	var cmd command.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(ackMessage{Success: false, Error: "invalid JSON payload"})
		return fmt.Errorf("decoding command: %w", err)
	}
	if err := cmd.Validate(); err != nil {
		b.publishAck(ackMessage{Success: false, Command: cmd.Type, Error: err.Error()})
		return err
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	// A stop halts the program as well as the pattern, exactly as the
	// HTTP stop endpoint does.
	if cmd.Type == command.TypeStop {
		if err := b.scheduler.Cancel(ctx); err != nil && !errors.Is(err, program.ErrNotRunning) {
			b.logger.Warn("program not cancelled on stop", "error", err)
		}
	}

	if err := b.engine.Apply(ctx, cmd); err != nil {
		b.publishAck(ackMessage{Success: false, Command: cmd.Type, Error: "engine unavailable"})
		return fmt.Errorf("applying %s command: %w", cmd.Type, err)
	}

	b.publishAck(ackMessage{Success: true, Command: cmd.Type})
	return nil
}

// handleProgram starts one inbound program envelope, displacing any
// running execution, and acknowledges the outcome. Lifecycle events
// follow on the program status topic.
func (b *Bridge) handleProgram(_ string, payload []byte) error {
	var env program.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.publishAck(ackMessage{Success: false, Command: "program", Error: "invalid JSON payload"})
		return fmt.Errorf("decoding program: %w", err)
	}

	id, err := b.scheduler.Start(b.ctx, env.Program)
	if err != nil {
		b.publishAck(ackMessage{Success: false, Command: "program", Error: err.Error()})
		return fmt.Errorf("starting program %q: %w", env.Program.Name, err)
	}

	b.publishAck(ackMessage{Success: true, Command: "program", ExecutionID: id})
	return nil
}

func (b *Bridge) publishAck(ack ackMessage) {
	ack.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logger.Error("marshalling ack", "error", err)
		return
	}
	if err := b.broker.Publish(b.topics.CommandAck(), payload, qosCommand, false); err != nil {
		b.logger.Warn("publishing ack", "error", err)
	}
}

func hexCells(cells []led.Color) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Hex()
	}
	return out
}
