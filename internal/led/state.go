package led

import "sort"

// Logger defines the logging interface used by the State.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CellChange is one cell assignment: a target id and its new colour.
// Used both for inbound bulk writes and for sparse delta reporting.
type CellChange struct {
	ID    int   `json:"id"`
	Color Color `json:"color"`
}

// State holds the colour of every cell plus dirty tracking for delta
// reporting.
//
// State is not safe for concurrent use. The engine goroutine owns the
// only instance; everything outside that goroutine works from copies
// taken via Snapshot or from the engine's change events.
type State struct {
	cells  [CellCount]Color
	dirty  map[int]struct{}
	logger Logger
}

// NewState returns a State with every cell black and a clean dirty set.
// A nil logger falls back to a no-op logger.
func NewState(logger Logger) *State {
	if logger == nil {
		logger = noopLogger{}
	}
	return &State{
		dirty:  make(map[int]struct{}, CellCount),
		logger: logger,
	}
}

// SetCell assigns one cell. Out-of-range ids are dropped silently and
// logged at debug. Writing a cell's current value is not a change and
// does not mark it dirty. Returns false only for out-of-range ids.
func (s *State) SetCell(id int, c Color) bool {
	if !ValidID(id) {
		s.logger.Debug("dropped write to out-of-range cell", "id", id)
		return false
	}
	if s.cells[id] == c {
		return true
	}
	s.cells[id] = c
	s.dirty[id] = struct{}{}
	return true
}

// SetCells applies a batch of assignments. Invalid entries are skipped
// individually; the rest still apply. Returns the number applied.
func (s *State) SetCells(changes []CellChange) int {
	applied := 0
	for _, ch := range changes {
		if s.SetCell(ch.ID, ch.Color) {
			applied++
		}
	}
	return applied
}

// SetAll paints every cell, front grid and ambient ring alike.
func (s *State) SetAll(c Color) {
	for id := 0; id < CellCount; id++ {
		s.SetCell(id, c)
	}
}

// SetFront paints the front grid only.
func (s *State) SetFront(c Color) {
	for id := 0; id < FrontCount; id++ {
		s.SetCell(id, c)
	}
}

// SetAmbient paints the ambient ring only.
func (s *State) SetAmbient(c Color) {
	for id := AmbientStart; id < CellCount; id++ {
		s.SetCell(id, c)
	}
}

// Cell returns the colour of one cell. ok is false for out-of-range
// ids.
func (s *State) Cell(id int) (Color, bool) {
	if !ValidID(id) {
		return Color{}, false
	}
	return s.cells[id], true
}

// Snapshot returns an independent copy of every cell colour, indexed
// by id. Mutating the returned slice does not touch the State.
func (s *State) Snapshot() []Color {
	out := make([]Color, CellCount)
	copy(out, s.cells[:])
	return out
}

// Flush drains the dirty set and returns it as a sparse delta sorted
// by id. Returns nil when nothing changed since the previous flush.
func (s *State) Flush() []CellChange {
	if len(s.dirty) == 0 {
		return nil
	}
	out := make([]CellChange, 0, len(s.dirty))
	for id := range s.dirty {
		out = append(out, CellChange{ID: id, Color: s.cells[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	clear(s.dirty)
	return out
}

// DirtyCount returns how many cells changed since the last flush.
func (s *State) DirtyCount() int {
	return len(s.dirty)
}
