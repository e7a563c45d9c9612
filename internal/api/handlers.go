package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumen-labs/lumen-core/internal/command"
	"github.com/lumen-labs/lumen-core/internal/history"
	"github.com/lumen-labs/lumen-core/internal/led"
	"github.com/lumen-labs/lumen-core/internal/program"
	"github.com/lumen-labs/lumen-core/internal/render"
)

// successResponse is the body returned by command endpoints.
type successResponse struct {
	Success bool `json:"success"`
}

// programResponse is the body returned by POST /program. On rejection
// Success is false and Error names the first validation failure; this
// shape predates the error envelope and existing clients parse it.
type programResponse struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"execution_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// setLedRequest is the body of POST /led/{id}.
type setLedRequest struct {
	Color led.Color `json:"color"`
}

// setLedsRequest is the body of POST /leds.
type setLedsRequest struct {
	Leds []led.CellChange `json:"leds"`
}

// gradientRequest is the body of POST /gradient.
type gradientRequest struct {
	Colors    []led.Color `json:"colors"`
	Direction string      `json:"direction"`
}

// patternRequest is the body of POST /pattern.
type patternRequest struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// renderRequest is the body of POST /render.
type renderRequest struct {
	Elements []render.Element `json:"elements"`
}

// handleSetLed writes one cell. The id rides in the path; the colour
// in the body. Out-of-range ids are dropped by the engine rather than
// rejected here, keeping single-cell writes 404-free.
func (s *Server) handleSetLed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "led id must be an integer")
		return
	}

	var req setLedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.apply(w, r, command.Command{Type: command.TypeLed, ID: &id, Color: req.Color})
}

// handleSetLeds writes a batch of cells in one frame.
func (s *Server) handleSetLeds(w http.ResponseWriter, r *http.Request) {
	var req setLedsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.apply(w, r, command.Command{Type: command.TypeBulk, Leds: req.Leds})
}

// handleGradient paints a radial gradient from centre to edge.
func (s *Server) handleGradient(w http.ResponseWriter, r *http.Request) {
	var req gradientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.apply(w, r, command.Command{
		Type:      command.TypeGradient,
		Colors:    req.Colors,
		Direction: req.Direction,
	})
}

// handlePattern starts an animation. An unknown pattern name is not an
// HTTP error: the engine logs it and leaves the lamp untouched, same
// as when the name arrives inside a program step.
func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.apply(w, r, command.Command{
		Type:   command.TypePattern,
		Name:   req.Name,
		Params: req.Params,
	})
}

// handleRender draws declarative elements onto the front grid.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.apply(w, r, command.Command{Type: command.TypeRender, Elements: req.Elements})
}

// handleStop halts all activity: the running program, if any, is
// cancelled (its cancel hook runs), then the pattern clock is stopped.
// Painted cells keep their colours.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Cancel(r.Context()); err != nil && !errors.Is(err, program.ErrNotRunning) {
		s.logger.Warn("program not cancelled on stop", "error", err)
	}

	s.apply(w, r, command.Command{Type: command.TypeStop})
}

// apply sends one command to the engine and writes the standard
// success body. Engine lifecycle errors are the only failure path.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, cmd command.Command) {
	if err := s.engine.Apply(r.Context(), cmd); err != nil {
		s.logger.Error("command not applied", "type", cmd.Type, "error", err)
		writeInternalError(w, "engine unavailable")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleStartProgram validates and starts a program, displacing any
// execution already in flight.
func (s *Server) handleStartProgram(w http.ResponseWriter, r *http.Request) {
	var env program.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	execID, err := s.sched.Start(r.Context(), env.Program)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, programResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, programResponse{Success: true, ExecutionID: execID})
}

// handlePauseProgram freezes the running program. 409 when nothing is
// running.
func (s *Server) handlePauseProgram(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Pause(r.Context()); err != nil {
		writeConflict(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleResumeProgram restarts a paused program. 409 when the program
// is not paused.
func (s *Server) handleResumeProgram(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Resume(r.Context()); err != nil {
		writeConflict(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleCancelProgram cancels the active execution. 409 when nothing
// is running or paused.
func (s *Server) handleCancelProgram(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Cancel(r.Context()); err != nil {
		writeConflict(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleProgramStatus reports the scheduler's current view. After a
// terminal event it keeps describing the finished execution until the
// next start.
func (s *Server) handleProgramStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Status())
}

// geometry describes the fixed cell layout, included with snapshots so
// clients need not hardcode the lamp's shape.
type geometry struct {
	GridWidth    int `json:"grid_width"`
	GridHeight   int `json:"grid_height"`
	FrontCount   int `json:"front_count"`
	AmbientCount int `json:"ambient_count"`
	CellCount    int `json:"cell_count"`
}

// stateResponse is the body of GET /state.
type stateResponse struct {
	Seq      uint64   `json:"seq"`
	Cells    []string `json:"cells"`
	Pattern  string   `json:"pattern,omitempty"`
	Paused   bool     `json:"paused,omitempty"`
	Geometry geometry `json:"geometry"`
}

// handleState returns the full lamp snapshot: every cell colour as
// "#rrggbb" plus the grid geometry.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(r.Context())
	if err != nil {
		s.logger.Error("state view failed", "error", err)
		writeInternalError(w, "engine unavailable")
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		Seq:      view.Seq,
		Cells:    hexCells(view.Cells),
		Pattern:  view.Pattern,
		Paused:   view.Paused,
		Geometry: lampGeometry(),
	})
}

// executionsResponse is the body of GET /executions.
type executionsResponse struct {
	Executions []history.Execution `json:"executions"`
}

// handleListExecutions returns recent program executions, newest
// first. Without history storage the list is empty, not an error.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	if s.history == nil {
		writeJSON(w, http.StatusOK, executionsResponse{Executions: []history.Execution{}})
		return
	}

	execs, err := s.history.ListExecutions(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing executions failed", "error", err)
		writeInternalError(w, "failed to list executions")
		return
	}
	if execs == nil {
		execs = []history.Execution{}
	}
	writeJSON(w, http.StatusOK, executionsResponse{Executions: execs})
}

// hexCells converts engine colours to the "#rrggbb" strings used on
// the wire.
func hexCells(cells []led.Color) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Hex()
	}
	return out
}

// lampGeometry returns the fixed lamp dimensions.
func lampGeometry() geometry {
	return geometry{
		GridWidth:    led.GridWidth,
		GridHeight:   led.GridHeight,
		FrontCount:   led.FrontCount,
		AmbientCount: led.AmbientCount,
		CellCount:    led.CellCount,
	}
}
