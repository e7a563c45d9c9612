package program

import "fmt"

// Validate checks a program's structure. Everything here fails fast
// at Start, before any lamp state changes; loop references to missing
// steps are deliberately not an error, they are repaired instead.
func (p Program) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: program has no steps", ErrValidation)
	}

	seen := make(map[string]struct{}, len(p.Steps))
	for i, step := range p.Steps {
		if step.ID == "" {
			return fmt.Errorf("%w: step %d has an empty id", ErrValidation, i)
		}
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("%w: duplicate step id %q", ErrValidation, step.ID)
		}
		seen[step.ID] = struct{}{}

		if step.Duration != nil && *step.Duration < 0 {
			return fmt.Errorf("%w: step %q has a negative duration", ErrValidation, step.ID)
		}
		if err := step.Command.Validate(); err != nil {
			return fmt.Errorf("%w: step %q: %v", ErrValidation, step.ID, err)
		}
	}

	if p.Loop != nil && p.Loop.Count < 0 {
		return fmt.Errorf("%w: negative loop count", ErrValidation)
	}
	return nil
}

// stepIndex returns the position of a step id, or -1.
func (p Program) stepIndex(id string) int {
	for i, step := range p.Steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

// resolveLoop maps the loop window onto step indexes. References to
// missing steps are repaired, start to the first step and end to the
// last, and a window that ends up inverted collapses onto its end
// step. Repairs are warned about, never rejected.
func resolveLoop(p Program, logger Logger) (start, end int, ok bool) {
	if p.Loop == nil {
		return 0, 0, false
	}

	start = 0
	if idx := p.stepIndex(p.Loop.StartStep); idx >= 0 {
		start = idx
	} else {
		logger.Warn("loop start_step not found, repaired to first step",
			"start_step", p.Loop.StartStep,
			"program", p.Name,
		)
	}

	end = len(p.Steps) - 1
	if idx := p.stepIndex(p.Loop.EndStep); idx >= 0 {
		end = idx
	} else {
		logger.Warn("loop end_step not found, repaired to last step",
			"end_step", p.Loop.EndStep,
			"program", p.Name,
		)
	}

	if start > end {
		logger.Warn("loop window inverted, collapsing onto end step",
			"start_step", p.Loop.StartStep,
			"end_step", p.Loop.EndStep,
			"program", p.Name,
		)
		start = end
	}
	return start, end, true
}
