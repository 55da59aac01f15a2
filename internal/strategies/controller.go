package strategies

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
)

var ErrNoInteraction = errors.New("no interaction in progress")

type Status int

const (
	Idle Status = iota
	Selecting
	Active
	Committed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Active:
		return "active"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Controller drives one interaction at a time. Every sample is computed
// against the state captured at Start, never against the previous
// preview.
type Controller struct {
	registry []Strategy

	status      Status
	lastOutcome Status
	start       *editor.State
	ctx         *Context
	candidates  []Candidate
	active      Strategy
	batch       []commands.Command
	preview     *editor.State
}

func NewController(registry ...Strategy) *Controller {
	if len(registry) == 0 {
		registry = DefaultStrategies()
	}
	return &Controller{registry: registry}
}

func (c *Controller) Status() Status { return c.status }

// LastOutcome is Committed or Cancelled for the most recent finished
// interaction.
func (c *Controller) LastOutcome() Status { return c.lastOutcome }

// ActiveStrategy is the strategy picked for the current interaction, nil
// when none applies.
func (c *Controller) ActiveStrategy() Strategy { return c.active }

func (c *Controller) Candidates() []Candidate { return c.candidates }

// Batch is the command list of the latest accepted sample.
func (c *Controller) Batch() []commands.Command { return c.batch }

// Start captures s and picks the best strategy for the current selection.
// A running interaction is discarded.
func (c *Controller) Start(s *editor.State, at geometry.Point[geometry.Window], mods Modifiers) *editor.State {
	c.reset()
	c.status = Selecting
	c.start = s
	c.ctx = &Context{
		State:       s,
		Selected:    slices.Clone(s.SelectedViews),
		Interaction: Interaction{Start: at, Current: at, Modifiers: mods},
	}
	c.candidates = SortedApplicableStrategies(c.ctx, c.registry)
	if len(c.candidates) > 0 {
		c.active = c.candidates[0].Strategy
	}
	c.status = Active
	c.preview = s
	slog.Debug("interaction started", "strategy", c.activeName(), "candidates", Names(c.candidates))
	return s
}

// Update recomputes the batch for the pointer at `at` and returns the
// preview state. A sample that fails or panics keeps the previous batch.
func (c *Controller) Update(at geometry.Point[geometry.Window], mods Modifiers) (*editor.State, error) {
	if c.status != Active {
		return nil, ErrNoInteraction
	}
	c.ctx.Interaction.Current = at
	c.ctx.Interaction.Modifiers = mods
	if c.active == nil {
		return c.preview, nil
	}

	batch, err := safeSample(c.active, c.ctx)
	if err != nil {
		slog.Warn("strategy sample failed, keeping previous batch", "strategy", c.activeName(), "error", err)
		return c.preview, nil
	}
	preview, _, err := commands.RunAll(c.start, batch, commands.PhaseMidInteraction)
	if err != nil {
		slog.Warn("strategy batch failed, keeping previous batch", "strategy", c.activeName(), "error", err)
		return c.preview, nil
	}
	c.batch = batch
	c.preview = preview
	return preview, nil
}

// Commit applies the latest batch to the starting state in the complete
// phase and returns the controller to Idle.
func (c *Controller) Commit() (*editor.State, []commands.Result, error) {
	if c.status != Active {
		return nil, nil, ErrNoInteraction
	}
	next, results, err := commands.RunAll(c.start, c.batch, commands.PhaseComplete)
	if err != nil {
		c.finish(Cancelled)
		return next, nil, err
	}
	slog.Debug("interaction committed", "strategy", c.activeName(), "commands", len(c.batch))
	c.finish(Committed)
	return next, results, nil
}

// Cancel drops the interaction and returns the starting state unchanged.
func (c *Controller) Cancel() (*editor.State, error) {
	if c.status != Active {
		return nil, ErrNoInteraction
	}
	start := c.start
	c.finish(Cancelled)
	return start, nil
}

// Selected is the selection the current interaction works on.
func (c *Controller) Selected() []elementpath.Path {
	if c.ctx == nil {
		return nil
	}
	return c.ctx.Selected
}

func (c *Controller) finish(outcome Status) {
	c.reset()
	c.lastOutcome = outcome
}

func (c *Controller) reset() {
	c.status = Idle
	c.start = nil
	c.ctx = nil
	c.candidates = nil
	c.active = nil
	c.batch = nil
	c.preview = nil
}

func (c *Controller) activeName() Name {
	if c.active == nil {
		return ""
	}
	return c.active.Name()
}
