// Package strategies turns a pointer gesture into command batches. A
// strategy is picked once when the interaction starts; every sample after
// that recomputes the full batch from the starting state.
package strategies

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
)

type Name string

const (
	FlowReorderName  Name = "FLOW_REORDER"
	FlexReorderName  Name = "FLEX_REORDER"
	AbsoluteMoveName Name = "ABSOLUTE_MOVE"
)

// priority breaks ties between equally scored strategies; lower wins.
var priority = map[Name]int{
	AbsoluteMoveName: 0,
	FlexReorderName:  1,
	FlowReorderName:  2,
}

type Modifiers struct {
	Shift bool `json:"shift,omitempty"`
	Alt   bool `json:"alt,omitempty"`
	Cmd   bool `json:"cmd,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
}

// Interaction is the gesture so far: where it started and where the
// pointer is now.
type Interaction struct {
	Start     geometry.Point[geometry.Window] `json:"start"`
	Current   geometry.Point[geometry.Window] `json:"current"`
	Modifiers Modifiers                       `json:"modifiers"`
}

// Context is everything a strategy may read. State is the snapshot taken
// when the interaction started.
type Context struct {
	State       *editor.State
	Selected    []elementpath.Path
	Interaction Interaction
}

// Drag is the cumulative pointer movement in canvas space.
func (c *Context) Drag() (geometry.Point[geometry.Canvas], error) {
	return geometry.WindowDeltaToCanvas(c.Interaction.Current.Sub(c.Interaction.Start), c.State.CanvasTransform)
}

type Strategy interface {
	Name() Name
	// ApplicabilityScore reports false when the strategy cannot handle
	// the selection.
	ApplicabilityScore(ctx *Context) (float64, bool)
	// OnSample returns the batch for the whole gesture up to now.
	OnSample(ctx *Context) ([]commands.Command, error)
}

// DefaultStrategies is the registration order.
func DefaultStrategies() []Strategy {
	return []Strategy{FlowReorder{}, FlexReorder{}, AbsoluteMove{}}
}

type Candidate struct {
	Strategy Strategy
	Score    float64
}

// SortedApplicableStrategies ranks the strategies that apply to ctx by
// score, then by static priority, then by registration order. A strategy
// whose check fails or panics is left out.
func SortedApplicableStrategies(ctx *Context, registry []Strategy) []Candidate {
	type ranked struct {
		Candidate
		index int
	}
	var out []ranked
	for i, s := range registry {
		score, ok := safeScore(s, ctx)
		if !ok {
			continue
		}
		out = append(out, ranked{Candidate: Candidate{Strategy: s, Score: score}, index: i})
	}
	slices.SortStableFunc(out, func(a, b ranked) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		pa, oka := priority[a.Strategy.Name()]
		pb, okb := priority[b.Strategy.Name()]
		if !oka {
			pa = len(priority)
		}
		if !okb {
			pb = len(priority)
		}
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	candidates := make([]Candidate, len(out))
	for i, r := range out {
		candidates[i] = r.Candidate
	}
	return candidates
}

// Names lists candidate names in rank order.
func Names(candidates []Candidate) []Name {
	out := make([]Name, len(candidates))
	for i, c := range candidates {
		out[i] = c.Strategy.Name()
	}
	return out
}

func safeScore(s Strategy, ctx *Context) (score float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			score, ok = 0, false
		}
	}()
	return s.ApplicabilityScore(ctx)
}

func safeSample(s Strategy, ctx *Context) (cmds []commands.Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			cmds, err = nil, fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.OnSample(ctx)
}
