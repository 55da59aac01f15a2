// Package commands holds the atomic edit operations of the canvas. Running
// a command never touches the state it is given: it returns the patches to
// apply and a description of what they do.
package commands

import (
	"fmt"

	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
)

type WhenToRun string

const (
	Always         WhenToRun = "always"
	MidInteraction WhenToRun = "mid-interaction"
	OnComplete     WhenToRun = "on-complete"
)

// Phase is the point of an interaction at which a batch is applied.
type Phase int

const (
	PhaseMidInteraction Phase = iota
	PhaseComplete
)

func (w WhenToRun) runsIn(phase Phase) bool {
	switch w {
	case MidInteraction:
		return phase == PhaseMidInteraction
	case OnComplete:
		return phase == PhaseComplete
	default:
		return true
	}
}

// Command is implemented only by the types of this package.
type Command interface {
	Type() string
	WhenToRun() WhenToRun
}

type base struct {
	When WhenToRun `json:"whenToRun,omitempty"`
}

func (b base) WhenToRun() WhenToRun {
	if b.When == "" {
		return Always
	}
	return b.When
}

type Result struct {
	Patches     []editor.Patch `json:"patches"`
	Description string         `json:"description"`
}

func noop(description string) Result {
	return Result{Patches: []editor.Patch{}, Description: description}
}

// Run computes the patches of a single command against s.
func Run(s *editor.State, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case *AddContainLayoutIfNeeded:
		return runAddContainLayoutIfNeeded(s, c)
	case *ReorderElement:
		return runReorderElement(s, c)
	case *UpdateFrame:
		return runUpdateFrame(s, c)
	case *SetProperty:
		return runSetProperty(s, c)
	case *DeleteProperties:
		return runDeleteProperties(s, c)
	case *WrapInElement:
		return runWrapInElement(s, c)
	case *InsertElement:
		return runInsertElement(s, c)
	case *UpdateSelectedViews:
		return runUpdateSelectedViews(s, c)
	case *SetFocusedElement:
		return runSetFocusedElement(s, c)
	case *ShowToast:
		return runShowToast(s, c)
	case *UpdateClipboard:
		return runUpdateClipboard(s, c)
	default:
		return Result{}, fmt.Errorf("unknown command %T", cmd)
	}
}

// RunAll folds cmds into s in order, skipping commands that do not run in
// phase. Each command sees the state left by the previous one. On error the
// original state is returned.
func RunAll(s *editor.State, cmds []Command, phase Phase) (*editor.State, []Result, error) {
	cur := s
	results := make([]Result, 0, len(cmds))
	for _, cmd := range cmds {
		if !cmd.WhenToRun().runsIn(phase) {
			continue
		}
		res, err := Run(cur, cmd)
		if err != nil {
			return s, results, fmt.Errorf("%s: %w", cmd.Type(), err)
		}
		next, err := editor.ApplyPatches(cur, res.Patches)
		if err != nil {
			return s, results, fmt.Errorf("%s: %w", cmd.Type(), err)
		}
		cur = next
		results = append(results, res)
	}
	return cur, results, nil
}

// Descriptions joins the descriptions of a batch.
func Descriptions(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Description
	}
	return out
}
