package commands

import (
	"fmt"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

// AddContainLayoutIfNeeded makes a positioned element a containing block
// for layout so later measurements of its children stay stable.
type AddContainLayoutIfNeeded struct {
	base
	Target elementpath.Path `json:"target"`
}

func NewAddContainLayoutIfNeeded(when WhenToRun, target elementpath.Path) *AddContainLayoutIfNeeded {
	return &AddContainLayoutIfNeeded{base: base{When: when}, Target: target}
}

func (*AddContainLayoutIfNeeded) Type() string { return "ADD_CONTAIN_LAYOUT_IF_NEEDED" }

func runAddContainLayoutIfNeeded(s *editor.State, c *AddContainLayoutIfNeeded) (Result, error) {
	uid := c.Target.ToUID()
	md := metadata.FindElementByElementPath(s.Metadata, c.Target)
	if md == nil || metadata.IsPositionStatic(md) {
		return noop(fmt.Sprintf("Not adding style.contain: 'layout' to %s", uid)), nil
	}
	if _, err := s.Document.FindElement(c.Target); err != nil {
		return Result{}, err
	}
	return Result{
		Patches: []editor.Patch{editor.DocumentPatch(document.Operation{
			Type:  document.OpSetProp,
			UID:   uid,
			Prop:  "style.contain",
			Value: "layout",
		})},
		Description: fmt.Sprintf("Adding style.contain: 'layout' to %s", uid),
	}, nil
}
