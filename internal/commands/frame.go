package commands

import (
	"fmt"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

// UpdateFrame pins an element to a canvas rectangle by writing its
// left/top/width/height relative to the nearest measured ancestor.
type UpdateFrame struct {
	base
	Target elementpath.Path              `json:"target"`
	Frame  geometry.Rect[geometry.Canvas] `json:"frame"`
}

func NewUpdateFrame(when WhenToRun, target elementpath.Path, frame geometry.Rect[geometry.Canvas]) *UpdateFrame {
	return &UpdateFrame{base: base{When: when}, Target: target, Frame: frame}
}

func (*UpdateFrame) Type() string { return "UPDATE_FRAME" }

func runUpdateFrame(s *editor.State, c *UpdateFrame) (Result, error) {
	if _, err := s.Document.FindElement(c.Target); err != nil {
		return Result{}, err
	}
	uid := c.Target.ToUID()
	local := geometry.CanvasRectToLocal(c.Frame, containingFrame(s, elementpath.Parent(c.Target)))

	values := []struct {
		prop  string
		value float64
	}{
		{"style.left", local.X},
		{"style.top", local.Y},
		{"style.width", local.Width},
		{"style.height", local.Height},
	}
	patches := make([]editor.Patch, 0, len(values))
	for _, v := range values {
		patches = append(patches, editor.DocumentPatch(document.Operation{
			Type: document.OpSetProp, UID: uid, Prop: v.prop, Value: v.value,
		}))
	}
	return Result{
		Patches:     patches,
		Description: fmt.Sprintf("Update frame of %s to %v,%v %vx%v", uid, local.X, local.Y, local.Width, local.Height),
	}, nil
}

// containingFrame is the canvas frame of p or its nearest measured
// ancestor. Fragments and conditionals have no box of their own, so the
// search walks past them; an unmeasured tree yields the canvas origin.
func containingFrame(s *editor.State, p elementpath.Path) geometry.Rect[geometry.Canvas] {
	for cur := p; !cur.IsEmpty(); cur = elementpath.Parent(cur) {
		if r, ok := metadata.GetFrameInCanvasCoords(cur, s.Metadata); ok {
			return r
		}
	}
	return geometry.Rect[geometry.Canvas]{}
}
