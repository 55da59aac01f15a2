package strategies

import (
	"fmt"
	"math"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

// AbsoluteMove drags absolutely positioned elements by rewriting their
// left and top. Holding shift locks the move to the dominant axis.
type AbsoluteMove struct{}

func (AbsoluteMove) Name() Name { return AbsoluteMoveName }

func (AbsoluteMove) ApplicabilityScore(ctx *Context) (float64, bool) {
	if len(ctx.Selected) == 0 {
		return 0, false
	}
	for _, p := range ctx.Selected {
		md := metadata.FindElementByElementPath(ctx.State.Metadata, p)
		if !metadata.IsPositionAbsolute(md) || geometry.IsInfinityRectangle(md.LocalFrame) {
			return 0, false
		}
	}
	return 1, true
}

func (AbsoluteMove) OnSample(ctx *Context) ([]commands.Command, error) {
	drag, err := ctx.Drag()
	if err != nil {
		return nil, err
	}
	if ctx.Interaction.Modifiers.Shift {
		if math.Abs(drag.X) > math.Abs(drag.Y) {
			drag.Y = 0
		} else {
			drag.X = 0
		}
	}

	var cmds []commands.Command
	for _, p := range ctx.Selected {
		el, err := ctx.State.Document.FindElement(p)
		if err != nil {
			return nil, err
		}
		local, ok := metadata.GetLocalFrame(p, ctx.State.Metadata)
		if !ok {
			return nil, fmt.Errorf("%s: %w", p, errNotMeasured)
		}
		left, ok := el.Style.Number("left")
		if !ok {
			left = local.X
		}
		top, ok := el.Style.Number("top")
		if !ok {
			top = local.Y
		}
		cmds = append(cmds,
			commands.NewSetProperty(commands.Always, p, "style.left", left+drag.X),
			commands.NewSetProperty(commands.Always, p, "style.top", top+drag.Y),
		)
	}
	return cmds, nil
}
