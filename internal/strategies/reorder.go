package strategies

import (
	"errors"
	"fmt"
	"slices"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

var errNotMeasured = errors.New("sibling frames are not measured")

// reorderBatch moves target along axis by the drag and returns the reorder
// that puts it past every sibling whose midpoint its leading edge crossed.
func reorderBatch(ctx *Context, axis geometry.Axis, reversed bool) ([]commands.Command, error) {
	target := ctx.Selected[0]
	doc := ctx.State.Document

	frame, ok := metadata.GetFrameInCanvasCoords(target, ctx.State.Metadata)
	if !ok {
		return nil, fmt.Errorf("%s: %w", target, errNotMeasured)
	}
	drag, err := ctx.Drag()
	if err != nil {
		return nil, err
	}
	moved := frame.Offset(drag)

	siblings := metadata.LayoutSiblings(doc, ctx.State.Metadata, target)
	self := slices.IndexFunc(siblings, func(s metadata.Sibling) bool { return elementpath.Equal(s.Path, target) })
	if self < 0 {
		return nil, fmt.Errorf("%w: %s is not laid out by its parent", document.ErrElementNotFound, target)
	}

	// Flow coordinates: distances grow in the direction boxes are placed.
	sign := 1.0
	if reversed {
		sign = -1
	}
	span := func(r geometry.Rect[geometry.Canvas]) (start, end float64) {
		a, b := sign*r.Start(axis), sign*r.End(axis)
		return min(a, b), max(a, b)
	}
	movedStart, movedEnd := span(moved)

	var others []metadata.Sibling
	position := 0
	for i, s := range siblings {
		if i == self {
			continue
		}
		if s.Metadata == nil {
			return nil, fmt.Errorf("%s: %w", s.Path, errNotMeasured)
		}
		r, err := s.Metadata.GlobalFrame.Finite()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
		start, end := span(r)
		mid := (start + end) / 2
		before := i < self
		if before && movedStart >= mid || !before && movedEnd > mid {
			position++
		}
		others = append(others, s)
	}

	index, err := childIndex(doc, target, siblings[self].Slot, others, position)
	if err != nil {
		return nil, err
	}
	return []commands.Command{commands.NewReorderElement(commands.Always, target, index)}, nil
}

// childIndex maps a position among the layout siblings to an index in the
// parent's children once the target has been taken out.
func childIndex(doc *document.Document, target elementpath.Path, slot string, others []metadata.Sibling, position int) (int, error) {
	parent, err := doc.FindElement(elementpath.Parent(target))
	if err != nil {
		return 0, err
	}
	rest := slices.DeleteFunc(slices.Clone(parent.Children), func(c string) bool { return c == slot })
	if len(others) == 0 {
		return 0, nil
	}
	if position < len(others) {
		return slices.Index(rest, others[position].Slot), nil
	}
	return slices.Index(rest, others[len(others)-1].Slot) + 1, nil
}

// FlowReorder reorders an element among block or inline siblings in normal
// flow.
type FlowReorder struct{}

func (FlowReorder) Name() Name { return FlowReorderName }

func (FlowReorder) ApplicabilityScore(ctx *Context) (float64, bool) {
	if len(ctx.Selected) != 1 {
		return 0, false
	}
	target := ctx.Selected[0]
	md := metadata.FindElementByElementPath(ctx.State.Metadata, target)
	if md == nil || !metadata.IsPositionStatic(md) || metadata.ParentLayoutSystem(md) != metadata.LayoutFlow {
		return 0, false
	}
	if isMultiColumn(ctx, elementpath.Parent(target)) {
		return 0, false
	}

	siblings := metadata.LayoutSiblings(ctx.State.Document, ctx.State.Metadata, target)
	if len(siblings) < 2 {
		return 0, false
	}
	inline := metadata.IsDisplayInline(md)
	for _, s := range siblings {
		if s.Metadata == nil || geometry.IsInfinityRectangle(s.Metadata.GlobalFrame) {
			return 0, false
		}
		if metadata.IsDisplayInline(s.Metadata) != inline {
			return 0, false
		}
		if f := s.Metadata.Special.Float; f != "" && f != "none" {
			return 0, false
		}
		if s.Metadata.Special.TextLineCount > 1 {
			return 0, false
		}
	}
	return 1, true
}

func (FlowReorder) OnSample(ctx *Context) ([]commands.Command, error) {
	md := metadata.FindElementByElementPath(ctx.State.Metadata, ctx.Selected[0])
	axis, reversed := metadata.FlowAxis(md)
	return reorderBatch(ctx, axis, reversed)
}

// isMultiColumn checks the parent's computed style first and falls back to
// the style written in the document.
func isMultiColumn(ctx *Context, parent elementpath.Path) bool {
	multi := func(v string) bool { return v != "" && v != "auto" }
	if md := metadata.FindElementByElementPath(ctx.State.Metadata, parent); md != nil {
		if multi(md.ComputedStyle["columns"]) || multi(md.ComputedStyle["columnCount"]) {
			return true
		}
	}
	el, err := ctx.State.Document.FindElement(parent)
	if err != nil {
		return false
	}
	for _, key := range []string{"columns", "columnCount"} {
		if v, ok := el.Style.Get(key); ok && multi(fmt.Sprint(v)) {
			return true
		}
	}
	return false
}

// FlexReorder reorders an element along the main axis of its flex parent.
type FlexReorder struct{}

func (FlexReorder) Name() Name { return FlexReorderName }

func (FlexReorder) ApplicabilityScore(ctx *Context) (float64, bool) {
	if len(ctx.Selected) != 1 {
		return 0, false
	}
	md := metadata.FindElementByElementPath(ctx.State.Metadata, ctx.Selected[0])
	if md == nil || !metadata.IsPositionStatic(md) || metadata.ParentLayoutSystem(md) != metadata.LayoutFlex {
		return 0, false
	}
	if len(metadata.LayoutSiblings(ctx.State.Document, ctx.State.Metadata, ctx.Selected[0])) < 2 {
		return 0, false
	}
	return 1, true
}

func (FlexReorder) OnSample(ctx *Context) ([]commands.Command, error) {
	md := metadata.FindElementByElementPath(ctx.State.Metadata, ctx.Selected[0])
	axis, reversed := metadata.FlexAxis(md)
	return reorderBatch(ctx, axis, reversed)
}
