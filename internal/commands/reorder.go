package commands

import (
	"fmt"
	"slices"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
)

// ReorderElement moves Target to Index among its siblings. The patch
// carries the full new sibling order.
type ReorderElement struct {
	base
	Target elementpath.Path `json:"target"`
	Index  int              `json:"index"`
}

func NewReorderElement(when WhenToRun, target elementpath.Path, index int) *ReorderElement {
	return &ReorderElement{base: base{When: when}, Target: target, Index: index}
}

func (*ReorderElement) Type() string { return "REORDER_ELEMENT" }

func runReorderElement(s *editor.State, c *ReorderElement) (Result, error) {
	uid := c.Target.ToUID()
	if _, err := s.Document.FindElement(c.Target); err != nil {
		return Result{}, err
	}
	parentUID := s.Document.ParentUID(uid)
	parent, ok := s.Document.Element(parentUID)
	if !ok {
		return Result{}, fmt.Errorf("%w: parent of %s", document.ErrElementNotFound, uid)
	}
	if parent.Kind == document.KindConditional {
		return noop(fmt.Sprintf("Not reordering %s: conditional branches keep their order", uid)), nil
	}

	current := slices.Index(parent.Children, uid)
	index := max(0, min(c.Index, len(parent.Children)-1))
	if current == index {
		return noop(fmt.Sprintf("Element %s already at index %d", uid, index)), nil
	}

	return Result{
		Patches: []editor.Patch{editor.DocumentPatch(document.Operation{
			Type:     document.OpSetChildren,
			UID:      parentUID,
			Children: MoveChild(parent.Children, uid, index),
		})},
		Description: fmt.Sprintf("Reorder Element: %s to index %d", uid, index),
	}, nil
}

// MoveChild removes uid from children and reinserts it at index. Other
// children keep their relative order.
func MoveChild(children []string, uid string, index int) []string {
	rest := slices.DeleteFunc(slices.Clone(children), func(c string) bool { return c == uid })
	index = max(0, min(index, len(rest)))
	return slices.Insert(rest, index, uid)
}

type ZOrder string

const (
	BringForward ZOrder = "bring-forward"
	SendBackward ZOrder = "send-backward"
	BringToFront ZOrder = "bring-to-front"
	SendToBack   ZOrder = "send-to-back"
)

// ZOrderIndex is the sibling index target moves to for op. Later siblings
// paint on top, so the front is the end of the list.
func ZOrderIndex(doc *document.Document, target elementpath.Path, op ZOrder) (int, error) {
	uid := target.ToUID()
	if _, err := doc.FindElement(target); err != nil {
		return 0, err
	}
	parent, ok := doc.Element(doc.ParentUID(uid))
	if !ok {
		return 0, fmt.Errorf("%w: parent of %s", document.ErrElementNotFound, uid)
	}
	current := slices.Index(parent.Children, uid)
	last := len(parent.Children) - 1
	switch op {
	case BringForward:
		return min(current+1, last), nil
	case SendBackward:
		return max(current-1, 0), nil
	case BringToFront:
		return last, nil
	case SendToBack:
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown z-order %q", op)
	}
}
