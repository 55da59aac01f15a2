package metadata

import (
	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
)

// Sibling is an element that takes part in the layout of a parent. Slot is
// the UID of the parent's direct child that holds it: the element itself,
// or the fragment or conditional it is rendered through.
type Sibling struct {
	Path     elementpath.Path
	Slot     string
	Metadata *ElementInstanceMetadata
}

// LayoutSiblings lists, in document order, the elements laid out by the
// parent of p. Fragments are flattened, conditionals contribute their
// rendered branch and null expressions are skipped.
func LayoutSiblings(doc *document.Document, m Map, p elementpath.Path) []Sibling {
	parentPath := elementpath.Parent(p)
	parent, err := doc.FindElement(parentPath)
	if err != nil {
		return nil
	}

	var out []Sibling
	for _, uid := range parent.Children {
		childPath := elementpath.AppendToPath(parentPath, uid)
		out = appendLayoutItems(out, doc, m, childPath, uid)
	}
	return out
}

func appendLayoutItems(out []Sibling, doc *document.Document, m Map, p elementpath.Path, slot string) []Sibling {
	el, ok := doc.Elements[p.ToUID()]
	if !ok {
		return out
	}
	switch el.Kind {
	case document.KindFragment:
		for _, uid := range el.Children {
			out = appendLayoutItems(out, doc, m, elementpath.AppendToPath(p, uid), slot)
		}
	case document.KindConditional:
		if branch, ok := ActiveBranch(doc, m, p); ok {
			out = appendLayoutItems(out, doc, m, branch, slot)
		}
	case document.KindExpression:
		if el.IsNullPlaceholder() {
			return out
		}
		if md := FindElementByElementPath(m, p); md != nil {
			out = append(out, Sibling{Path: p, Slot: slot, Metadata: md})
		}
	case document.KindText:
		if md := FindElementByElementPath(m, p); md != nil {
			out = append(out, Sibling{Path: p, Slot: slot, Metadata: md})
		}
	default:
		out = append(out, Sibling{Path: p, Slot: slot, Metadata: FindElementByElementPath(m, p)})
	}
	return out
}

// ActiveBranch resolves the rendered branch of the conditional at p. The
// renderer's measurement wins; otherwise a literal true/false condition is
// used.
func ActiveBranch(doc *document.Document, m Map, p elementpath.Path) (elementpath.Path, bool) {
	el, ok := doc.Elements[p.ToUID()]
	if !ok || el.Kind != document.KindConditional || len(el.Children) != 2 {
		return elementpath.Path{}, false
	}
	active := true
	if md := FindElementByElementPath(m, p); md != nil && md.ConditionValue != nil {
		active = *md.ConditionValue
	} else if el.Condition == "false" {
		active = false
	}
	if active {
		return elementpath.AppendToPath(p, el.Children[0]), true
	}
	return elementpath.AppendToPath(p, el.Children[1]), true
}

// IsInsideConditional reports whether the direct parent of p is a
// conditional expression.
func IsInsideConditional(doc *document.Document, p elementpath.Path) bool {
	parent, err := doc.FindElement(elementpath.Parent(p))
	return err == nil && parent.Kind == document.KindConditional
}
