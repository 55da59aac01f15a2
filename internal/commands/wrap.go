package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
	"github.com/canvasforge/canvasforge/backend-go/internal/typeid"
)

type WrapperKind string

const (
	WrapperDiv   WrapperKind = "div"
	WrapperGroup WrapperKind = "Group"
)

const GroupUnsupportedMessage = "Only simple JSX Elements can be wrapped into Groups for now 🙇"

// WrapInElement moves Targets into a new wrapper element inserted where the
// first of them was. A Group wrapper takes the bounding box of the targets
// and their positions are rewritten relative to it.
type WrapInElement struct {
	base
	Targets    []elementpath.Path `json:"targets"`
	Wrapper    WrapperKind        `json:"wrapper"`
	WrapperUID string             `json:"wrapperUid,omitempty"`
}

func NewWrapInElement(when WhenToRun, targets []elementpath.Path, wrapper WrapperKind, wrapperUID string) *WrapInElement {
	return &WrapInElement{base: base{When: when}, Targets: targets, Wrapper: wrapper, WrapperUID: wrapperUID}
}

func (*WrapInElement) Type() string { return "WRAP_IN_ELEMENT" }

type positioned struct {
	uid      string
	frame    geometry.Rect[geometry.Canvas]
	absolute bool
}

func runWrapInElement(s *editor.State, c *WrapInElement) (Result, error) {
	doc := s.Document
	if len(c.Targets) == 0 {
		return noop("Nothing to wrap"), nil
	}

	targets, err := orderTargets(doc, c.Targets)
	if err != nil {
		return Result{}, err
	}

	if c.Wrapper == WrapperGroup {
		for _, t := range targets {
			el, _ := doc.FindElement(t)
			if el.Kind != document.KindElement && el.Kind != document.KindFragment {
				return Result{
					Patches: []editor.Patch{{Kind: editor.PatchToast, Toast: &editor.Toast{
						ID:      "wrap-in-group-unsupported",
						Message: GroupUnsupportedMessage,
						Level:   editor.ToastWarning,
					}}},
					Description: fmt.Sprintf("Cannot wrap %s in a Group", t.ToUID()),
				}, nil
			}
		}
	}

	parentPath := elementpath.Parent(targets[0])
	if len(targets) > 1 {
		parentPath = elementpath.CommonAncestor(targets)
	}
	for _, t := range targets {
		if len(t.Parts()) != len(parentPath.Parts()) {
			return Result{}, fmt.Errorf("%w: %s is a component root", document.ErrInvalidChildren, t)
		}
	}
	parent, err := doc.FindElement(parentPath)
	if err != nil {
		return Result{}, err
	}

	var items []positioned
	if c.Wrapper == WrapperGroup {
		var ok bool
		items, ok = positionedItems(s, targets)
		if !ok {
			return noop("Not wrapping in Group: targets are not measured yet"), nil
		}
	}

	taken := doc.AllUIDs()
	wrapperUID := c.WrapperUID
	if wrapperUID == "" || taken[wrapperUID] {
		prefix := strings.ToLower(string(c.Wrapper))
		if prefix == "" {
			prefix = string(WrapperDiv)
		}
		wrapperUID = typeid.DeterministicUID(taken, prefix)
	}
	taken[wrapperUID] = true

	wrapper := document.Element{
		UID:      wrapperUID,
		Kind:     document.KindElement,
		Name:     string(WrapperDiv),
		Children: []string{},
		Props:    document.Props{{Key: "data-uid", Value: wrapperUID}},
	}

	var childPatches []editor.Patch
	if c.Wrapper == WrapperGroup {
		wrapper.Name = string(WrapperGroup)
		wrapper.Style, childPatches = groupLayout(items, containingFrame(s, parentPath))
	} else if !allStatic(s, targets) {
		wrapper.Style = document.Props{{Key: "position", Value: "absolute"}}
	}

	insert := document.Operation{Type: document.OpInsert, Element: &wrapper, ParentUID: parent.UID}
	if parent.Kind == document.KindConditional {
		insert.ReplaceUID = targets[0].ToUID()
	} else {
		insert.Index = document.IntPtr(insertionIndex(doc, parent, targets))
	}
	patches := []editor.Patch{editor.DocumentPatch(insert)}

	for i, t := range targets {
		uid := t.ToUID()
		oldParent, _ := doc.Element(doc.ParentUID(uid))
		replacedByWrapper := i == 0 && insert.ReplaceUID == uid
		if oldParent.Kind == document.KindConditional && !replacedByWrapper {
			nullUID := typeid.DeterministicUID(taken, uid+"-null")
			taken[nullUID] = true
			null := document.NewNullPlaceholder(nullUID)
			patches = append(patches, editor.DocumentPatch(document.Operation{
				Type: document.OpInsert, Element: &null, ParentUID: oldParent.UID, ReplaceUID: uid,
			}))
		}
		patches = append(patches, editor.DocumentPatch(document.Operation{
			Type: document.OpReparent, UID: uid, NewParentUID: wrapperUID,
		}))
	}
	patches = append(patches, childPatches...)

	wrapperPath := elementpath.AppendToPath(parentPath, wrapperUID)
	patches = append(patches, editor.SelectionPatch(wrapperPath))

	uids := make([]string, len(targets))
	for i, t := range targets {
		uids[i] = t.ToUID()
	}
	return Result{
		Patches:     patches,
		Description: fmt.Sprintf("Wrap %s in %s %s", strings.Join(uids, ", "), c.Wrapper, wrapperUID),
	}, nil
}

// orderTargets drops targets nested in other targets and sorts the rest in
// document order.
func orderTargets(doc *document.Document, in []elementpath.Path) ([]elementpath.Path, error) {
	order := map[string]int{}
	n := 0
	doc.Walk(doc.StoryboardPath(), func(p elementpath.Path, _ document.Element) bool {
		order[p.String()] = n
		n++
		return true
	})

	var out []elementpath.Path
	for _, t := range in {
		if _, ok := order[t.String()]; !ok {
			return nil, fmt.Errorf("%w: %s", document.ErrElementNotFound, t)
		}
		nested := slices.ContainsFunc(in, func(o elementpath.Path) bool { return elementpath.IsDescendantOf(t, o) })
		if !nested && !elementpath.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b elementpath.Path) int { return order[a.String()] - order[b.String()] })
	return out, nil
}

// insertionIndex is the slot of the first target that is a direct child of
// parent. Without one the wrapper goes right after the child holding the
// first target.
func insertionIndex(doc *document.Document, parent document.Element, targets []elementpath.Path) int {
	for _, t := range targets {
		if idx := slices.Index(parent.Children, t.ToUID()); idx >= 0 {
			return idx
		}
	}
	for uid := targets[0].ToUID(); uid != ""; uid = doc.ParentUID(uid) {
		if doc.ParentUID(uid) == parent.UID {
			return slices.Index(parent.Children, uid) + 1
		}
	}
	return len(parent.Children)
}

// positionedItems returns the boxes a Group has to reposition: the targets
// themselves, or the children of a targeted fragment.
func positionedItems(s *editor.State, targets []elementpath.Path) ([]positioned, bool) {
	var out []positioned
	var visit func(p elementpath.Path) bool
	visit = func(p elementpath.Path) bool {
		el, err := s.Document.FindElement(p)
		if err != nil {
			return false
		}
		if el.Kind == document.KindFragment {
			for _, child := range el.Children {
				if !visit(elementpath.AppendToPath(p, child)) {
					return false
				}
			}
			return true
		}
		md := metadata.FindElementByElementPath(s.Metadata, p)
		frame, ok := metadata.GetFrameInCanvasCoords(p, s.Metadata)
		if !ok {
			return false
		}
		out = append(out, positioned{uid: el.UID, frame: frame, absolute: metadata.IsPositionAbsolute(md)})
		return true
	}
	for _, t := range targets {
		if !visit(t) {
			return nil, false
		}
	}
	return out, len(out) > 0
}

// groupLayout sizes the Group to the bounding box of items. Absolutely
// positioned items keep the Group absolute at the box origin; items taken
// out of flow become absolute inside a Group that contains their layout.
func groupLayout(items []positioned, parentFrame geometry.Rect[geometry.Canvas]) (document.Props, []editor.Patch) {
	frames := make([]geometry.Rect[geometry.Canvas], len(items))
	allAbsolute := true
	for i, it := range items {
		frames[i] = it.frame
		allAbsolute = allAbsolute && it.absolute
	}
	bounds, _ := geometry.BoundingRectangle(frames...)
	local := geometry.CanvasRectToLocal(bounds, parentFrame)

	var style document.Props
	if allAbsolute {
		style = document.Props{
			{Key: "position", Value: "absolute"},
			{Key: "left", Value: local.X},
			{Key: "top", Value: local.Y},
			{Key: "width", Value: local.Width},
			{Key: "height", Value: local.Height},
		}
	} else {
		style = document.Props{
			{Key: "contain", Value: "layout"},
			{Key: "width", Value: local.Width},
			{Key: "height", Value: local.Height},
		}
	}

	var patches []editor.Patch
	for _, it := range items {
		offset := geometry.RectangleDifference(bounds, it.frame)
		if !it.absolute {
			patches = append(patches, editor.DocumentPatch(document.Operation{
				Type: document.OpSetProp, UID: it.uid, Prop: "style.position", Value: "absolute",
			}))
		}
		patches = append(patches,
			editor.DocumentPatch(document.Operation{Type: document.OpSetProp, UID: it.uid, Prop: "style.left", Value: offset.X}),
			editor.DocumentPatch(document.Operation{Type: document.OpSetProp, UID: it.uid, Prop: "style.top", Value: offset.Y}),
		)
	}
	return style, patches
}

// allStatic reports whether every target is measured and in normal flow.
func allStatic(s *editor.State, targets []elementpath.Path) bool {
	for _, t := range targets {
		md := metadata.FindElementByElementPath(s.Metadata, t)
		if md == nil || !metadata.IsPositionStatic(md) {
			return false
		}
	}
	return true
}
