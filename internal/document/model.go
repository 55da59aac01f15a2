package document

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrInvalidChildren = errors.New("invalid children")
	ErrCycle           = errors.New("element cannot contain itself")
)

// StoryboardUID is the root of every project tree.
const StoryboardUID = "storyboard-entity"

type Document struct {
	Project    Project              `json:"project"`
	Storyboard string               `json:"storyboard"`
	Files      map[string]File      `json:"files"`
	Components map[string]Component `json:"components"`
	Elements   map[string]Element   `json:"elements"`
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// File is a source file known to the codec. Version grows with every parse
// or print so stale results from the codec can be detected.
type File struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// Component is a component defined in a project file, rendered by Root.
type Component struct {
	Name string `json:"name"`
	File string `json:"file"`
	Root string `json:"root"`
}

type ElementKind string

const (
	KindElement     ElementKind = "element"
	KindFragment    ElementKind = "fragment"
	KindConditional ElementKind = "conditional"
	KindExpression  ElementKind = "expression"
	KindText        ElementKind = "text"
)

// Element is one node of the arena. A conditional always has exactly two
// children: the true branch followed by the false branch.
type Element struct {
	UID       string      `json:"uid"`
	Kind      ElementKind `json:"kind"`
	Name      string      `json:"name,omitempty"`
	Parent    *string     `json:"parent"`
	Children  []string    `json:"children"`
	Props     Props       `json:"props,omitempty"`
	Style     Props       `json:"style,omitempty"`
	Text      string      `json:"text,omitempty"`
	Condition string      `json:"condition,omitempty"`
	Code      string      `json:"code,omitempty"`
}

const nullCode = "null"

// NewNullPlaceholder is the expression left in a conditional branch whose
// content moved elsewhere.
func NewNullPlaceholder(uid string) Element {
	return Element{UID: uid, Kind: KindExpression, Code: nullCode, Children: []string{}}
}

func (e Element) IsNullPlaceholder() bool {
	return e.Kind == KindExpression && e.Code == nullCode
}

func (e Element) Clone() Element {
	out := e
	if e.Parent != nil {
		p := *e.Parent
		out.Parent = &p
	}
	out.Children = slices.Clone(e.Children)
	if out.Children == nil {
		out.Children = []string{}
	}
	out.Props = e.Props.Clone()
	out.Style = e.Style.Clone()
	return out
}

// NewEmptyDocument creates a project with a storyboard, one scene and an
// empty App component.
func NewEmptyDocument(projectID, projectName, now string) *Document {
	storyboard := StoryboardUID
	sceneUID := "scene-aaa"
	appUID := "app-entity"
	rootUID := "container"
	return &Document{
		Project: Project{
			ID:        projectID,
			Name:      projectName,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Storyboard: storyboard,
		Files: map[string]File{
			AppFile: {Path: AppFile, Version: 1},
		},
		Components: map[string]Component{
			"App": {Name: "App", File: AppFile, Root: rootUID},
		},
		Elements: map[string]Element{
			storyboard: {UID: storyboard, Kind: KindElement, Name: "Storyboard", Children: []string{sceneUID}},
			sceneUID: {
				UID: sceneUID, Kind: KindElement, Name: "Scene", Parent: &storyboard, Children: []string{appUID},
				Style: Props{{Key: "width", Value: 400.0}, {Key: "height", Value: 400.0}},
			},
			appUID:  {UID: appUID, Kind: KindElement, Name: "App", Parent: &sceneUID, Children: []string{}},
			rootUID: {UID: rootUID, Kind: KindElement, Name: "div", Children: []string{}},
		},
	}
}

const AppFile = "/src/app.js"

// Clone deep-copies the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Project:    d.Project,
		Storyboard: d.Storyboard,
		Files:      maps.Clone(d.Files),
		Components: maps.Clone(d.Components),
		Elements:   make(map[string]Element, len(d.Elements)),
	}
	for uid, el := range d.Elements {
		out.Elements[uid] = el.Clone()
	}
	return out
}

func (d *Document) Element(uid string) (Element, bool) {
	el, ok := d.Elements[uid]
	return el, ok
}

// FindElement resolves a path to its element. Every UID on the path has to
// match the tree: a path whose parent chain differs from the element's real
// position, such as one taken before a reparent, is not found.
func (d *Document) FindElement(p elementpath.Path) (Element, error) {
	if !d.resolves(p) {
		return Element{}, fmt.Errorf("%w: %s", ErrElementNotFound, p)
	}
	return d.Elements[p.ToUID()], nil
}

// resolves walks p from the storyboard. Inside a part each UID is a child of
// the one before it; a new part starts at the root of the component rendered
// by the last UID of the previous part.
func (d *Document) resolves(p elementpath.Path) bool {
	parts := p.Parts()
	if len(parts) == 0 {
		return false
	}
	prev := ""
	for i, part := range parts {
		for j, uid := range part {
			if _, ok := d.Elements[uid]; !ok {
				return false
			}
			switch {
			case i == 0 && j == 0:
				if uid != d.Storyboard {
					return false
				}
			case j == 0:
				instance := d.Elements[prev]
				if !d.IsComponentInstance(instance) || d.Components[instance.Name].Root != uid {
					return false
				}
			default:
				if d.ParentUID(uid) != prev {
					return false
				}
			}
			prev = uid
		}
	}
	return true
}

// AllUIDs is the set of UIDs currently in use.
func (d *Document) AllUIDs() map[string]bool {
	out := make(map[string]bool, len(d.Elements))
	for uid := range d.Elements {
		out[uid] = true
	}
	return out
}

// IsComponentInstance reports whether el renders a project component.
func (d *Document) IsComponentInstance(el Element) bool {
	if el.Kind != KindElement {
		return false
	}
	c, ok := d.Components[el.Name]
	return ok && c.Root != ""
}

// ParentUID returns the parent of uid, or "" for roots and detached nodes.
func (d *Document) ParentUID(uid string) string {
	el, ok := d.Elements[uid]
	if !ok || el.Parent == nil {
		return ""
	}
	return *el.Parent
}

// IndexInParent returns the position of uid among its siblings, or -1.
func (d *Document) IndexInParent(uid string) int {
	parent, ok := d.Elements[d.ParentUID(uid)]
	if !ok {
		return -1
	}
	return slices.Index(parent.Children, uid)
}

// ChildPaths lists the children of the element at p. A component instance
// also yields the root of the component it renders, in a new path part.
func (d *Document) ChildPaths(p elementpath.Path) []elementpath.Path {
	el, ok := d.Elements[p.ToUID()]
	if !ok {
		return nil
	}
	out := make([]elementpath.Path, 0, len(el.Children)+1)
	if d.IsComponentInstance(el) {
		out = append(out, elementpath.AppendNewPart(p, d.Components[el.Name].Root))
	}
	for _, child := range el.Children {
		out = append(out, elementpath.AppendToPath(p, child))
	}
	return out
}

// Walk visits the tree below root depth first, in document order. Returning
// false from fn skips the subtree.
func (d *Document) Walk(root elementpath.Path, fn func(elementpath.Path, Element) bool) {
	el, ok := d.Elements[root.ToUID()]
	if !ok {
		return
	}
	if !fn(root, el) {
		return
	}
	for _, child := range d.ChildPaths(root) {
		d.Walk(child, fn)
	}
}

// StoryboardPath is the path of the tree root.
func (d *Document) StoryboardPath() elementpath.Path {
	return elementpath.New([]string{d.Storyboard})
}

// IsAncestorUID reports whether ancestor appears on the parent chain of uid.
func (d *Document) IsAncestorUID(ancestor, uid string) bool {
	seen := map[string]bool{}
	for cur := d.ParentUID(uid); cur != ""; cur = d.ParentUID(cur) {
		if cur == ancestor {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
	}
	return false
}
