package commands

import (
	"fmt"
	"strings"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/typeid"
)

// InsertElement adds a childless element under Parent and selects it. An
// empty Element.UID is filled with a free one derived from the name.
type InsertElement struct {
	base
	Parent  elementpath.Path `json:"parent"`
	Index   *int             `json:"index,omitempty"`
	Element document.Element `json:"element"`
}

func NewInsertElement(when WhenToRun, parent elementpath.Path, index *int, el document.Element) *InsertElement {
	return &InsertElement{base: base{When: when}, Parent: parent, Index: index, Element: el}
}

func (*InsertElement) Type() string { return "INSERT_ELEMENT" }

func runInsertElement(s *editor.State, c *InsertElement) (Result, error) {
	parent, err := s.Document.FindElement(c.Parent)
	if err != nil {
		return Result{}, err
	}
	if parent.Kind == document.KindConditional {
		return Result{}, fmt.Errorf("%w: cannot insert into conditional %s", document.ErrInvalidChildren, parent.UID)
	}

	el := c.Element.Clone()
	if el.Kind == "" {
		el.Kind = document.KindElement
	}
	if el.UID == "" {
		el.UID = typeid.DeterministicUID(s.Document.AllUIDs(), strings.ToLower(el.Name))
	} else if _, taken := s.Document.Elements[el.UID]; taken {
		return Result{}, fmt.Errorf("%w: uid %s already in use", document.ErrInvalidChildren, el.UID)
	}
	el.Children = []string{}

	return Result{
		Patches: []editor.Patch{
			editor.DocumentPatch(document.Operation{
				Type: document.OpInsert, Element: &el, ParentUID: parent.UID, Index: c.Index,
			}),
			editor.SelectionPatch(elementpath.AppendToPath(c.Parent, el.UID)),
		},
		Description: fmt.Sprintf("Insert %s into %s", el.UID, parent.UID),
	}, nil
}
