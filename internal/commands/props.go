package commands

import (
	"fmt"
	"strings"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
)

type SetProperty struct {
	base
	Target elementpath.Path `json:"target"`
	Prop   string           `json:"prop"`
	Value  any              `json:"value"`
}

func NewSetProperty(when WhenToRun, target elementpath.Path, prop string, value any) *SetProperty {
	return &SetProperty{base: base{When: when}, Target: target, Prop: prop, Value: value}
}

func (*SetProperty) Type() string { return "SET_PROPERTY" }

func runSetProperty(s *editor.State, c *SetProperty) (Result, error) {
	if _, err := s.Document.FindElement(c.Target); err != nil {
		return Result{}, err
	}
	uid := c.Target.ToUID()
	return Result{
		Patches: []editor.Patch{editor.DocumentPatch(document.Operation{
			Type: document.OpSetProp, UID: uid, Prop: c.Prop, Value: c.Value,
		})},
		Description: fmt.Sprintf("Set %s to %v on %s", c.Prop, c.Value, uid),
	}, nil
}

type DeleteProperties struct {
	base
	Target elementpath.Path `json:"target"`
	Props  []string         `json:"props"`
}

func NewDeleteProperties(when WhenToRun, target elementpath.Path, props ...string) *DeleteProperties {
	return &DeleteProperties{base: base{When: when}, Target: target, Props: props}
}

func (*DeleteProperties) Type() string { return "DELETE_PROPERTIES" }

func runDeleteProperties(s *editor.State, c *DeleteProperties) (Result, error) {
	if _, err := s.Document.FindElement(c.Target); err != nil {
		return Result{}, err
	}
	uid := c.Target.ToUID()
	if len(c.Props) == 0 {
		return noop(fmt.Sprintf("No properties to delete on %s", uid)), nil
	}
	return Result{
		Patches: []editor.Patch{editor.DocumentPatch(document.Operation{
			Type: document.OpDeleteProp, UID: uid, Props: c.Props,
		})},
		Description: fmt.Sprintf("Delete %s on %s", strings.Join(c.Props, ", "), uid),
	}, nil
}
