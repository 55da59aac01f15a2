package commands

import (
	"fmt"
	"strings"

	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
)

type UpdateSelectedViews struct {
	base
	Paths []elementpath.Path `json:"paths"`
}

func NewUpdateSelectedViews(when WhenToRun, paths ...elementpath.Path) *UpdateSelectedViews {
	return &UpdateSelectedViews{base: base{When: when}, Paths: paths}
}

func (*UpdateSelectedViews) Type() string { return "UPDATE_SELECTED_VIEWS" }

func runUpdateSelectedViews(_ *editor.State, c *UpdateSelectedViews) (Result, error) {
	return Result{
		Patches:     []editor.Patch{editor.SelectionPatch(c.Paths...)},
		Description: fmt.Sprintf("Select %s", strings.Join(elementpath.Strings(c.Paths), ", ")),
	}, nil
}

// SetFocusedElement focuses a component instance; a nil Target clears focus.
type SetFocusedElement struct {
	base
	Target *elementpath.Path `json:"target"`
}

func NewSetFocusedElement(when WhenToRun, target *elementpath.Path) *SetFocusedElement {
	return &SetFocusedElement{base: base{When: when}, Target: target}
}

func (*SetFocusedElement) Type() string { return "SET_FOCUSED_ELEMENT" }

func runSetFocusedElement(_ *editor.State, c *SetFocusedElement) (Result, error) {
	desc := "Clear focused element"
	if c.Target != nil {
		desc = fmt.Sprintf("Focus %s", c.Target)
	}
	return Result{
		Patches:     []editor.Patch{{Kind: editor.PatchFocusedElement, FocusedElement: c.Target}},
		Description: desc,
	}, nil
}

type ShowToast struct {
	base
	Toast editor.Toast `json:"toast"`
}

func NewShowToast(when WhenToRun, id, message, level string) *ShowToast {
	return &ShowToast{base: base{When: when}, Toast: editor.Toast{ID: id, Message: message, Level: level}}
}

func (*ShowToast) Type() string { return "SHOW_TOAST" }

func runShowToast(_ *editor.State, c *ShowToast) (Result, error) {
	t := c.Toast
	return Result{
		Patches:     []editor.Patch{{Kind: editor.PatchToast, Toast: &t}},
		Description: "Show toast: " + t.Message,
	}, nil
}

type UpdateClipboard struct {
	base
	Clipboard *editor.Clipboard `json:"clipboard"`
}

func NewUpdateClipboard(when WhenToRun, clip *editor.Clipboard) *UpdateClipboard {
	return &UpdateClipboard{base: base{When: when}, Clipboard: clip}
}

func (*UpdateClipboard) Type() string { return "UPDATE_CLIPBOARD" }

func runUpdateClipboard(_ *editor.State, c *UpdateClipboard) (Result, error) {
	desc := "Clear clipboard"
	if c.Clipboard != nil {
		desc = fmt.Sprintf("Copy properties of %s", c.Clipboard.Source)
	}
	return Result{
		Patches:     []editor.Patch{{Kind: editor.PatchClipboard, Clipboard: c.Clipboard}},
		Description: desc,
	}, nil
}
