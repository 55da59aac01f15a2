// Package actions is the single entry point for editor input. One-shot
// actions run a command batch once; interaction actions drive a strategy
// session.
package actions

import (
	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
)

const (
	TypeBringForward      = "BRING_FORWARD"
	TypeSendBackward      = "SEND_BACKWARD"
	TypeBringToFront      = "BRING_TO_FRONT"
	TypeSendToBack        = "SEND_TO_BACK"
	TypeWrapInElement     = "WRAP_IN_ELEMENT"
	TypeWrapInGroup       = "WRAP_IN_GROUP"
	TypeCopyProperties    = "COPY_PROPERTIES"
	TypePasteLayout       = "PASTE_LAYOUT"
	TypePasteStyle        = "PASTE_STYLE"
	TypeSetProp           = "SET_PROP"
	TypeSetCanvasFrames   = "SET_CANVAS_FRAMES"
	TypeSetFocusedElement = "SET_FOCUSED_ELEMENT"
	TypeSelectComponents  = "SELECT_COMPONENTS"
	TypeInsertElement     = "INSERT_ELEMENT"
	TypeUpdateMetadata    = "UPDATE_METADATA"
	TypeUpdateFromWorker  = "UPDATE_FROM_WORKER"
	TypeStartInteraction  = "START_INTERACTION"
	TypeUpdateInteraction = "UPDATE_INTERACTION"
	TypeFinishInteraction = "FINISH_INTERACTION"
	TypeCancelInteraction = "CANCEL_INTERACTION"
)

// Action is implemented only by the types of this package.
type Action interface {
	Type() string
	isAction()
}

type action struct{}

func (action) isAction() {}

// ZOrder reorders every selected element among its siblings.
type ZOrder struct {
	action
	Op commands.ZOrder `json:"op"`
}

func (a ZOrder) Type() string {
	switch a.Op {
	case commands.BringForward:
		return TypeBringForward
	case commands.SendBackward:
		return TypeSendBackward
	case commands.BringToFront:
		return TypeBringToFront
	default:
		return TypeSendToBack
	}
}

func BringForward() ZOrder { return ZOrder{Op: commands.BringForward} }
func SendBackward() ZOrder { return ZOrder{Op: commands.SendBackward} }
func BringToFront() ZOrder { return ZOrder{Op: commands.BringToFront} }
func SendToBack() ZOrder   { return ZOrder{Op: commands.SendToBack} }

// WrapInElement wraps Targets, or the selection when Targets is empty.
type WrapInElement struct {
	action
	Targets []elementpath.Path   `json:"targets,omitempty"`
	Wrapper commands.WrapperKind `json:"wrapper"`
	UID     string               `json:"uid,omitempty"`
}

func (WrapInElement) Type() string { return TypeWrapInElement }

// WrapInGroup wraps the selection in a Group.
type WrapInGroup struct{ action }

func (WrapInGroup) Type() string { return TypeWrapInGroup }

// CopyProperties puts the style of the selected element on the clipboard.
type CopyProperties struct{ action }

func (CopyProperties) Type() string { return TypeCopyProperties }

// PasteLayout copies the layout keys of the clipboard style onto the
// selection.
type PasteLayout struct{ action }

func (PasteLayout) Type() string { return TypePasteLayout }

// PasteStyle replaces the visual, non-layout style of the selection with
// the clipboard's.
type PasteStyle struct{ action }

func (PasteStyle) Type() string { return TypePasteStyle }

type SetProp struct {
	action
	Target elementpath.Path `json:"target"`
	Prop   string           `json:"prop"`
	Value  any              `json:"value"`
}

func (SetProp) Type() string { return TypeSetProp }

type CanvasFrame struct {
	Path  elementpath.Path               `json:"path"`
	Frame geometry.Rect[geometry.Canvas] `json:"frame"`
}

type SetCanvasFrames struct {
	action
	Frames []CanvasFrame `json:"frames"`
}

func (SetCanvasFrames) Type() string { return TypeSetCanvasFrames }

// SetFocusedElement focuses Path, or clears focus when Path is nil.
type SetFocusedElement struct {
	action
	Path *elementpath.Path `json:"path"`
}

func (SetFocusedElement) Type() string { return TypeSetFocusedElement }

type SelectComponents struct {
	action
	Paths          []elementpath.Path `json:"paths"`
	AddToSelection bool               `json:"addToSelection,omitempty"`
}

func (SelectComponents) Type() string { return TypeSelectComponents }

type InsertElement struct {
	action
	Parent  elementpath.Path `json:"parent"`
	Index   *int             `json:"index,omitempty"`
	Element document.Element `json:"element"`
}

func (InsertElement) Type() string { return TypeInsertElement }

// UpdateMetadata replaces the renderer measurements.
type UpdateMetadata struct {
	action
	Metadata metadata.Map `json:"metadata"`
}

func (UpdateMetadata) Type() string { return TypeUpdateMetadata }

// FileUpdate is one parse result from the source codec. Version is the
// file version the codec worked from.
type FileUpdate struct {
	File     string                      `json:"file"`
	Version  int                         `json:"version"`
	Elements map[string]document.Element `json:"elements"`
}

type UpdateFromWorker struct {
	action
	Updates []FileUpdate `json:"updates"`
}

func (UpdateFromWorker) Type() string { return TypeUpdateFromWorker }

type StartInteraction struct {
	action
	Point     geometry.Point[geometry.Window] `json:"point"`
	Modifiers strategies.Modifiers            `json:"modifiers"`
}

func (StartInteraction) Type() string { return TypeStartInteraction }

type UpdateInteraction struct {
	action
	Point     geometry.Point[geometry.Window] `json:"point"`
	Modifiers strategies.Modifiers            `json:"modifiers"`
}

func (UpdateInteraction) Type() string { return TypeUpdateInteraction }

type FinishInteraction struct{ action }

func (FinishInteraction) Type() string { return TypeFinishInteraction }

type CancelInteraction struct{ action }

func (CancelInteraction) Type() string { return TypeCancelInteraction }
