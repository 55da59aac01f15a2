// Package editor holds the editor state snapshot and the patches that move
// it forward. A State is never mutated once published; ApplyPatches returns
// a new one.
package editor

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

type Toast struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

const (
	ToastInfo    = "INFO"
	ToastWarning = "WARNING"
)

// Clipboard holds properties copied from an element for a later paste.
type Clipboard struct {
	Source elementpath.Path `json:"source"`
	Style  document.Props   `json:"style"`
}

type State struct {
	Document        *document.Document       `json:"document"`
	Metadata        metadata.Map             `json:"-"`
	SelectedViews   []elementpath.Path       `json:"selectedViews"`
	FocusedElement  *elementpath.Path        `json:"focusedElement,omitempty"`
	CollapsedViews  []elementpath.Path       `json:"collapsedViews,omitempty"`
	Toasts          []Toast                  `json:"toasts,omitempty"`
	Clipboard       *Clipboard               `json:"clipboard,omitempty"`
	CanvasTransform geometry.CanvasTransform `json:"canvasTransform"`

	// PreviousParseOrPrintSkipped is set when a codec result was dropped
	// because it was older than the current file version.
	PreviousParseOrPrintSkipped bool `json:"previousParseOrPrintSkipped"`
}

func NewState(doc *document.Document, md metadata.Map) *State {
	if md == nil {
		md = metadata.Map{}
	}
	return &State{
		Document:        doc,
		Metadata:        md,
		SelectedViews:   []elementpath.Path{},
		CanvasTransform: geometry.DefaultCanvasTransform(),
	}
}

// Clone copies everything a patch may touch. Metadata entries are shared.
func (s *State) Clone() *State {
	out := *s
	out.Document = s.Document.Clone()
	out.Metadata = s.Metadata.Clone()
	out.SelectedViews = slices.Clone(s.SelectedViews)
	out.CollapsedViews = slices.Clone(s.CollapsedViews)
	out.Toasts = slices.Clone(s.Toasts)
	if s.FocusedElement != nil {
		f := *s.FocusedElement
		out.FocusedElement = &f
	}
	if s.Clipboard != nil {
		c := *s.Clipboard
		c.Style = c.Style.Clone()
		out.Clipboard = &c
	}
	return &out
}

// DocumentJSON is the serialized element tree handed to the source codec.
func (s *State) DocumentJSON() ([]byte, error) {
	data, err := json.Marshal(s.Document)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

func (s *State) IsSelected(p elementpath.Path) bool {
	return elementpath.Contains(s.SelectedViews, p)
}
