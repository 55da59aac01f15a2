package editor

import (
	"fmt"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

type PatchKind string

const (
	PatchDocument       PatchKind = "document"
	PatchSelectedViews  PatchKind = "selectedViews"
	PatchFocusedElement PatchKind = "focusedElement"
	PatchToast          PatchKind = "toast"
	PatchClipboard      PatchKind = "clipboard"
	PatchMetadata       PatchKind = "metadata"
	PatchParseSkipped   PatchKind = "previousParseOrPrintSkipped"
)

// Patch is a declarative partial update of the editor state. Only the
// field matching Kind is read.
type Patch struct {
	Kind PatchKind `json:"kind"`

	Operation      *document.Operation `json:"operation,omitempty"`
	SelectedViews  []elementpath.Path  `json:"selectedViews,omitempty"`
	FocusedElement *elementpath.Path   `json:"focusedElement,omitempty"`
	Toast          *Toast              `json:"toast,omitempty"`
	Clipboard      *Clipboard          `json:"clipboard,omitempty"`
	Metadata       metadata.Map        `json:"-"`
	Flag           bool                `json:"flag,omitempty"`
}

func DocumentPatch(op document.Operation) Patch {
	return Patch{Kind: PatchDocument, Operation: &op}
}

func SelectionPatch(paths ...elementpath.Path) Patch {
	if paths == nil {
		paths = []elementpath.Path{}
	}
	return Patch{Kind: PatchSelectedViews, SelectedViews: paths}
}

// ApplyPatches folds patches into a copy of s in order. On error s is
// returned untouched together with the error.
func ApplyPatches(s *State, patches []Patch) (*State, error) {
	if len(patches) == 0 {
		return s, nil
	}
	next := s.Clone()
	for i, p := range patches {
		if err := next.apply(p); err != nil {
			return s, fmt.Errorf("patch %d (%s): %w", i, p.Kind, err)
		}
	}
	return next, nil
}

func (s *State) apply(p Patch) error {
	switch p.Kind {
	case PatchDocument:
		if p.Operation == nil {
			return fmt.Errorf("missing operation")
		}
		return s.Document.Apply(*p.Operation)
	case PatchSelectedViews:
		s.SelectedViews = append([]elementpath.Path{}, p.SelectedViews...)
	case PatchFocusedElement:
		if p.FocusedElement == nil {
			s.FocusedElement = nil
		} else {
			f := *p.FocusedElement
			s.FocusedElement = &f
		}
	case PatchToast:
		if p.Toast == nil {
			return fmt.Errorf("missing toast")
		}
		s.Toasts = append(s.Toasts, *p.Toast)
	case PatchClipboard:
		s.Clipboard = p.Clipboard
	case PatchMetadata:
		s.Metadata = p.Metadata.Clone()
	case PatchParseSkipped:
		s.PreviousParseOrPrintSkipped = p.Flag
	default:
		return fmt.Errorf("unknown patch kind: %s", p.Kind)
	}
	return nil
}
