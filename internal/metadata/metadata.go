// Package metadata is the read-only view of what the renderer measured on
// the last frame. Every lookup tolerates a missing entry: metadata lags one
// frame behind the edit that created an element.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
)

type LayoutSystem string

const (
	LayoutFlow LayoutSystem = "flow"
	LayoutFlex LayoutSystem = "flex"
	LayoutGrid LayoutSystem = "grid"
)

// SpecialSizeMeasurements are the layout facts the renderer derives beyond
// the computed style.
type SpecialSizeMeasurements struct {
	Position            string       `json:"position,omitempty"`
	Display             string       `json:"display,omitempty"`
	Float               string       `json:"float,omitempty"`
	Direction           string       `json:"direction,omitempty"`
	LayoutSystem        LayoutSystem `json:"layoutSystem,omitempty"`
	ParentLayoutSystem  LayoutSystem `json:"parentLayoutSystem,omitempty"`
	ParentFlexDirection string       `json:"parentFlexDirection,omitempty"`
	TextLineCount       int          `json:"textLineCount,omitempty"`
}

type ElementInstanceMetadata struct {
	ElementPath   elementpath.Path                           `json:"elementPath"`
	GlobalFrame   geometry.MaybeInfiniteRect[geometry.Canvas] `json:"globalFrame"`
	LocalFrame    geometry.MaybeInfiniteRect[geometry.Local]  `json:"localFrame"`
	ComputedStyle map[string]string                          `json:"computedStyle,omitempty"`
	Special       SpecialSizeMeasurements                    `json:"specialSizeMeasurements"`
	// ConditionValue is the branch a conditional rendered, nil when the
	// element is not a conditional.
	ConditionValue *bool `json:"conditionValue,omitempty"`
	IsFragment     bool  `json:"isFragment,omitempty"`
	IsScene        bool  `json:"isScene,omitempty"`
}

// Map is keyed by path string.
type Map map[string]*ElementInstanceMetadata

// Clone copies the map; entries are shared since they are never mutated.
func (m Map) Clone() Map {
	return maps.Clone(m)
}

func (m Map) Put(md *ElementInstanceMetadata) {
	m[md.ElementPath.String()] = md
}

// Decode reads a renderer snapshot.
func Decode(r io.Reader) (Map, error) {
	var list []*ElementInstanceMetadata
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	out := make(Map, len(list))
	for _, md := range list {
		if md == nil {
			continue
		}
		out.Put(md)
	}
	return out, nil
}

func FindElementByElementPath(m Map, p elementpath.Path) *ElementInstanceMetadata {
	if m == nil {
		return nil
	}
	return m[p.String()]
}

// IsPositionStatic treats a missing position as static, the CSS default.
func IsPositionStatic(md *ElementInstanceMetadata) bool {
	if md == nil {
		return false
	}
	return md.Special.Position == "" || md.Special.Position == "static"
}

func IsPositionAbsolute(md *ElementInstanceMetadata) bool {
	return md != nil && md.Special.Position == "absolute"
}

// GetFrameInCanvasCoords returns the measured global frame, or false when
// the element is missing or unmeasurable.
func GetFrameInCanvasCoords(p elementpath.Path, m Map) (geometry.Rect[geometry.Canvas], bool) {
	md := FindElementByElementPath(m, p)
	if md == nil {
		return geometry.Rect[geometry.Canvas]{}, false
	}
	r, err := md.GlobalFrame.Finite()
	if err != nil {
		return geometry.Rect[geometry.Canvas]{}, false
	}
	return r, true
}

func GetLocalFrame(p elementpath.Path, m Map) (geometry.Rect[geometry.Local], bool) {
	md := FindElementByElementPath(m, p)
	if md == nil {
		return geometry.Rect[geometry.Local]{}, false
	}
	r, err := md.LocalFrame.Finite()
	if err != nil {
		return geometry.Rect[geometry.Local]{}, false
	}
	return r, true
}

// GetScenesMetadata returns scene entries ordered by path.
func GetScenesMetadata(m Map) []*ElementInstanceMetadata {
	var out []*ElementInstanceMetadata
	for _, md := range m {
		if md.IsScene || elementpath.IsScenePath(md.ElementPath) {
			out = append(out, md)
		}
	}
	slices.SortFunc(out, func(a, b *ElementInstanceMetadata) int {
		return strings.Compare(a.ElementPath.String(), b.ElementPath.String())
	})
	return out
}

// IsFocusable reports whether the element can be focused for editing: it
// must be a component instance below the scene level.
func IsFocusable(doc *document.Document, m Map, p elementpath.Path) bool {
	if elementpath.IsStoryboardPath(p) || elementpath.IsScenePath(p) {
		return false
	}
	el, err := doc.FindElement(p)
	if err != nil {
		return false
	}
	return doc.IsComponentInstance(el)
}

func ParentLayoutSystem(md *ElementInstanceMetadata) LayoutSystem {
	if md == nil || md.Special.ParentLayoutSystem == "" {
		return LayoutFlow
	}
	return md.Special.ParentLayoutSystem
}

func IsFlexLayoutedContainer(md *ElementInstanceMetadata) bool {
	return md != nil && md.Special.LayoutSystem == LayoutFlex
}

// IsDisplayInline covers inline, inline-block and the other inline-level
// display values.
func IsDisplayInline(md *ElementInstanceMetadata) bool {
	if md == nil {
		return false
	}
	return strings.HasPrefix(md.Special.Display, "inline")
}

func IsRTL(md *ElementInstanceMetadata) bool {
	return md != nil && md.Special.Direction == "rtl"
}

// FlexAxis is the main axis of the parent flex container.
func FlexAxis(md *ElementInstanceMetadata) (axis geometry.Axis, reversed bool) {
	if md == nil {
		return geometry.Horizontal, false
	}
	switch md.Special.ParentFlexDirection {
	case "column":
		return geometry.Vertical, false
	case "column-reverse":
		return geometry.Vertical, true
	case "row-reverse":
		return geometry.Horizontal, true
	default:
		return geometry.Horizontal, false
	}
}

// FlowAxis is vertical for block boxes and horizontal for inline boxes;
// right-to-left text runs inline boxes backwards.
func FlowAxis(md *ElementInstanceMetadata) (axis geometry.Axis, reversed bool) {
	if IsDisplayInline(md) {
		return geometry.Horizontal, IsRTL(md)
	}
	return geometry.Vertical, false
}
