package engine

import (
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

// HitTest returns the deepest measured element under the window point.
// Among siblings at the same depth the one painted last wins. Scenes and
// unmeasurable elements never match.
func HitTest(s *editor.State, at geometry.Point[geometry.Window]) (elementpath.Path, bool) {
	p, err := geometry.WindowToCanvas(at, s.CanvasTransform)
	if err != nil {
		return elementpath.Path{}, false
	}

	var (
		best      *metadata.ElementInstanceMetadata
		bestDepth int
		bestIndex int
	)
	for _, md := range s.Metadata {
		if md.IsScene || !md.GlobalFrame.Contains(p) {
			continue
		}
		depth := md.ElementPath.Depth()
		index := s.Document.IndexInParent(md.ElementPath.ToUID())
		if best == nil || depth > bestDepth || (depth == bestDepth && index > bestIndex) {
			best, bestDepth, bestIndex = md, depth, index
		}
	}
	if best == nil {
		return elementpath.Path{}, false
	}
	return best.ElementPath, true
}

// SelectionBounds is the canvas rectangle around every measured selected
// element.
func SelectionBounds(s *editor.State) (geometry.Rect[geometry.Canvas], bool) {
	frames := make([]geometry.Rect[geometry.Canvas], 0, len(s.SelectedViews))
	for _, p := range s.SelectedViews {
		if r, ok := metadata.GetFrameInCanvasCoords(p, s.Metadata); ok {
			frames = append(frames, r)
		}
	}
	return geometry.BoundingRectangle(frames...)
}
