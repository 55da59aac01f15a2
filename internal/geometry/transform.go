package geometry

import "errors"

var ErrInvalidScale = errors.New("geometry: canvas scale must be positive")

// CanvasTransform relates window coordinates to canvas coordinates.
// Origin is where the canvas viewport sits in the window, Offset is the
// canvas pan and Scale the zoom factor:
//
//	window = Origin + (canvas + Offset) * Scale
type CanvasTransform struct {
	Origin Point[Window] `json:"origin"`
	Offset Point[Canvas] `json:"offset"`
	Scale  float64       `json:"scale"`
}

func DefaultCanvasTransform() CanvasTransform {
	return CanvasTransform{Scale: 1}
}

// Matrix maps canvas points to window points.
func (t CanvasTransform) Matrix() (Matrix2D, error) {
	if t.Scale <= 0 {
		return Identity(), ErrInvalidScale
	}
	return Translate(t.Origin.X, t.Origin.Y).
		Multiply(ScaleMatrix(t.Scale)).
		Multiply(Translate(t.Offset.X, t.Offset.Y)), nil
}

func CanvasToWindow(p Point[Canvas], t CanvasTransform) (Point[Window], error) {
	m, err := t.Matrix()
	if err != nil {
		return Point[Window]{}, err
	}
	x, y := m.TransformPoint(p.X, p.Y)
	return Pt[Window](x, y), nil
}

func WindowToCanvas(p Point[Window], t CanvasTransform) (Point[Canvas], error) {
	m, err := t.Matrix()
	if err != nil {
		return Point[Canvas]{}, err
	}
	inv, ok := m.Invert()
	if !ok {
		return Point[Canvas]{}, ErrInvalidScale
	}
	x, y := inv.TransformPoint(p.X, p.Y)
	return Pt[Canvas](x, y), nil
}

// WindowDeltaToCanvas converts a drag distance; pan does not apply.
func WindowDeltaToCanvas(d Point[Window], t CanvasTransform) (Point[Canvas], error) {
	if t.Scale <= 0 {
		return Point[Canvas]{}, ErrInvalidScale
	}
	return Pt[Canvas](d.X/t.Scale, d.Y/t.Scale), nil
}

// CanvasToLocal expresses p relative to the origin of a parent frame.
func CanvasToLocal(p Point[Canvas], parent Rect[Canvas]) Point[Local] {
	return Pt[Local](p.X-parent.X, p.Y-parent.Y)
}

func LocalToCanvas(p Point[Local], parent Rect[Canvas]) Point[Canvas] {
	return Pt[Canvas](p.X+parent.X, p.Y+parent.Y)
}

func CanvasRectToLocal(r Rect[Canvas], parent Rect[Canvas]) Rect[Local] {
	o := CanvasToLocal(r.Origin(), parent)
	return NewRect[Local](o.X, o.Y, r.Width, r.Height)
}
