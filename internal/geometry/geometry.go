// Package geometry holds point and rectangle algebra for the three
// coordinate spaces the editor works in. Space is a phantom type parameter so
// that a window point can never be passed where a canvas point is expected.
package geometry

import (
	"encoding/json"
	"errors"
	"math"
)

// ErrInfinityRectangle is returned when arithmetic is attempted on a
// rectangle that could not be measured.
var ErrInfinityRectangle = errors.New("geometry: infinity rectangle")

type (
	Window struct{}
	Canvas struct{}
	Local  struct{}
)

type Space interface {
	Window | Canvas | Local
}

type Point[S Space] struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Pt[S Space](x, y float64) Point[S] {
	return Point[S]{X: x, Y: y}
}

func (p Point[S]) Add(o Point[S]) Point[S] { return Point[S]{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point[S]) Sub(o Point[S]) Point[S] { return Point[S]{X: p.X - o.X, Y: p.Y - o.Y} }

func (p Point[S]) Scale(s float64) Point[S] {
	return Point[S]{X: p.X * s, Y: p.Y * s}
}

func (p Point[S]) Magnitude() float64 {
	return math.Hypot(p.X, p.Y)
}

// Along returns the coordinate of p on axis.
func (p Point[S]) Along(axis Axis) float64 {
	if axis == Horizontal {
		return p.X
	}
	return p.Y
}

type Axis int

const (
	Vertical Axis = iota
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

type Rect[S Space] struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func NewRect[S Space](x, y, width, height float64) Rect[S] {
	return Rect[S]{X: x, Y: y, Width: width, Height: height}
}

func (r Rect[S]) Left() float64   { return r.X }
func (r Rect[S]) Top() float64    { return r.Y }
func (r Rect[S]) Right() float64  { return r.X + r.Width }
func (r Rect[S]) Bottom() float64 { return r.Y + r.Height }

func (r Rect[S]) Origin() Point[S] { return Point[S]{X: r.X, Y: r.Y} }

func (r Rect[S]) Center() Point[S] {
	return Point[S]{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// IsEmpty returns true if the rectangle has zero or negative area.
func (r Rect[S]) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Start and End are the low and high edges of r on axis.
func (r Rect[S]) Start(axis Axis) float64 {
	if axis == Horizontal {
		return r.Left()
	}
	return r.Top()
}

func (r Rect[S]) End(axis Axis) float64 {
	if axis == Horizontal {
		return r.Right()
	}
	return r.Bottom()
}

func (r Rect[S]) Mid(axis Axis) float64 {
	return (r.Start(axis) + r.End(axis)) / 2
}

// Contains checks if a point is inside the rectangle, edges included.
func (r Rect[S]) Contains(p Point[S]) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Top() && p.Y <= r.Bottom()
}

// Intersects reports whether the interiors of r and o overlap.
func (r Rect[S]) Intersects(o Rect[S]) bool {
	return r.Left() < o.Right() && o.Left() < r.Right() && r.Top() < o.Bottom() && o.Top() < r.Bottom()
}

// Union returns the smallest rectangle containing both.
func (r Rect[S]) Union(o Rect[S]) Rect[S] {
	minX := min(r.Left(), o.Left())
	minY := min(r.Top(), o.Top())
	maxX := max(r.Right(), o.Right())
	maxY := max(r.Bottom(), o.Bottom())
	return Rect[S]{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r Rect[S]) Offset(d Point[S]) Rect[S] {
	return Rect[S]{X: r.X + d.X, Y: r.Y + d.Y, Width: r.Width, Height: r.Height}
}

// Overlap is the length shared by r and o on axis, zero when disjoint.
func (r Rect[S]) Overlap(o Rect[S], axis Axis) float64 {
	return max(0, min(r.End(axis), o.End(axis))-max(r.Start(axis), o.Start(axis)))
}

type Side int

const (
	SideNone Side = iota
	SideBefore
	SideAfter
)

// SideOf tells on which side of r the rectangle o lies along axis. Rects that
// overlap on the axis have no side.
func (r Rect[S]) SideOf(o Rect[S], axis Axis) Side {
	switch {
	case o.End(axis) <= r.Start(axis):
		return SideBefore
	case o.Start(axis) >= r.End(axis):
		return SideAfter
	default:
		return SideNone
	}
}

// RectangleDifference is the translation that moves from's origin onto to's.
func RectangleDifference[S Space](from, to Rect[S]) Point[S] {
	return to.Origin().Sub(from.Origin())
}

// BoundingRectangle is the union of rects. ok is false for an empty list.
func BoundingRectangle[S Space](rects ...Rect[S]) (bounds Rect[S], ok bool) {
	if len(rects) == 0 {
		return Rect[S]{}, false
	}
	bounds = rects[0]
	for _, r := range rects[1:] {
		bounds = bounds.Union(r)
	}
	return bounds, true
}

// MaybeInfiniteRect is a measured rectangle or the infinity sentinel used
// for elements that cannot be measured. The rectangle is only reachable
// through Finite.
type MaybeInfiniteRect[S Space] struct {
	rect     Rect[S]
	infinite bool
}

// maybeInfiniteJSON keeps the renderer's flat wire shape.
type maybeInfiniteJSON struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Infinite bool    `json:"infinite,omitempty"`
}

func FiniteRect[S Space](r Rect[S]) MaybeInfiniteRect[S] {
	return MaybeInfiniteRect[S]{rect: r}
}

func InfinityRect[S Space]() MaybeInfiniteRect[S] {
	return MaybeInfiniteRect[S]{infinite: true}
}

func IsInfinityRectangle[S Space](r MaybeInfiniteRect[S]) bool {
	return r.infinite
}

// Finite unwraps a measured rectangle.
func (m MaybeInfiniteRect[S]) Finite() (Rect[S], error) {
	if m.infinite {
		return Rect[S]{}, ErrInfinityRectangle
	}
	return m.rect, nil
}

// Contains is always false for the infinity rectangle.
func (m MaybeInfiniteRect[S]) Contains(p Point[S]) bool {
	return !m.infinite && m.rect.Contains(p)
}

// Intersects is always false when either side is infinite.
func (m MaybeInfiniteRect[S]) Intersects(o MaybeInfiniteRect[S]) bool {
	return !m.infinite && !o.infinite && m.rect.Intersects(o.rect)
}

func (m MaybeInfiniteRect[S]) MarshalJSON() ([]byte, error) {
	if m.infinite {
		return json.Marshal(maybeInfiniteJSON{Infinite: true})
	}
	return json.Marshal(maybeInfiniteJSON{X: m.rect.X, Y: m.rect.Y, Width: m.rect.Width, Height: m.rect.Height})
}

func (m *MaybeInfiniteRect[S]) UnmarshalJSON(data []byte) error {
	var w maybeInfiniteJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Infinite {
		*m = InfinityRect[S]()
		return nil
	}
	*m = FiniteRect(NewRect[S](w.X, w.Y, w.Width, w.Height))
	return nil
}

func (m MaybeInfiniteRect[S]) Offset(d Point[S]) (MaybeInfiniteRect[S], error) {
	r, err := m.Finite()
	if err != nil {
		return m, err
	}
	return FiniteRect(r.Offset(d)), nil
}

// BoundingMaybeInfinite fails when any input is the infinity rectangle.
func BoundingMaybeInfinite[S Space](rects ...MaybeInfiniteRect[S]) (Rect[S], error) {
	finite := make([]Rect[S], 0, len(rects))
	for _, m := range rects {
		r, err := m.Finite()
		if err != nil {
			return Rect[S]{}, err
		}
		finite = append(finite, r)
	}
	bounds, ok := BoundingRectangle(finite...)
	if !ok {
		return Rect[S]{}, errors.New("geometry: no rectangles")
	}
	return bounds, nil
}
