package metadata

import (
	"strings"
	"testing"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
)

const containerPath = "storyboard-entity/scene-aaa/app-entity:container"

func frame(x, y, w, h float64) geometry.MaybeInfiniteRect[geometry.Canvas] {
	return geometry.FiniteRect(geometry.NewRect[geometry.Canvas](x, y, w, h))
}

func entry(path string, f geometry.MaybeInfiniteRect[geometry.Canvas], special SpecialSizeMeasurements) *ElementInstanceMetadata {
	return &ElementInstanceMetadata{
		ElementPath: elementpath.FromString(path),
		GlobalFrame: f,
		Special:     special,
	}
}

func TestLookupsTolerateMissingEntries(t *testing.T) {
	m := Map{}
	p := elementpath.FromString(containerPath + "/aaa")

	if md := FindElementByElementPath(m, p); md != nil {
		t.Errorf("FindElementByElementPath = %v, want nil", md)
	}
	if md := FindElementByElementPath(nil, p); md != nil {
		t.Errorf("FindElementByElementPath(nil map) = %v, want nil", md)
	}
	if _, ok := GetFrameInCanvasCoords(p, m); ok {
		t.Error("GetFrameInCanvasCoords should report a missing frame")
	}
	if IsPositionStatic(nil) {
		t.Error("IsPositionStatic(nil) should be false")
	}

	m.Put(entry(p.String(), geometry.InfinityRect[geometry.Canvas](), SpecialSizeMeasurements{}))
	if _, ok := GetFrameInCanvasCoords(p, m); ok {
		t.Error("an infinity frame is not a canvas frame")
	}
}

func TestIsPositionStatic(t *testing.T) {
	type tc struct {
		position string
		want     bool
	}

	tests := map[string]tc{
		"unset":    {position: "", want: true},
		"static":   {position: "static", want: true},
		"absolute": {position: "absolute", want: false},
		"relative": {position: "relative", want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			md := entry("a", frame(0, 0, 1, 1), SpecialSizeMeasurements{Position: tt.position})
			if got := IsPositionStatic(md); got != tt.want {
				t.Errorf("IsPositionStatic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlowAxis(t *testing.T) {
	type tc struct {
		display, direction string
		axis               geometry.Axis
		reversed           bool
	}

	tests := map[string]tc{
		"block":            {display: "block", axis: geometry.Vertical},
		"inline-block":     {display: "inline-block", axis: geometry.Horizontal},
		"rtl inline-block": {display: "inline-block", direction: "rtl", axis: geometry.Horizontal, reversed: true},
		"rtl block":        {display: "block", direction: "rtl", axis: geometry.Vertical},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			md := entry("a", frame(0, 0, 1, 1), SpecialSizeMeasurements{Display: tt.display, Direction: tt.direction})
			axis, reversed := FlowAxis(md)
			if axis != tt.axis || reversed != tt.reversed {
				t.Errorf("FlowAxis = %v, %v, want %v, %v", axis, reversed, tt.axis, tt.reversed)
			}
		})
	}
}

func TestLayoutSiblingsFlattensFragmentsAndConditionals(t *testing.T) {
	doc := document.NewSampleDocument("proj_test")
	frag := "frag"
	container := "container"
	doc.Elements[frag] = document.Element{UID: frag, Kind: document.KindFragment, Parent: &container, Children: []string{}}
	if err := doc.Apply(document.Operation{Type: document.OpReparent, UID: "bbb", NewParentUID: frag}); err != nil {
		t.Fatal(err)
	}
	c := doc.Elements[container]
	c.Children = []string{"aaa", frag, "ccc", "cond", "label"}
	doc.Elements[container] = c

	m := Map{}
	for i, uid := range []string{"aaa", "frag/bbb", "ccc", "cond/then-div", "label"} {
		m.Put(entry(containerPath+"/"+uid, frame(0, float64(i)*50, 50, 50), SpecialSizeMeasurements{Display: "block"}))
	}

	siblings := LayoutSiblings(doc, m, elementpath.FromString(containerPath+"/ccc"))
	var got []string
	for _, s := range siblings {
		got = append(got, strings.TrimPrefix(s.Path.String(), containerPath+"/")+"@"+s.Slot)
	}
	want := "aaa@aaa frag/bbb@frag ccc@ccc cond/then-div@cond label@label"
	if strings.Join(got, " ") != want {
		t.Errorf("LayoutSiblings = %v, want %v", strings.Join(got, " "), want)
	}

	f := false
	m.Put(&ElementInstanceMetadata{ElementPath: elementpath.FromString(containerPath + "/cond"), ConditionValue: &f})
	branch, ok := ActiveBranch(doc, m, elementpath.FromString(containerPath+"/cond"))
	if !ok || branch.ToUID() != "else-null" {
		t.Errorf("ActiveBranch = %v, %v, want else-null", branch, ok)
	}
}

func TestIsFocusable(t *testing.T) {
	doc := document.NewSampleDocument("proj_test")

	if !IsFocusable(doc, nil, elementpath.FromString("storyboard-entity/scene-aaa/app-entity")) {
		t.Error("component instance should be focusable")
	}
	if IsFocusable(doc, nil, elementpath.FromString(containerPath+"/aaa")) {
		t.Error("plain div should not be focusable")
	}
	if IsFocusable(doc, nil, elementpath.FromString("storyboard-entity/scene-aaa")) {
		t.Error("scene should not be focusable")
	}
}

func TestDecode(t *testing.T) {
	in := `[{"elementPath":"sb/scene","globalFrame":{"x":0,"y":0,"width":400,"height":400},"isScene":true},
		{"elementPath":"sb/scene/app","globalFrame":{"infinite":true},"specialSizeMeasurements":{"position":"absolute"}}]`
	m, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(GetScenesMetadata(m)) != 1 {
		t.Errorf("scenes = %d, want 1", len(GetScenesMetadata(m)))
	}
	app := FindElementByElementPath(m, elementpath.FromString("sb/scene/app"))
	if app == nil || !geometry.IsInfinityRectangle(app.GlobalFrame) || !IsPositionAbsolute(app) {
		t.Errorf("app metadata = %+v", app)
	}
}
