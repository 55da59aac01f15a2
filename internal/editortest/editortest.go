// Package editortest builds editor fixtures for tests: projects from markup
// and renderer metadata from hand-written boxes.
package editortest

import (
	"testing"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/markup"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

// AppRoot is the path prefix of the App component internals.
const AppRoot = "storyboard-entity/scene-aaa/app-entity:"

// AppPath addresses an element inside App, e.g. AppPath("aaa/bbb").
func AppPath(uids string) elementpath.Path {
	return elementpath.FromString(AppRoot + uids)
}

func MustProject(tb testing.TB, snippet string, extra ...markup.Component) *document.Document {
	tb.Helper()
	doc, err := markup.ProjectFromSnippet("proj_test", snippet, extra...)
	if err != nil {
		tb.Fatalf("ProjectFromSnippet: %v", err)
	}
	return doc
}

// Box is one measured element. Frames are in canvas space; Infinite marks
// an unmeasurable element.
type Box struct {
	Path      string
	X, Y      float64
	W, H      float64
	Infinite  bool
	Special   metadata.SpecialSizeMeasurements
	Condition *bool
}

// Metadata turns boxes into a renderer snapshot. Box paths are relative to
// the App internals; the scene and storyboard are always measured.
func Metadata(boxes ...Box) metadata.Map {
	m := metadata.Map{}
	m.Put(&metadata.ElementInstanceMetadata{
		ElementPath: elementpath.FromString("storyboard-entity/scene-aaa"),
		GlobalFrame: geometry.FiniteRect(geometry.NewRect[geometry.Canvas](0, 0, 400, 400)),
		IsScene:     true,
	})
	for _, b := range boxes {
		global := geometry.FiniteRect(geometry.NewRect[geometry.Canvas](b.X, b.Y, b.W, b.H))
		local := geometry.FiniteRect(geometry.NewRect[geometry.Local](b.X, b.Y, b.W, b.H))
		if b.Infinite {
			global = geometry.InfinityRect[geometry.Canvas]()
			local = geometry.InfinityRect[geometry.Local]()
		}
		m.Put(&metadata.ElementInstanceMetadata{
			ElementPath:    AppPath(b.Path),
			GlobalFrame:    global,
			LocalFrame:     local,
			Special:        b.Special,
			ConditionValue: b.Condition,
		})
	}
	return m
}

// State is a fresh editor state over snippet with the given measurements.
func State(tb testing.TB, snippet string, boxes ...Box) *editor.State {
	tb.Helper()
	return editor.NewState(MustProject(tb, snippet), Metadata(boxes...))
}

// Block is a static block-level box.
func Block(path string, x, y, w, h float64) Box {
	return Box{Path: path, X: x, Y: y, W: w, H: h, Special: metadata.SpecialSizeMeasurements{Display: "block"}}
}

// Absolute is an absolutely positioned box.
func Absolute(path string, x, y, w, h float64) Box {
	return Box{Path: path, X: x, Y: y, W: w, H: h, Special: metadata.SpecialSizeMeasurements{Display: "block", Position: "absolute"}}
}

// FlexChild is a static box laid out by a row flex parent.
func FlexChild(path string, x, y, w, h float64) Box {
	return Box{Path: path, X: x, Y: y, W: w, H: h, Special: metadata.SpecialSizeMeasurements{
		Display: "block", ParentLayoutSystem: metadata.LayoutFlex, ParentFlexDirection: "row",
	}}
}

// Children returns the child UIDs of uid.
func Children(doc *document.Document, uid string) []string {
	return doc.Elements[uid].Children
}

func Bool(b bool) *bool { return &b }
