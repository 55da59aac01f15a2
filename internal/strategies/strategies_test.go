package strategies_test

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/editortest"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
)

const threeBlocks = `
<div data-uid="container" style="width: 400px; height: 400px">
  <div data-uid="aaa" style="width: 50px; height: 50px"></div>
  <div data-uid="bbb" style="width: 50px; height: 50px"></div>
  <div data-uid="ccc" style="width: 50px; height: 50px"></div>
</div>`

func stacked() []editortest.Box {
	return []editortest.Box{
		editortest.Block("container", 0, 0, 400, 400),
		editortest.Block("container/aaa", 0, 0, 50, 50),
		editortest.Block("container/bbb", 0, 50, 50, 50),
		editortest.Block("container/ccc", 0, 100, 50, 50),
	}
}

func selected(s *editor.State, uids ...string) *editor.State {
	for _, uid := range uids {
		s.SelectedViews = append(s.SelectedViews, editortest.AppPath(uid))
	}
	return s
}

func pt(x, y float64) geometry.Point[geometry.Window] { return geometry.Pt[geometry.Window](x, y) }

// drag runs a whole interaction from (100,100) by dx,dy and commits it.
func drag(t *testing.T, s *editor.State, dx, dy float64, mods strategies.Modifiers) (*editor.State, strategies.Name) {
	t.Helper()
	c := strategies.NewController()
	c.Start(s, pt(100, 100), mods)
	var name strategies.Name
	if a := c.ActiveStrategy(); a != nil {
		name = a.Name()
	}
	if _, err := c.Update(pt(100+dx/2, 100+dy/2), mods); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := c.Update(pt(100+dx, 100+dy), mods); err != nil {
		t.Fatalf("Update: %v", err)
	}
	next, _, err := c.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if c.Status() != strategies.Idle || c.LastOutcome() != strategies.Committed {
		t.Errorf("status = %v, last outcome = %v", c.Status(), c.LastOutcome())
	}
	return next, name
}

func TestFlowReorderBlocks(t *testing.T) {
	s := selected(editortest.State(t, threeBlocks, stacked()...), "container/ccc")

	next, name := drag(t, s, 0, -45, strategies.Modifiers{})
	if name != strategies.FlowReorderName {
		t.Fatalf("strategy = %q, want %q", name, strategies.FlowReorderName)
	}
	if got := editortest.Children(next.Document, "container"); !slices.Equal(got, []string{"aaa", "ccc", "bbb"}) {
		t.Errorf("children = %v, want [aaa ccc bbb]", got)
	}
}

func TestFlowReorderSmallDragKeepsOrder(t *testing.T) {
	s := selected(editortest.State(t, threeBlocks, stacked()...), "container/ccc")

	next, _ := drag(t, s, 0, -20, strategies.Modifiers{})
	if got := editortest.Children(next.Document, "container"); !slices.Equal(got, []string{"aaa", "bbb", "ccc"}) {
		t.Errorf("children = %v, want unchanged", got)
	}
}

func TestFlowReorderRTLInline(t *testing.T) {
	inline := func(path string, x float64) editortest.Box {
		b := editortest.Block(path, x, 0, 50, 50)
		b.Special.Display = "inline-block"
		b.Special.Direction = "rtl"
		return b
	}
	s := selected(editortest.State(t, threeBlocks,
		editortest.Block("container", 0, 0, 400, 400),
		inline("container/aaa", 350),
		inline("container/bbb", 300),
		inline("container/ccc", 250),
	), "container/ccc")

	next, name := drag(t, s, 45, 0, strategies.Modifiers{})
	if name != strategies.FlowReorderName {
		t.Fatalf("strategy = %q", name)
	}
	if got := editortest.Children(next.Document, "container"); !slices.Equal(got, []string{"aaa", "ccc", "bbb"}) {
		t.Errorf("children = %v, want [aaa ccc bbb]", got)
	}
}

func TestFlowReorderAcrossFragment(t *testing.T) {
	snippet := `
<div data-uid="container">
  <div data-uid="aaa" style="width: 50px; height: 50px"></div>
  <fragment data-uid="frag">
    <div data-uid="bbb" style="width: 50px; height: 50px"></div>
  </fragment>
  <div data-uid="ccc" style="width: 50px; height: 50px"></div>
</div>`
	s := selected(editortest.State(t, snippet,
		editortest.Block("container", 0, 0, 400, 400),
		editortest.Block("container/aaa", 0, 0, 50, 50),
		editortest.Block("container/frag/bbb", 0, 50, 50, 50),
		editortest.Block("container/ccc", 0, 100, 50, 50),
	), "container/ccc")

	next, _ := drag(t, s, 0, -45, strategies.Modifiers{})
	if got := editortest.Children(next.Document, "container"); !slices.Equal(got, []string{"aaa", "ccc", "frag"}) {
		t.Errorf("children = %v, want [aaa ccc frag]", got)
	}
}

func TestFlowReorderNotApplicable(t *testing.T) {
	type tc struct {
		snippet string
		modify  func(boxes []editortest.Box)
	}

	tests := map[string]tc{
		"floated sibling": {
			modify: func(b []editortest.Box) { b[1].Special.Float = "left" },
		},
		"inline and block siblings": {
			modify: func(b []editortest.Box) { b[2].Special.Display = "inline" },
		},
		"sibling wrapping over several lines": {
			modify: func(b []editortest.Box) { b[2].Special.TextLineCount = 2 },
		},
		"unmeasurable sibling": {
			modify: func(b []editortest.Box) { b[1].Infinite = true },
		},
		"multi-column parent": {
			snippet: `
<div data-uid="container" style="columns: 2">
  <div data-uid="aaa"></div>
  <div data-uid="bbb"></div>
  <div data-uid="ccc"></div>
</div>`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			snippet := tt.snippet
			if snippet == "" {
				snippet = threeBlocks
			}
			boxes := stacked()
			if tt.modify != nil {
				tt.modify(boxes)
			}
			s := selected(editortest.State(t, snippet, boxes...), "container/ccc")
			ctx := &strategies.Context{State: s, Selected: s.SelectedViews}

			got := strategies.Names(strategies.SortedApplicableStrategies(ctx, strategies.DefaultStrategies()))
			if slices.Contains(got, strategies.FlowReorderName) {
				t.Errorf("applicable = %v, want no %s", got, strategies.FlowReorderName)
			}
		})
	}
}

func TestFlexReorder(t *testing.T) {
	s := selected(editortest.State(t, threeBlocks,
		editortest.Block("container", 0, 0, 400, 400),
		editortest.FlexChild("container/aaa", 0, 0, 50, 50),
		editortest.FlexChild("container/bbb", 50, 0, 50, 50),
		editortest.FlexChild("container/ccc", 100, 0, 50, 50),
	), "container/aaa")

	next, name := drag(t, s, 60, 0, strategies.Modifiers{})
	if name != strategies.FlexReorderName {
		t.Fatalf("strategy = %q, want %q", name, strategies.FlexReorderName)
	}
	if got := editortest.Children(next.Document, "container"); !slices.Equal(got, []string{"bbb", "aaa", "ccc"}) {
		t.Errorf("children = %v, want [bbb aaa ccc]", got)
	}
}

func TestAbsoluteMove(t *testing.T) {
	snippet := `
<div data-uid="container" style="position: relative">
  <div data-uid="aaa" style="position: absolute; left: 10px; top: 10px; width: 50px; height: 50px"></div>
</div>`
	boxes := []editortest.Box{
		editortest.Block("container", 0, 0, 400, 400),
		editortest.Absolute("container/aaa", 10, 10, 50, 50),
	}

	type tc struct {
		dx, dy   float64
		mods     strategies.Modifiers
		wantLeft float64
		wantTop  float64
	}
	tests := map[string]tc{
		"free move":        {dx: 30, dy: 20, wantLeft: 40, wantTop: 30},
		"shift locks to x": {dx: 30, dy: 5, mods: strategies.Modifiers{Shift: true}, wantLeft: 40, wantTop: 10},
		"shift locks to y": {dx: 3, dy: -8, mods: strategies.Modifiers{Shift: true}, wantLeft: 10, wantTop: 2},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := selected(editortest.State(t, snippet, boxes...), "container/aaa")
			next, strategy := drag(t, s, tt.dx, tt.dy, tt.mods)
			if strategy != strategies.AbsoluteMoveName {
				t.Fatalf("strategy = %q", strategy)
			}
			style := next.Document.Elements["aaa"].Style
			if got, _ := style.Number("left"); got != tt.wantLeft {
				t.Errorf("left = %v, want %v", got, tt.wantLeft)
			}
			if got, _ := style.Number("top"); got != tt.wantTop {
				t.Errorf("top = %v, want %v", got, tt.wantTop)
			}
		})
	}
}

func TestAbsoluteMoveScaledCanvas(t *testing.T) {
	snippet := `<div data-uid="container"><div data-uid="aaa" style="position: absolute; left: 0px; top: 0px"></div></div>`
	s := selected(editortest.State(t, snippet, editortest.Absolute("container/aaa", 0, 0, 50, 50)), "container/aaa")
	s.CanvasTransform.Scale = 2

	next, _ := drag(t, s, 40, 20, strategies.Modifiers{})
	if got, _ := next.Document.Elements["aaa"].Style.Number("left"); got != 20 {
		t.Errorf("left = %v, want 20 at 2x zoom", got)
	}
}

func TestCancelRestoresStartState(t *testing.T) {
	s := selected(editortest.State(t, threeBlocks, stacked()...), "container/ccc")
	before, _ := s.DocumentJSON()

	c := strategies.NewController()
	c.Start(s, pt(0, 0), strategies.Modifiers{})
	preview, err := c.Update(pt(0, -45), strategies.Modifiers{})
	if err != nil {
		t.Fatal(err)
	}
	if got := editortest.Children(preview.Document, "container"); !slices.Equal(got, []string{"aaa", "ccc", "bbb"}) {
		t.Errorf("preview children = %v", got)
	}

	got, err := c.Cancel()
	if err != nil {
		t.Fatal(err)
	}
	after, _ := got.DocumentJSON()
	if !bytes.Equal(before, after) {
		t.Error("cancel did not restore the starting document")
	}
	if c.LastOutcome() != strategies.Cancelled || c.Status() != strategies.Idle {
		t.Errorf("status = %v, last outcome = %v", c.Status(), c.LastOutcome())
	}
	if _, err := c.Update(pt(0, 0), strategies.Modifiers{}); !errors.Is(err, strategies.ErrNoInteraction) {
		t.Errorf("Update after cancel = %v, want ErrNoInteraction", err)
	}
}

func TestSamplesAreNotCumulative(t *testing.T) {
	s := selected(editortest.State(t, threeBlocks, stacked()...), "container/ccc")
	c := strategies.NewController()
	c.Start(s, pt(0, 0), strategies.Modifiers{})

	for _, y := range []float64{-45, -90, -45} {
		if _, err := c.Update(pt(0, y), strategies.Modifiers{}); err != nil {
			t.Fatal(err)
		}
	}
	next, _, err := c.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if got := editortest.Children(next.Document, "container"); !slices.Equal(got, []string{"aaa", "ccc", "bbb"}) {
		t.Errorf("children = %v, want the result of the last sample only", got)
	}
}

type fakeStrategy struct {
	name   strategies.Name
	score  float64
	panics bool
	calls  int
	batch  func(ctx *strategies.Context, call int) []commands.Command
}

func (f *fakeStrategy) Name() strategies.Name { return f.name }

func (f *fakeStrategy) ApplicabilityScore(*strategies.Context) (float64, bool) {
	if f.panics {
		panic("boom")
	}
	return f.score, true
}

func (f *fakeStrategy) OnSample(ctx *strategies.Context) ([]commands.Command, error) {
	f.calls++
	return f.batch(ctx, f.calls), nil
}

func TestSortedApplicableStrategies(t *testing.T) {
	s := selected(editortest.State(t, threeBlocks, stacked()...), "container/ccc")
	ctx := &strategies.Context{State: s, Selected: s.SelectedViews}

	registry := []strategies.Strategy{
		&fakeStrategy{name: "CUSTOM", score: 1},
		&fakeStrategy{name: "BROKEN", score: 5, panics: true},
		&fakeStrategy{name: "LOW", score: 0.5},
		strategies.FlowReorder{},
		&fakeStrategy{name: strategies.AbsoluteMoveName, score: 1},
	}
	got := strategies.Names(strategies.SortedApplicableStrategies(ctx, registry))
	want := []strategies.Name{strategies.AbsoluteMoveName, strategies.FlowReorderName, "CUSTOM", "LOW"}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestPanickingSampleKeepsPreviousBatch(t *testing.T) {
	s := selected(editortest.State(t, threeBlocks, stacked()...), "container/aaa")
	target := editortest.AppPath("container/aaa")
	fake := &fakeStrategy{name: "FAKE", score: 1, batch: func(_ *strategies.Context, call int) []commands.Command {
		if call == 2 {
			panic("sample failed")
		}
		return []commands.Command{commands.NewSetProperty(commands.Always, target, "style.opacity", float64(call))}
	}}

	c := strategies.NewController(fake)
	c.Start(s, pt(0, 0), strategies.Modifiers{})
	for i := 0; i < 2; i++ {
		if _, err := c.Update(pt(float64(i), 0), strategies.Modifiers{}); err != nil {
			t.Fatal(err)
		}
	}
	next, _, err := c.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := next.Document.Elements["aaa"].Style.Number("opacity"); got != 1 {
		t.Errorf("opacity = %v, want the batch of the first sample", got)
	}
}

func TestNoApplicableStrategyCommitsNothing(t *testing.T) {
	s := editortest.State(t, threeBlocks, stacked()...)
	before, _ := s.DocumentJSON()

	next, name := drag(t, s, 0, -45, strategies.Modifiers{})
	if name != "" {
		t.Errorf("strategy = %q with empty selection", name)
	}
	after, _ := next.DocumentJSON()
	if !bytes.Equal(before, after) {
		t.Error("document changed without a strategy")
	}
}

func TestContextDragUsesCanvasScale(t *testing.T) {
	s := editortest.State(t, threeBlocks)
	s.CanvasTransform.Scale = 4
	ctx := &strategies.Context{
		State:       s,
		Selected:    []elementpath.Path{},
		Interaction: strategies.Interaction{Start: pt(10, 10), Current: pt(30, 50)},
	}
	d, err := ctx.Drag()
	if err != nil {
		t.Fatal(err)
	}
	if d.X != 5 || d.Y != 10 {
		t.Errorf("drag = %+v, want 5,10", d)
	}
}
