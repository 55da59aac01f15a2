package engine

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editortest"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
)

const threeBlocks = `
<div data-uid="container" style="width: 400px; height: 400px">
  <div data-uid="aaa" style="width: 50px; height: 50px"></div>
  <div data-uid="bbb" style="width: 50px; height: 50px"></div>
  <div data-uid="ccc" style="width: 50px; height: 50px"></div>
</div>`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.LoadMarkup("proj_test", threeBlocks); err != nil {
		t.Fatalf("LoadMarkup: %v", err)
	}
	m := editortest.Metadata(
		editortest.Block("container", 0, 0, 400, 400),
		editortest.Block("container/aaa", 0, 0, 50, 50),
		editortest.Block("container/bbb", 0, 50, 50, 50),
		editortest.Block("container/ccc", 0, 100, 50, 50),
	)
	list, err := json.Marshal(slices.Collect(maps.Values(m)))
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	if _, err := e.UpdateMetadata(string(list)); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	return e
}

func selectUIDs(t *testing.T, e *Engine, uids ...string) {
	t.Helper()
	paths := make([]string, len(uids))
	for i, uid := range uids {
		paths[i] = editortest.AppRoot + uid
	}
	payload, _ := json.Marshal(map[string]any{"paths": paths})
	if _, err := e.Dispatch("SELECT_COMPONENTS", string(payload)); err != nil {
		t.Fatalf("select: %v", err)
	}
}

func children(t *testing.T, e *Engine) []string {
	t.Helper()
	data, err := e.GetDocument()
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	var doc document.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return editortest.Children(&doc, "container")
}

func TestNoDocument(t *testing.T) {
	e := NewEngine()
	if _, err := e.GetDocument(); !errors.Is(err, ErrNoDocument) {
		t.Errorf("GetDocument error = %v, want ErrNoDocument", err)
	}
	if _, err := e.PointerUp(); !errors.Is(err, ErrNoDocument) {
		t.Errorf("PointerUp error = %v, want ErrNoDocument", err)
	}
}

func TestHitTest(t *testing.T) {
	e := newTestEngine(t)

	tests := map[string]struct {
		x, y float64
		want string
	}{
		"middle block":   {x: 25, y: 75, want: editortest.AppRoot + "container/bbb"},
		"container only": {x: 300, y: 300, want: editortest.AppRoot + "container"},
		"outside":        {x: 500, y: 500, want: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := e.HitTest(tt.x, tt.y)
			if err != nil {
				t.Fatalf("HitTest: %v", err)
			}
			if got != tt.want {
				t.Errorf("HitTest(%v, %v) = %q, want %q", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestSelectionBounds(t *testing.T) {
	e := newTestEngine(t)
	if got, _ := e.GetSelectionBounds(); got != "null" {
		t.Errorf("bounds with empty selection = %s, want null", got)
	}

	selectUIDs(t, e, "container/aaa", "container/ccc")
	got, err := e.GetSelectionBounds()
	if err != nil {
		t.Fatalf("GetSelectionBounds: %v", err)
	}
	if want := `{"x":0,"y":0,"width":50,"height":150}`; got != want {
		t.Errorf("bounds = %s, want %s", got, want)
	}
}

func TestTriggers(t *testing.T) {
	e := newTestEngine(t)
	selectUIDs(t, e, "container/aaa")

	if _, err := e.Shortcut("]", strategies.Modifiers{Cmd: true}); err != nil {
		t.Fatalf("Shortcut: %v", err)
	}
	if got := children(t, e); !slices.Equal(got, []string{"bbb", "aaa", "ccc"}) {
		t.Errorf("after bring forward children = %v", got)
	}

	if _, err := e.ContextMenu("Send To Back"); err != nil {
		t.Fatalf("ContextMenu: %v", err)
	}
	if got := children(t, e); !slices.Equal(got, []string{"aaa", "bbb", "ccc"}) {
		t.Errorf("after send to back children = %v", got)
	}

	if _, err := e.Shortcut("q", strategies.Modifiers{}); !errors.Is(err, ErrUnboundTrigger) {
		t.Errorf("unbound shortcut error = %v, want ErrUnboundTrigger", err)
	}
	if _, err := e.ContextMenu("Explode"); !errors.Is(err, ErrUnboundTrigger) {
		t.Errorf("unbound menu error = %v, want ErrUnboundTrigger", err)
	}
}

func TestPointerDragReorders(t *testing.T) {
	e := newTestEngine(t)
	selectUIDs(t, e, "container/ccc")

	if _, err := e.PointerDown(100, 100, strategies.Modifiers{}); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if status, _ := e.GetInteractionStatus(); status != "active" {
		t.Errorf("status = %q, want active", status)
	}
	for _, y := range []float64{78, 55} {
		if _, err := e.PointerMove(100, y, strategies.Modifiers{}); err != nil {
			t.Fatalf("PointerMove: %v", err)
		}
	}
	if _, err := e.PointerUp(); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}

	if got := children(t, e); !slices.Equal(got, []string{"aaa", "ccc", "bbb"}) {
		t.Errorf("children = %v, want [aaa ccc bbb]", got)
	}
	if status, _ := e.GetInteractionStatus(); status != "idle" {
		t.Errorf("status after up = %q, want idle", status)
	}
}

func TestGetNavigator(t *testing.T) {
	e := newTestEngine(t)
	got, err := e.GetNavigator()
	if err != nil {
		t.Fatalf("GetNavigator: %v", err)
	}
	if !strings.Contains(got, `"regular-`+editortest.AppRoot+`container/ccc"`) {
		t.Errorf("navigator = %s, want an entry for ccc", got)
	}
}
