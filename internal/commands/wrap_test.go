package commands_test

import (
	"bytes"
	"slices"
	"testing"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editortest"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/markup"
)

func wrap(t *testing.T, targets []string, kind commands.WrapperKind, uid string, snippet string, boxes ...editortest.Box) (*document.Document, []elementpath.Path, commands.Result) {
	t.Helper()
	s := editortest.State(t, snippet, boxes...)
	paths := make([]elementpath.Path, len(targets))
	for i, target := range targets {
		paths[i] = editortest.AppPath(target)
	}
	next, results := run(t, s, commands.NewWrapInElement(commands.Always, paths, kind, uid))
	return next.Document, next.SelectedViews, results[0]
}

func assertStyle(t *testing.T, doc *document.Document, uid, want string) {
	t.Helper()
	if got := markup.FormatStyle(doc.Elements[uid].Style); got != want {
		t.Errorf("%s style = %q, want %q", uid, got, want)
	}
}

func TestWrapAbsoluteElementInGroup(t *testing.T) {
	snippet := `
<div data-uid="aaa" style="position: relative; width: 300px; height: 300px">
  <div data-uid="target-div" style="position: absolute; left: 40px; top: 50px; width: 100px; height: 80px"></div>
</div>`

	doc, selected, _ := wrap(t, []string{"aaa/target-div"}, commands.WrapperGroup, "group", snippet,
		editortest.Block("aaa", 0, 0, 300, 300),
		editortest.Absolute("aaa/target-div", 40, 50, 100, 80),
	)

	assertStyle(t, doc, "group", "position: absolute; left: 40; top: 50; width: 100; height: 80")
	assertStyle(t, doc, "target-div", "position: absolute; left: 0; top: 0; width: 100; height: 80")
	if got := doc.Elements["group"].Name; got != "Group" {
		t.Errorf("wrapper name = %q, want Group", got)
	}
	if got := editortest.Children(doc, "aaa"); !slices.Equal(got, []string{"group"}) {
		t.Errorf("aaa children = %v", got)
	}

	if len(selected) != 1 || selected[0].String() != editortest.AppRoot+"aaa/group" {
		t.Errorf("selection = %v, want aaa/group", selected)
	}
	// The wrapped element keeps its uid; only its parent prefix changes.
	if got := editortest.Children(doc, "group"); !slices.Equal(got, []string{"target-div"}) {
		t.Errorf("group children = %v, want [target-div]", got)
	}
}

func TestWrapFlexChildrenInGroup(t *testing.T) {
	snippet := `
<div data-uid="aaa" style="display: flex; gap: 20px; width: 400px; height: 200px">
  <div data-uid="child-1" style="width: 50px; height: 50px"></div>
  <div data-uid="child-2" style="width: 100px; height: 100px"></div>
  <div data-uid="child-3" style="width: 130px; height: 50px"></div>
  <div data-uid="child-4" style="width: 50px; height: 50px"></div>
</div>`

	doc, selected, _ := wrap(t, []string{"aaa/child-3", "aaa/child-2"}, commands.WrapperGroup, "group", snippet,
		editortest.Block("aaa", 0, 0, 400, 200),
		editortest.FlexChild("aaa/child-1", 0, 0, 50, 50),
		editortest.FlexChild("aaa/child-2", 70, 0, 100, 100),
		editortest.FlexChild("aaa/child-3", 190, 0, 130, 50),
		editortest.FlexChild("aaa/child-4", 340, 0, 50, 50),
	)

	if got := editortest.Children(doc, "aaa"); !slices.Equal(got, []string{"child-1", "group", "child-4"}) {
		t.Errorf("aaa children = %v", got)
	}
	if got := editortest.Children(doc, "group"); !slices.Equal(got, []string{"child-2", "child-3"}) {
		t.Errorf("group children = %v, want document order", got)
	}
	assertStyle(t, doc, "group", "contain: layout; width: 250; height: 100")
	assertStyle(t, doc, "child-2", "width: 100; height: 100; position: absolute; left: 0; top: 0")
	assertStyle(t, doc, "child-3", "width: 130; height: 50; position: absolute; left: 120; top: 0")
	if selected[0].String() != editortest.AppRoot+"aaa/group" {
		t.Errorf("selection = %v", selected)
	}
}

func TestWrapConditionalInGroupShowsToast(t *testing.T) {
	snippet := `
<div data-uid="aaa">
  <conditional data-uid="cond" condition="true">
    <div data-uid="then-div"></div>
  </conditional>
</div>`
	s := editortest.State(t, snippet, editortest.Block("aaa", 0, 0, 300, 300))
	before, _ := s.DocumentJSON()

	next, results := run(t, s, commands.NewWrapInElement(commands.Always,
		[]elementpath.Path{editortest.AppPath("aaa/cond")}, commands.WrapperGroup, "group"))

	after, _ := next.DocumentJSON()
	if !bytes.Equal(before, after) {
		t.Error("wrapping a conditional in a Group changed the document")
	}
	if len(next.Toasts) != 1 || next.Toasts[0].Message != commands.GroupUnsupportedMessage {
		t.Errorf("toasts = %+v", next.Toasts)
	}
	if len(results[0].Patches) != 1 {
		t.Errorf("patches = %d, want only the toast", len(results[0].Patches))
	}
}

func TestWrapMultiselectEmptyingConditionalBranch(t *testing.T) {
	snippet := `
<div data-uid="aaa" style="position: relative; width: 400px; height: 400px">
  <conditional data-uid="cond" condition="true">
    <div data-uid="then-div" style="position: absolute; left: 0px; top: 0px; width: 150px; height: 150px"></div>
    <div data-uid="else-div"></div>
  </conditional>
  <div data-uid="child-2" style="position: absolute; left: 154px; top: 134px; width: 150px; height: 150px"></div>
</div>`

	doc, selected, _ := wrap(t, []string{"aaa/child-2", "aaa/cond/then-div"}, commands.WrapperGroup, "group", snippet,
		editortest.Block("aaa", 0, 0, 400, 400),
		editortest.Absolute("aaa/cond/then-div", 0, 0, 150, 150),
		editortest.Absolute("aaa/child-2", 154, 134, 150, 150),
	)

	if got := editortest.Children(doc, "aaa"); !slices.Equal(got, []string{"cond", "group"}) {
		t.Errorf("aaa children = %v, want [cond group]", got)
	}
	cond := doc.Elements["cond"]
	if len(cond.Children) != 2 || cond.Children[1] != "else-div" {
		t.Fatalf("cond children = %v", cond.Children)
	}
	if !doc.Elements[cond.Children[0]].IsNullPlaceholder() {
		t.Errorf("emptied branch %q should be a null placeholder", cond.Children[0])
	}
	if got := editortest.Children(doc, "group"); !slices.Equal(got, []string{"then-div", "child-2"}) {
		t.Errorf("group children = %v", got)
	}
	assertStyle(t, doc, "group", "position: absolute; left: 0; top: 0; width: 304; height: 284")
	if selected[0].String() != editortest.AppRoot+"aaa/group" {
		t.Errorf("selection = %v", selected)
	}
}

func TestWrapConditionalBranchInDiv(t *testing.T) {
	snippet := `
<div data-uid="aaa">
  <conditional data-uid="cond" condition="true">
    <div data-uid="then-div"></div>
    <expression data-uid="test-expr" code="'Test'"></expression>
  </conditional>
</div>`

	doc, selected, _ := wrap(t, []string{"aaa/cond/test-expr"}, commands.WrapperDiv, "wrapper", snippet)

	if got := editortest.Children(doc, "cond"); !slices.Equal(got, []string{"then-div", "wrapper"}) {
		t.Errorf("cond children = %v", got)
	}
	if got := editortest.Children(doc, "wrapper"); !slices.Equal(got, []string{"test-expr"}) {
		t.Errorf("wrapper children = %v", got)
	}
	assertStyle(t, doc, "wrapper", "position: absolute")
	if selected[0].String() != editortest.AppRoot+"aaa/cond/wrapper" {
		t.Errorf("selection = %v", selected)
	}
}

func TestWrapFragment(t *testing.T) {
	snippet := `
<div data-uid="aaa" style="position: relative; width: 400px; height: 400px">
  <fragment data-uid="frag">
    <div data-uid="child-1" style="position: absolute; left: 50px; top: 60px; width: 50px; height: 50px"></div>
    <div data-uid="child-2" style="position: absolute; left: 150px; top: 60px; width: 50px; height: 50px"></div>
  </fragment>
</div>`
	boxes := []editortest.Box{
		editortest.Block("aaa", 0, 0, 400, 400),
		editortest.Absolute("aaa/frag/child-1", 50, 60, 50, 50),
		editortest.Absolute("aaa/frag/child-2", 150, 60, 50, 50),
	}

	t.Run("fragment selected", func(t *testing.T) {
		doc, _, _ := wrap(t, []string{"aaa/frag"}, commands.WrapperGroup, "group", snippet, boxes...)
		if got := editortest.Children(doc, "aaa"); !slices.Equal(got, []string{"group"}) {
			t.Errorf("aaa children = %v", got)
		}
		if got := editortest.Children(doc, "group"); !slices.Equal(got, []string{"frag"}) {
			t.Errorf("group children = %v", got)
		}
		assertStyle(t, doc, "group", "position: absolute; left: 50; top: 60; width: 150; height: 50")
		assertStyle(t, doc, "child-2", "position: absolute; left: 100; top: 0; width: 50; height: 50")
	})

	t.Run("both fragment children selected", func(t *testing.T) {
		doc, selected, _ := wrap(t, []string{"aaa/frag/child-1", "aaa/frag/child-2"}, commands.WrapperGroup, "group", snippet, boxes...)
		if got := editortest.Children(doc, "frag"); !slices.Equal(got, []string{"group"}) {
			t.Errorf("frag children = %v", got)
		}
		if selected[0].String() != editortest.AppRoot+"aaa/frag/group" {
			t.Errorf("selection = %v", selected)
		}
	})
}

func TestWrapInGroupWithoutMetadataIsNoop(t *testing.T) {
	s := editortest.State(t, threeBlocks)
	before, _ := s.DocumentJSON()

	next, results := run(t, s, commands.NewWrapInElement(commands.Always,
		[]elementpath.Path{editortest.AppPath("container/aaa")}, commands.WrapperGroup, ""))

	after, _ := next.DocumentJSON()
	if !bytes.Equal(before, after) || len(results[0].Patches) != 0 {
		t.Errorf("unmeasured Group wrap should be a no-op, got %d patches", len(results[0].Patches))
	}
}

func TestWrapGeneratesFreeUID(t *testing.T) {
	snippet := `
<div data-uid="container">
  <div data-uid="div"></div>
  <div data-uid="aaa"></div>
</div>`
	doc, selected, _ := wrap(t, []string{"container/aaa"}, commands.WrapperDiv, "", snippet)
	if got := editortest.Children(doc, "container"); !slices.Equal(got, []string{"div", "div-1"}) {
		t.Errorf("children = %v, want [div div-1]", got)
	}
	if selected[0].ToUID() != "div-1" {
		t.Errorf("selection = %v", selected)
	}
}
