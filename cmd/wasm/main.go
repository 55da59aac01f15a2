//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/canvasforge/canvasforge/backend-go/internal/engine"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	canvasEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	canvasEngine.Set("loadDocument", js.FuncOf(loadDocument))
	canvasEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	canvasEngine.Set("loadMarkup", js.FuncOf(loadMarkup))
	canvasEngine.Set("dispatch", js.FuncOf(dispatch))
	canvasEngine.Set("shortcut", js.FuncOf(shortcut))
	canvasEngine.Set("contextMenu", js.FuncOf(contextMenu))
	canvasEngine.Set("pointerDown", js.FuncOf(pointerDown))
	canvasEngine.Set("pointerMove", js.FuncOf(pointerMove))
	canvasEngine.Set("pointerUp", js.FuncOf(pointerUp))
	canvasEngine.Set("pointerCancel", js.FuncOf(pointerCancel))
	canvasEngine.Set("updateMetadata", js.FuncOf(updateMetadata))

	// --- Queries (frontend ← backend) ---
	canvasEngine.Set("getDocument", js.FuncOf(getDocument))
	canvasEngine.Set("getSelection", js.FuncOf(getSelection))
	canvasEngine.Set("getInteractionStatus", js.FuncOf(getInteractionStatus))
	canvasEngine.Set("getNavigator", js.FuncOf(getNavigator))
	canvasEngine.Set("hitTest", js.FuncOf(hitTest))
	canvasEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))

	js.Global().Set("canvasEngine", canvasEngine)
	js.Global().Set("canvasWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(msg string) js.Value {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func okResult() js.Value {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// jsonResult wraps an engine call that produces JSON.
func jsonResult(out string, err error) js.Value {
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"result": out})
}

// modifiers reads {shift, alt, cmd, ctrl} from an optional argument.
func modifiers(args []js.Value, i int) strategies.Modifiers {
	if len(args) <= i || args[i].Type() != js.TypeObject {
		return strategies.Modifiers{}
	}
	flag := func(name string) bool {
		v := args[i].Get(name)
		return v.Type() == js.TypeBoolean && v.Bool()
	}
	return strategies.Modifiers{
		Shift: flag("shift"),
		Alt:   flag("alt"),
		Cmd:   flag("cmd"),
		Ctrl:  flag("ctrl"),
	}
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing document JSON")
	}
	if err := eng.LoadDocument(args[0].String()); err != nil {
		return errorResult(err.Error())
	}
	return okResult()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	projectID := "proj_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		projectID = args[0].String()
	}
	eng.LoadSampleDocument(projectID)
	return okResult()
}

func loadMarkup(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("missing project id or markup")
	}
	if err := eng.LoadMarkup(args[0].String(), args[1].String()); err != nil {
		return errorResult(err.Error())
	}
	return okResult()
}

func dispatch(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing action type")
	}
	payload := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		payload = args[1].String()
	}
	return jsonResult(eng.Dispatch(args[0].String(), payload))
}

func shortcut(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing key")
	}
	return jsonResult(eng.Shortcut(args[0].String(), modifiers(args, 1)))
}

func contextMenu(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing menu label")
	}
	return jsonResult(eng.ContextMenu(args[0].String()))
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("missing pointer position")
	}
	return jsonResult(eng.PointerDown(args[0].Float(), args[1].Float(), modifiers(args, 2)))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("missing pointer position")
	}
	return jsonResult(eng.PointerMove(args[0].Float(), args[1].Float(), modifiers(args, 2)))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return jsonResult(eng.PointerUp())
}

func pointerCancel(this js.Value, args []js.Value) interface{} {
	return jsonResult(eng.PointerCancel())
}

func updateMetadata(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing metadata JSON")
	}
	return jsonResult(eng.UpdateMetadata(args[0].String()))
}

// --- Query Handlers ---

func getDocument(this js.Value, args []js.Value) interface{} {
	return jsonResult(eng.GetDocument())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return jsonResult(eng.GetSelection())
}

func getInteractionStatus(this js.Value, args []js.Value) interface{} {
	return jsonResult(eng.GetInteractionStatus())
}

// getNavigator blocks until follow-up actions settle, so callers should
// not invoke it from a render loop.
func getNavigator(this js.Value, args []js.Value) interface{} {
	return jsonResult(eng.GetNavigator())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	path, err := eng.HitTest(args[0].Float(), args[1].Float())
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(path)
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return jsonResult(eng.GetSelectionBounds())
}
