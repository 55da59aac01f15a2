// Package engine drives an editor dispatcher with JSON strings, the only
// currency the js/wasm bridge can pass in and out.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/canvasforge/canvasforge/backend-go/internal/actions"
	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/markup"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
)

var (
	ErrNoDocument     = errors.New("no document loaded")
	ErrUnboundTrigger = errors.New("no action bound")
)

const followUpWait = time.Second

// Engine owns the dispatcher of the document open in the browser.
type Engine struct {
	mu   sync.Mutex
	d    *actions.Dispatcher
	opts []actions.Option
}

func NewEngine(opts ...actions.Option) *Engine {
	return &Engine{opts: opts}
}

// --- Commands (frontend → engine) ---

// LoadDocument replaces the open document with the serialized element
// tree. Metadata starts empty until the renderer reports.
func (e *Engine) LoadDocument(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	e.open(&doc)
	return nil
}

func (e *Engine) LoadSampleDocument(projectID string) {
	e.open(document.NewSampleDocument(projectID))
}

// LoadMarkup opens a project whose App component is snippet.
func (e *Engine) LoadMarkup(projectID, snippet string) error {
	doc, err := markup.ProjectFromSnippet(projectID, snippet)
	if err != nil {
		return err
	}
	e.open(doc)
	return nil
}

func (e *Engine) open(doc *document.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.d = actions.NewDispatcher(editor.NewState(doc, nil), e.opts...)
}

func (e *Engine) dispatcher() (*actions.Dispatcher, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.d == nil {
		return nil, ErrNoDocument
	}
	return e.d, nil
}

func (e *Engine) dispatch(a actions.Action) (string, error) {
	d, err := e.dispatcher()
	if err != nil {
		return "", err
	}
	return toJSON(d.Dispatch(a))
}

// Dispatch decodes and runs one named action and returns the result JSON.
func (e *Engine) Dispatch(actionType, payload string) (string, error) {
	var raw json.RawMessage
	if strings.TrimSpace(payload) != "" {
		raw = json.RawMessage(payload)
	}
	a, err := actions.Decode(actionType, raw)
	if err != nil {
		return "", err
	}
	return e.dispatch(a)
}

func (e *Engine) Shortcut(key string, mods strategies.Modifiers) (string, error) {
	a, ok := actions.ShortcutAction(key, mods)
	if !ok {
		return "", fmt.Errorf("%w to shortcut %q", ErrUnboundTrigger, key)
	}
	return e.dispatch(a)
}

func (e *Engine) ContextMenu(label string) (string, error) {
	a, ok := actions.ContextMenuAction(label)
	if !ok {
		return "", fmt.Errorf("%w to menu item %q", ErrUnboundTrigger, label)
	}
	return e.dispatch(a)
}

func (e *Engine) PointerDown(x, y float64, mods strategies.Modifiers) (string, error) {
	return e.dispatch(actions.StartInteraction{Point: geometry.Pt[geometry.Window](x, y), Modifiers: mods})
}

func (e *Engine) PointerMove(x, y float64, mods strategies.Modifiers) (string, error) {
	return e.dispatch(actions.UpdateInteraction{Point: geometry.Pt[geometry.Window](x, y), Modifiers: mods})
}

func (e *Engine) PointerUp() (string, error) {
	return e.dispatch(actions.FinishInteraction{})
}

func (e *Engine) PointerCancel() (string, error) {
	return e.dispatch(actions.CancelInteraction{})
}

// UpdateMetadata takes the renderer's measurement list.
func (e *Engine) UpdateMetadata(listJSON string) (string, error) {
	payload, err := json.Marshal(map[string]json.RawMessage{"metadata": json.RawMessage(listJSON)})
	if err != nil {
		return "", fmt.Errorf("wrap metadata: %w", err)
	}
	return e.Dispatch(actions.TypeUpdateMetadata, string(payload))
}

// --- Queries (frontend ← engine) ---

func (e *Engine) state() (*editor.State, error) {
	d, err := e.dispatcher()
	if err != nil {
		return nil, err
	}
	return d.State(), nil
}

func (e *Engine) GetDocument() (string, error) {
	s, err := e.state()
	if err != nil {
		return "", err
	}
	data, err := s.DocumentJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *Engine) GetSelection() (string, error) {
	s, err := e.state()
	if err != nil {
		return "", err
	}
	return toJSON(s.SelectedViews)
}

func (e *Engine) GetInteractionStatus() (string, error) {
	d, err := e.dispatcher()
	if err != nil {
		return "", err
	}
	return d.InteractionStatus().String(), nil
}

// GetNavigator waits for pending follow-up work and returns the layer tree.
func (e *Engine) GetNavigator() (string, error) {
	d, err := e.dispatcher()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), followUpWait)
	defer cancel()
	if err := d.FollowUpActionsFinished(ctx); err != nil {
		return "", err
	}
	return toJSON(d.Navigator())
}

// HitTest returns the path under the window point, or "" for none.
func (e *Engine) HitTest(x, y float64) (string, error) {
	s, err := e.state()
	if err != nil {
		return "", err
	}
	p, ok := HitTest(s, geometry.Pt[geometry.Window](x, y))
	if !ok {
		return "", nil
	}
	return p.String(), nil
}

// GetSelectionBounds returns the canvas rectangle JSON, or "null".
func (e *Engine) GetSelectionBounds() (string, error) {
	s, err := e.state()
	if err != nil {
		return "", err
	}
	r, ok := SelectionBounds(s)
	if !ok {
		return "null", nil
	}
	return toJSON(r)
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(data), nil
}
