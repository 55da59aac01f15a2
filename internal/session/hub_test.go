package session

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/canvasforge/canvasforge/backend-go/internal/actions"
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

const waitFor = 2 * time.Second

type fakeConn struct {
	in   chan []byte
	out  chan []byte
	once sync.Once
	done chan struct{}
	code websocket.StatusCode
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), out: make(chan []byte, 256), done: make(chan struct{})}
}

func (c *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return 0, nil, websocket.CloseError{Code: websocket.StatusNormalClosure}
		}
		return websocket.MessageText, data, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *fakeConn) Write(ctx context.Context, _ websocket.MessageType, p []byte) error {
	select {
	case c.out <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeConn) Ping(context.Context) error { return nil }

func (c *fakeConn) Close(code websocket.StatusCode, _ string) error {
	c.once.Do(func() {
		c.code = code
		close(c.done)
	})
	return nil
}

func (c *fakeConn) SetReadLimit(int64) {}

// recv returns the next message of type typ, skipping others.
func (c *fakeConn) recv(t *testing.T, typ string) *Message {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case data := <-c.out:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if msg.Type == typ {
				return &msg
			}
		case <-timeout:
			t.Fatalf("no %s message within %s", typ, waitFor)
			return nil
		}
	}
}

func (c *fakeConn) send(t *testing.T, typ string, payload any) {
	t.Helper()
	msg, err := newMessage(typ, payload)
	if err != nil {
		t.Fatalf("newMessage: %v", err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	c.in <- data
}

type memoryProjects struct {
	mu    sync.Mutex
	docs  map[string]*document.Document
	saves map[string]int
}

func (m *memoryProjects) load(_ context.Context, projectID string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[projectID]
	if !ok {
		return nil, errors.New("no such project")
	}
	return doc.Clone(), nil
}

func (m *memoryProjects) save(_ context.Context, projectID string, doc *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[projectID] = doc.Clone()
	m.saves[projectID]++
	return nil
}

func (m *memoryProjects) snapshot(projectID string) (*document.Document, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[projectID], m.saves[projectID]
}

func newTestHub(t *testing.T, opts ...Option) (*Hub, *memoryProjects) {
	t.Helper()
	projects := &memoryProjects{
		docs:  map[string]*document.Document{"proj_a": editortest.MustProject(t, threeBlocks)},
		saves: map[string]int{},
	}
	h := NewHub(projects.load, projects.save, opts...)
	go h.Run()
	t.Cleanup(h.Stop)
	return h, projects
}

func connect(t *testing.T, h *Hub, userID, clientID string) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	c := NewClient(h, conn, userID, userID, "proj_a", clientID)
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.WritePump(ctx)
	go c.ReadPump(ctx)
	return conn
}

func selectPayload(uids string) ActionPayload {
	paths, _ := json.Marshal(map[string]any{"paths": []string{editortest.AppRoot + uids}})
	return ActionPayload{Type: "SELECT_COMPONENTS", Payload: paths}
}

func decodeResult(t *testing.T, msg *Message) (DispatchResultPayload, *document.Document) {
	t.Helper()
	var p DispatchResultPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("decode dispatch result: %v", err)
	}
	if len(p.Document) == 0 {
		return p, nil
	}
	var doc document.Document
	if err := json.Unmarshal(p.Document, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return p, &doc
}

func TestWelcomeCarriesDocument(t *testing.T) {
	h, _ := newTestHub(t)
	conn := connect(t, h, "user_ada", "c1")

	msg := conn.recv(t, TypeWelcome)
	var welcome WelcomePayload
	if err := json.Unmarshal(msg.Payload, &welcome); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if welcome.ClientID != "c1" || welcome.UserID != "user_ada" {
		t.Errorf("welcome = %+v", welcome)
	}
	var doc document.Document
	if err := json.Unmarshal(welcome.Document, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if got := editortest.Children(&doc, "container"); !slices.Equal(got, []string{"aaa", "bbb", "ccc"}) {
		t.Errorf("children = %v", got)
	}
	if h.RoomCount() != 1 {
		t.Errorf("RoomCount = %d, want 1", h.RoomCount())
	}
}

func TestRegisterFailsForUnknownProject(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, newFakeConn(), "user_ada", "Ada", "proj_missing", "c1")
	if err := h.Register(c); err == nil {
		t.Error("Register should fail for a project that cannot be loaded")
	}
	if h.RoomCount() != 0 {
		t.Errorf("RoomCount = %d, want 0", h.RoomCount())
	}
}

func TestDispatchIsBroadcast(t *testing.T) {
	h, _ := newTestHub(t)
	ada := connect(t, h, "user_ada", "c1")
	bob := connect(t, h, "user_bob", "c2")
	ada.recv(t, TypeWelcome)
	bob.recv(t, TypeWelcome)

	ada.send(t, TypeAction, selectPayload("container/aaa"))
	ada.recv(t, TypeDispatchResult)
	bob.recv(t, TypeDispatchResult)

	ada.send(t, TypeContextMenu, ContextMenuPayload{Label: "Bring To Front"})
	for name, conn := range map[string]*fakeConn{"ada": ada, "bob": bob} {
		msg := conn.recv(t, TypeDispatchResult)
		if msg.Seq != 2 || msg.UserID != "user_ada" {
			t.Errorf("%s: seq %d from %q, want seq 2 from user_ada", name, msg.Seq, msg.UserID)
		}
		res, doc := decodeResult(t, msg)
		if !res.Result.Changed || doc == nil {
			t.Fatalf("%s: result did not carry the changed document", name)
		}
		if got := editortest.Children(doc, "container"); !slices.Equal(got, []string{"bbb", "ccc", "aaa"}) {
			t.Errorf("%s: children = %v, want [bbb ccc aaa]", name, got)
		}
	}
}

func TestRejectedMessagesReturnError(t *testing.T) {
	h, _ := newTestHub(t)
	conn := connect(t, h, "user_ada", "c1")
	conn.recv(t, TypeWelcome)

	tests := map[string]struct {
		typ     string
		payload any
	}{
		"unknown action":   {typ: TypeAction, payload: ActionPayload{Type: "EXPLODE"}},
		"unbound shortcut": {typ: TypeShortcut, payload: ShortcutPayload{Key: "q"}},
		"unknown menu":     {typ: TypeContextMenu, payload: ContextMenuPayload{Label: "Explode"}},
		"unknown phase":    {typ: TypePointer, payload: map[string]string{"phase": "hover"}},
		"unknown type":     {typ: "doc.sync", payload: struct{}{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			conn.send(t, tt.typ, tt.payload)
			msg := conn.recv(t, TypeError)
			var p ErrorPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Message == "" {
				t.Errorf("error payload = %s", msg.Payload)
			}
		})
	}
}

func TestPointerLifecycle(t *testing.T) {
	h, _ := newTestHub(t)
	conn := connect(t, h, "user_ada", "c1")
	conn.recv(t, TypeWelcome)

	steps := []struct {
		phase string
		want  string
	}{
		{phase: PhaseStart, want: "active"},
		{phase: PhaseMove, want: "active"},
		{phase: PhaseEnd, want: "idle"},
	}
	for _, step := range steps {
		conn.send(t, TypePointer, PointerPayload{Phase: step.phase})
		res, _ := decodeResult(t, conn.recv(t, TypeDispatchResult))
		if res.Interaction != step.want {
			t.Errorf("after %s interaction = %q, want %q", step.phase, res.Interaction, step.want)
		}
	}
}

func TestLastClientLeavingSavesDocument(t *testing.T) {
	h, projects := newTestHub(t)
	conn := connect(t, h, "user_ada", "c1")
	conn.recv(t, TypeWelcome)

	conn.send(t, TypeAction, selectPayload("container/aaa"))
	conn.recv(t, TypeDispatchResult)
	conn.send(t, TypeShortcut, ShortcutPayload{Key: "]", Modifiers: cmdMods()})
	conn.recv(t, TypeDispatchResult)

	close(conn.in)
	deadline := time.Now().Add(waitFor)
	for h.RoomCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.RoomCount() != 0 {
		t.Fatal("room still open after the last client left")
	}

	doc, saves := projects.snapshot("proj_a")
	if saves != 1 {
		t.Errorf("saves = %d, want 1", saves)
	}
	if got := editortest.Children(doc, "container"); !slices.Equal(got, []string{"bbb", "aaa", "ccc"}) {
		t.Errorf("saved children = %v, want [bbb aaa ccc]", got)
	}
}

func TestAutosaveOnlyWhenDirty(t *testing.T) {
	h, projects := newTestHub(t, WithAutosaveInterval(10*time.Millisecond))
	conn := connect(t, h, "user_ada", "c1")
	conn.recv(t, TypeWelcome)

	time.Sleep(50 * time.Millisecond)
	if _, saves := projects.snapshot("proj_a"); saves != 0 {
		t.Fatalf("saves before any edit = %d, want 0", saves)
	}

	conn.send(t, TypeAction, selectPayload("container/ccc"))
	conn.recv(t, TypeDispatchResult)
	conn.send(t, TypeContextMenu, ContextMenuPayload{Label: "Send To Back"})
	conn.recv(t, TypeDispatchResult)

	// The selection alone may already have been autosaved.
	deadline := time.Now().Add(waitFor)
	var saves int
	for {
		var doc *document.Document
		doc, saves = projects.snapshot("proj_a")
		if slices.Equal(editortest.Children(doc, "container"), []string{"ccc", "aaa", "bbb"}) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("document was not autosaved")
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	if _, after := projects.snapshot("proj_a"); after != saves {
		t.Errorf("saves grew from %d to %d without edits", saves, after)
	}
}

func TestStopSavesAndRejectsRegistrations(t *testing.T) {
	projects := &memoryProjects{
		docs:  map[string]*document.Document{"proj_a": editortest.MustProject(t, threeBlocks)},
		saves: map[string]int{},
	}
	h := NewHub(projects.load, projects.save)
	go h.Run()

	conn := newFakeConn()
	c := NewClient(h, conn, "user_ada", "Ada", "proj_a", "c1")
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	h.dispatch(mustRoom(t, h, "proj_a"), c, mustAction(t, TypeAction, selectPayload("container/aaa")))
	h.dispatch(mustRoom(t, h, "proj_a"), c, mustAction(t, TypeContextMenu, ContextMenuPayload{Label: "Bring Forward"}))

	h.Stop()
	if _, saves := projects.snapshot("proj_a"); saves != 1 {
		t.Errorf("saves after Stop = %d, want 1", saves)
	}
	if err := h.Register(NewClient(h, newFakeConn(), "user_bob", "Bob", "proj_a", "c2")); !errors.Is(err, ErrHubStopped) {
		t.Errorf("Register after Stop error = %v, want ErrHubStopped", err)
	}
	h.Unregister(c) // must not block
}

func mustRoom(t *testing.T, h *Hub, projectID string) *Room {
	t.Helper()
	room, ok := h.room(projectID)
	if !ok {
		t.Fatalf("no room for %s", projectID)
	}
	return room
}

func mustAction(t *testing.T, typ string, payload any) actions.Action {
	t.Helper()
	msg, err := newMessage(typ, payload)
	if err != nil {
		t.Fatalf("newMessage: %v", err)
	}
	a, err := toAction(msg)
	if err != nil {
		t.Fatalf("toAction: %v", err)
	}
	return a
}

func cmdMods() strategies.Modifiers { return strategies.Modifiers{Cmd: true} }

func TestLaggingClientIsDisconnected(t *testing.T) {
	h, _ := newTestHub(t)
	conn := newFakeConn()
	c := NewClient(h, conn, "user_ada", "Ada", "proj_a", "c1")

	for range sendBuffer + 1 {
		c.SendError("backlog")
	}
	c.SendError("after disconnect") // must not panic

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.WritePump(ctx)

	select {
	case <-conn.done:
	case <-time.After(waitFor):
		t.Fatal("connection not closed")
	}
	if conn.code != websocket.StatusPolicyViolation {
		t.Errorf("close code = %v, want %v", conn.code, websocket.StatusPolicyViolation)
	}
	if got := len(conn.out); got != sendBuffer {
		t.Errorf("frames written = %d, want %d", got, sendBuffer)
	}
}
