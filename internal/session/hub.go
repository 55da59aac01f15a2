// Package session runs live editing sessions over websockets. Each open
// project gets a room that owns one dispatcher; every client in the room
// sees the results of every dispatch in the same order.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canvasforge/canvasforge/backend-go/internal/actions"
	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
)

var ErrHubStopped = errors.New("session hub stopped")

const (
	defaultAutosave = 30 * time.Second
	saveTimeout     = 10 * time.Second
)

type (
	Loader func(ctx context.Context, projectID string) (*document.Document, error)
	Saver  func(ctx context.Context, projectID string, doc *document.Document) error
)

type Room struct {
	projectID  string
	clients    map[string]*Client // clientID -> client, guarded by Hub.mu
	presence   *Presence
	dispatcher *actions.Dispatcher

	// mu orders dispatches and the messages announcing them.
	mu    sync.Mutex
	seq   int64
	dirty bool
	saved *editor.State
}

func newRoom(projectID string, d *actions.Dispatcher) *Room {
	return &Room{
		projectID:  projectID,
		clients:    make(map[string]*Client),
		presence:   NewPresence(),
		dispatcher: d,
		saved:      d.Committed(),
	}
}

type Option func(*Hub)

func WithAutosaveInterval(d time.Duration) Option {
	return func(h *Hub) { h.autosave = d }
}

// WithDispatcherOptions configures the dispatcher of every new room.
func WithDispatcherOptions(opts ...actions.Option) Option {
	return func(h *Hub) { h.dispatcherOpts = append(h.dispatcherOpts, opts...) }
}

type registration struct {
	client *Client
	result chan error
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan registration
	unregister chan *Client

	load           Loader
	save           Saver
	autosave       time.Duration
	dispatcherOpts []actions.Option

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewHub(load Loader, save Saver, opts ...Option) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan registration),
		unregister: make(chan *Client),
		load:       load,
		save:       save,
		autosave:   defaultAutosave,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves registrations and autosaves until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.autosave)
	defer ticker.Stop()

	for {
		select {
		case reg := <-h.register:
			reg.result <- h.addClient(reg.client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveAll()
		case <-h.stop:
			h.saveAll()
			h.closeAll()
			close(h.done)
			return
		}
	}
}

// Stop saves every edited document and disconnects all clients. Run must
// be running.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Register joins client to the room of its project, loading the project
// on first use.
func (h *Hub) Register(client *Client) error {
	reg := registration{client: client, result: make(chan error, 1)}
	select {
	case h.register <- reg:
		return <-reg.result
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) room(projectID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[projectID]
	return room, ok
}

// openRoom is only called from Run, so a room is never loaded twice.
func (h *Hub) openRoom(projectID string) (*Room, error) {
	if room, ok := h.room(projectID); ok {
		return room, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	doc, err := h.load(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}

	room := newRoom(projectID, actions.NewDispatcher(editor.NewState(doc, nil), h.dispatcherOpts...))
	h.mu.Lock()
	h.rooms[projectID] = room
	h.mu.Unlock()
	slog.Info("room opened", "project", projectID)
	return room, nil
}

func (h *Hub) addClient(client *Client) error {
	room, err := h.openRoom(client.ProjectID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	welcome, err := h.welcome(room, client)
	if err == nil {
		client.Send(welcome)
	}
	room.mu.Unlock()
	if err != nil {
		slog.Error("build welcome", "error", err, "project", client.ProjectID)
	}

	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	if joinMsg, err := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}); err == nil {
		joinMsg.UserID = client.UserID
		h.broadcastToRoom(client.ProjectID, joinMsg, client.ClientID)
	}

	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
	return nil
}

// welcome must be called with room.mu held.
func (h *Hub) welcome(room *Room, client *Client) (*Message, error) {
	s := room.dispatcher.State()
	doc, err := s.DocumentJSON()
	if err != nil {
		return nil, err
	}
	msg, err := newMessage(TypeWelcome, WelcomePayload{
		ClientID:      client.ClientID,
		UserID:        client.UserID,
		Seq:           room.seq,
		Document:      doc,
		SelectedViews: s.SelectedViews,
	})
	if err != nil {
		return nil, err
	}
	msg.Seq = room.seq
	return msg, nil
}

func (h *Hub) removeClient(client *Client) {
	room, ok := h.room(client.ProjectID)
	if !ok {
		client.closeSend()
		return
	}

	room.mu.Lock()
	h.mu.Lock()
	delete(room.clients, client.ClientID)
	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ProjectID)
	}
	h.mu.Unlock()
	client.closeSend()
	room.presence.Remove(client.UserID)
	if empty {
		h.saveLocked(room)
	}
	room.mu.Unlock()

	if empty {
		slog.Info("room closed", "project", client.ProjectID)
	} else if leaveMsg, err := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID}); err == nil {
		leaveMsg.UserID = client.UserID
		h.broadcastToRoom(client.ProjectID, leaveMsg, "")
	}

	slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.room(sender.ProjectID)
	if !ok {
		return
	}

	if msg.Type == TypePresenceUpdate {
		h.handlePresenceUpdate(room, sender, msg)
		return
	}

	a, err := toAction(msg)
	if err != nil {
		slog.Warn("rejected message", "type", msg.Type, "error", err, "user", sender.UserID)
		sender.SendError(err.Error())
		return
	}
	h.dispatch(room, sender, a)
}

func (h *Hub) dispatch(room *Room, sender *Client, a actions.Action) {
	room.mu.Lock()
	defer room.mu.Unlock()

	res := room.dispatcher.Dispatch(a)
	if room.dispatcher.Committed() != room.saved {
		room.dirty = true
	}
	room.seq++

	payload := DispatchResultPayload{
		Result:      res,
		Interaction: room.dispatcher.InteractionStatus().String(),
	}
	if res.Changed {
		doc, err := room.dispatcher.State().DocumentJSON()
		if err != nil {
			slog.Error("encode document", "error", err, "project", room.projectID)
		}
		payload.Document = doc
	}

	out, err := newMessage(TypeDispatchResult, payload)
	if err != nil {
		slog.Error("marshal dispatch result", "error", err)
		return
	}
	out.Seq = room.seq
	out.UserID = sender.UserID
	out.ClientID = sender.ClientID
	h.broadcastToRoom(room.projectID, out, "")
}

func (h *Hub) handlePresenceUpdate(room *Room, sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		sender.SendError("invalid presence payload")
		return
	}
	presence.DisplayName = sender.DisplayName
	room.presence.Update(sender.UserID, &presence)

	out, err := newMessage(TypePresenceUpdate, presence)
	if err != nil {
		slog.Error("marshal presence", "error", err)
		return
	}
	out.UserID = sender.UserID
	h.broadcastToRoom(sender.ProjectID, out, sender.ClientID)
}

func (h *Hub) broadcastToRoom(projectID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[projectID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func (h *Hub) saveAll() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		room.mu.Lock()
		h.saveLocked(room)
		room.mu.Unlock()
	}
}

// saveLocked writes the committed document of a dirty room. The caller
// holds room.mu. A failed save leaves the room dirty for the next attempt.
func (h *Hub) saveLocked(room *Room) {
	if !room.dirty {
		return
	}
	state := room.dispatcher.Committed()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := h.save(ctx, room.projectID, state.Document); err != nil {
		slog.Error("save document", "error", err, "project", room.projectID)
		return
	}
	room.saved = state
	room.dirty = false
	slog.Debug("document saved", "project", room.projectID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.closeSend()
		}
		delete(h.rooms, id)
	}
}
