package session

import (
	"encoding/json"

	"github.com/canvasforge/canvasforge/backend-go/internal/actions"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/geometry"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Client to server.
	TypeAction      = "action"
	TypeShortcut    = "shortcut"
	TypeContextMenu = "contextMenu"
	TypePointer     = "pointer"
	TypeMetadata    = "metadata"

	// Server to client.
	TypeWelcome        = "welcome"
	TypeDispatchResult = "dispatch.result"
	TypeError          = "error"

	// Both directions.
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

type ActionPayload struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ShortcutPayload struct {
	Key       string               `json:"key"`
	Modifiers strategies.Modifiers `json:"modifiers"`
}

type ContextMenuPayload struct {
	Label string `json:"label"`
}

const (
	PhaseStart  = "start"
	PhaseMove   = "move"
	PhaseEnd    = "end"
	PhaseCancel = "cancel"
)

// PointerPayload is one gesture sample in window coordinates.
type PointerPayload struct {
	Phase     string                          `json:"phase"`
	Point     geometry.Point[geometry.Window] `json:"point"`
	Modifiers strategies.Modifiers            `json:"modifiers"`
}

type WelcomePayload struct {
	ClientID      string             `json:"clientId"`
	UserID        string             `json:"userId"`
	Seq           int64              `json:"seq"`
	Document      json.RawMessage    `json:"document"`
	SelectedViews []elementpath.Path `json:"selectedViews"`
}

// DispatchResultPayload carries the document only when it changed.
type DispatchResultPayload struct {
	Result      actions.Result  `json:"result"`
	Interaction string          `json:"interaction"`
	Document    json.RawMessage `json:"document,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	Cursor      *geometry.Point[geometry.Canvas] `json:"cursor,omitempty"`
	Selection   []elementpath.Path               `json:"selection,omitempty"`
	DisplayName string                           `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
