package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canvasforge/canvasforge/backend-go/internal/actions"
)

var (
	ErrUnboundTrigger = errors.New("no action bound")
	ErrUnknownPhase   = errors.New("unknown pointer phase")
)

// toAction turns an editing message into the action it triggers.
func toAction(msg *Message) (actions.Action, error) {
	switch msg.Type {
	case TypeAction:
		var p ActionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		return actions.Decode(p.Type, p.Payload)

	case TypeShortcut:
		var p ShortcutPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode shortcut: %w", err)
		}
		a, ok := actions.ShortcutAction(p.Key, p.Modifiers)
		if !ok {
			return nil, fmt.Errorf("%w to shortcut %q", ErrUnboundTrigger, p.Key)
		}
		return a, nil

	case TypeContextMenu:
		var p ContextMenuPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode context menu: %w", err)
		}
		a, ok := actions.ContextMenuAction(p.Label)
		if !ok {
			return nil, fmt.Errorf("%w to menu item %q", ErrUnboundTrigger, p.Label)
		}
		return a, nil

	case TypePointer:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode pointer: %w", err)
		}
		switch p.Phase {
		case PhaseStart:
			return actions.StartInteraction{Point: p.Point, Modifiers: p.Modifiers}, nil
		case PhaseMove:
			return actions.UpdateInteraction{Point: p.Point, Modifiers: p.Modifiers}, nil
		case PhaseEnd:
			return actions.FinishInteraction{}, nil
		case PhaseCancel:
			return actions.CancelInteraction{}, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, p.Phase)
		}

	case TypeMetadata:
		return actions.Decode(actions.TypeUpdateMetadata, msg.Payload)

	default:
		return nil, fmt.Errorf("%w: %s", actions.ErrUnknownAction, msg.Type)
	}
}
