package actions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
)

var ErrUnknownAction = errors.New("unknown action")

// Decode turns a wire message into an action. Actions without parameters
// accept an empty payload.
func Decode(typ string, payload json.RawMessage) (Action, error) {
	switch typ {
	case TypeBringForward:
		return BringForward(), nil
	case TypeSendBackward:
		return SendBackward(), nil
	case TypeBringToFront:
		return BringToFront(), nil
	case TypeSendToBack:
		return SendToBack(), nil
	case TypeWrapInGroup:
		return WrapInGroup{}, nil
	case TypeCopyProperties:
		return CopyProperties{}, nil
	case TypePasteLayout:
		return PasteLayout{}, nil
	case TypePasteStyle:
		return PasteStyle{}, nil
	case TypeFinishInteraction:
		return FinishInteraction{}, nil
	case TypeCancelInteraction:
		return CancelInteraction{}, nil
	case TypeWrapInElement:
		return decodeInto[WrapInElement](typ, payload)
	case TypeSetProp:
		return decodeInto[SetProp](typ, payload)
	case TypeSetCanvasFrames:
		return decodeInto[SetCanvasFrames](typ, payload)
	case TypeSetFocusedElement:
		return decodeInto[SetFocusedElement](typ, payload)
	case TypeSelectComponents:
		return decodeInto[SelectComponents](typ, payload)
	case TypeInsertElement:
		return decodeInto[InsertElement](typ, payload)
	case TypeUpdateFromWorker:
		return decodeInto[UpdateFromWorker](typ, payload)
	case TypeStartInteraction:
		return decodeInto[StartInteraction](typ, payload)
	case TypeUpdateInteraction:
		return decodeInto[UpdateInteraction](typ, payload)
	case TypeUpdateMetadata:
		var p struct {
			Metadata json.RawMessage `json:"metadata"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		m, err := metadata.Decode(bytes.NewReader(p.Metadata))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return UpdateMetadata{Metadata: m}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, typ)
	}
}

func decodeInto[A Action](typ string, payload json.RawMessage) (Action, error) {
	var a A
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return a, nil
}
