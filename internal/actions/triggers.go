package actions

import (
	"strings"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
)

type shortcut struct {
	key  string
	mods strategies.Modifiers
}

var (
	cmd    = strategies.Modifiers{Cmd: true}
	altCmd = strategies.Modifiers{Alt: true, Cmd: true}
)

var shortcuts = map[shortcut]func() Action{
	{"]", cmd}:     func() Action { return BringForward() },
	{"[", cmd}:     func() Action { return SendBackward() },
	{"]", altCmd}:  func() Action { return BringToFront() },
	{"[", altCmd}:  func() Action { return SendToBack() },
	{"c", altCmd}:  func() Action { return CopyProperties{} },
	{"g", cmd}:     func() Action { return WrapInGroup{} },
	{"enter", cmd}: func() Action { return WrapInElement{Wrapper: commands.WrapperDiv} },
}

// ShortcutAction maps a key press to its action. Key matching ignores case.
func ShortcutAction(key string, mods strategies.Modifiers) (Action, bool) {
	newAction, ok := shortcuts[shortcut{key: strings.ToLower(key), mods: mods}]
	if !ok {
		return nil, false
	}
	return newAction(), true
}

var contextMenu = map[string]func() Action{
	"Bring Forward":   func() Action { return BringForward() },
	"Send Backward":   func() Action { return SendBackward() },
	"Bring To Front":  func() Action { return BringToFront() },
	"Send To Back":    func() Action { return SendToBack() },
	"Copy Properties": func() Action { return CopyProperties{} },
	"Paste Layout":    func() Action { return PasteLayout{} },
	"Paste Style":     func() Action { return PasteStyle{} },
	"Group Selection": func() Action { return WrapInGroup{} },
	"Wrap in div":     func() Action { return WrapInElement{Wrapper: commands.WrapperDiv} },
}

// ContextMenuAction maps a context menu label to its action.
func ContextMenuAction(label string) (Action, bool) {
	newAction, ok := contextMenu[label]
	if !ok {
		return nil, false
	}
	return newAction(), true
}
