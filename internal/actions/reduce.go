package actions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/canvasforge/canvasforge/backend-go/internal/commands"
	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
	"github.com/canvasforge/canvasforge/backend-go/internal/typeid"
)

// layoutKeys are the style keys Paste Layout copies. Every other key is
// treated as visual style by Paste Style.
var layoutKeys = map[string]bool{
	"position": true, "left": true, "top": true, "right": true, "bottom": true,
	"width": true, "height": true,
	"minWidth": true, "maxWidth": true, "minHeight": true, "maxHeight": true,
	"margin": true, "marginLeft": true, "marginTop": true, "marginRight": true, "marginBottom": true,
	"padding": true, "paddingLeft": true, "paddingTop": true, "paddingRight": true, "paddingBottom": true,
	"display": true, "flex": true, "flexGrow": true, "flexShrink": true, "flexBasis": true,
	"flexDirection": true, "flexWrap": true, "alignItems": true, "alignSelf": true,
	"justifyContent": true, "gap": true, "contain": true,
}

func IsLayoutKey(key string) bool { return layoutKeys[key] }

func outcome(results []commands.Result) Outcome {
	out := Outcome{Patches: []editor.Patch{}, Descriptions: commands.Descriptions(results)}
	for _, r := range results {
		out.Patches = append(out.Patches, r.Patches...)
	}
	return out
}

// reduce runs a one-shot action against s.
func reduce(s *editor.State, a Action, uids typeid.UIDGenerator) (*editor.State, []commands.Result, error) {
	switch a := a.(type) {
	case ZOrder:
		return reduceZOrder(s, a)
	case WrapInElement:
		targets := a.Targets
		if len(targets) == 0 {
			targets = s.SelectedViews
		}
		return wrap(s, targets, a.Wrapper, a.UID, uids)
	case WrapInGroup:
		return wrap(s, s.SelectedViews, commands.WrapperGroup, "", uids)
	case CopyProperties:
		return reduceCopyProperties(s)
	case PasteLayout:
		return reducePaste(s, true)
	case PasteStyle:
		return reducePaste(s, false)
	case SetProp:
		return commands.RunAll(s, []commands.Command{
			commands.NewSetProperty(commands.Always, a.Target, a.Prop, a.Value),
		}, commands.PhaseComplete)
	case SetCanvasFrames:
		cmds := make([]commands.Command, 0, len(a.Frames))
		for _, f := range a.Frames {
			cmds = append(cmds, commands.NewUpdateFrame(commands.Always, f.Path, f.Frame))
		}
		return commands.RunAll(s, cmds, commands.PhaseComplete)
	case SetFocusedElement:
		if a.Path != nil && !metadata.IsFocusable(s.Document, s.Metadata, *a.Path) {
			return s, nil, nil
		}
		return commands.RunAll(s, []commands.Command{
			commands.NewSetFocusedElement(commands.Always, a.Path),
		}, commands.PhaseComplete)
	case SelectComponents:
		paths := a.Paths
		if a.AddToSelection {
			paths = slices.Clone(s.SelectedViews)
			for _, p := range a.Paths {
				if !elementpath.Contains(paths, p) {
					paths = append(paths, p)
				}
			}
		}
		return commands.RunAll(s, []commands.Command{
			commands.NewUpdateSelectedViews(commands.Always, paths...),
		}, commands.PhaseComplete)
	case InsertElement:
		el := a.Element
		if el.UID == "" {
			el.UID = uids.GenerateUID(s.Document.AllUIDs(), strings.ToLower(el.Name))
		}
		return commands.RunAll(s, []commands.Command{
			commands.NewInsertElement(commands.Always, a.Parent, a.Index, el),
		}, commands.PhaseComplete)
	case UpdateMetadata:
		return applyPatches(s, "Update metadata", editor.Patch{Kind: editor.PatchMetadata, Metadata: a.Metadata})
	case UpdateFromWorker:
		return reduceUpdateFromWorker(s, a)
	default:
		return s, nil, fmt.Errorf("unsupported action %s", a.Type())
	}
}

func applyPatches(s *editor.State, description string, patches ...editor.Patch) (*editor.State, []commands.Result, error) {
	next, err := editor.ApplyPatches(s, patches)
	if err != nil {
		return s, nil, err
	}
	return next, []commands.Result{{Patches: patches, Description: description}}, nil
}

// reduceZOrder moves each selected element in turn. Children of a
// conditional have a fixed slot and are left alone.
func reduceZOrder(s *editor.State, a ZOrder) (*editor.State, []commands.Result, error) {
	cur := s
	var results []commands.Result
	for _, target := range s.SelectedViews {
		if metadata.IsInsideConditional(cur.Document, target) {
			results = append(results, commands.Result{
				Patches:     []editor.Patch{},
				Description: fmt.Sprintf("Not reordering %s inside a conditional", target.ToUID()),
			})
			continue
		}
		index, err := commands.ZOrderIndex(cur.Document, target, a.Op)
		if err != nil {
			return s, nil, err
		}
		next, res, err := commands.RunAll(cur, []commands.Command{
			commands.NewReorderElement(commands.Always, target, index),
		}, commands.PhaseComplete)
		if err != nil {
			return s, nil, err
		}
		cur = next
		results = append(results, res...)
	}
	return cur, results, nil
}

func wrap(s *editor.State, targets []elementpath.Path, kind commands.WrapperKind, uid string, uids typeid.UIDGenerator) (*editor.State, []commands.Result, error) {
	if len(targets) == 0 {
		return s, nil, nil
	}
	if uid == "" {
		uid = uids.GenerateUID(s.Document.AllUIDs(), strings.ToLower(string(kind)))
	}
	return commands.RunAll(s, []commands.Command{
		commands.NewWrapInElement(commands.Always, targets, kind, uid),
	}, commands.PhaseComplete)
}

func reduceCopyProperties(s *editor.State) (*editor.State, []commands.Result, error) {
	if len(s.SelectedViews) != 1 {
		return s, nil, nil
	}
	source := s.SelectedViews[0]
	el, err := s.Document.FindElement(source)
	if err != nil {
		return s, nil, err
	}
	return commands.RunAll(s, []commands.Command{
		commands.NewUpdateClipboard(commands.Always, &editor.Clipboard{Source: source, Style: el.Style.Clone()}),
	}, commands.PhaseComplete)
}

// reducePaste applies the clipboard style to the selection. Layout copies
// the layout keys over; style drops the target's visual keys and appends
// the source's.
func reducePaste(s *editor.State, layout bool) (*editor.State, []commands.Result, error) {
	if s.Clipboard == nil || len(s.SelectedViews) == 0 {
		return s, nil, nil
	}
	var cmds []commands.Command
	for _, target := range s.SelectedViews {
		el, err := s.Document.FindElement(target)
		if err != nil {
			return s, nil, err
		}
		if !layout {
			var drop []string
			for _, key := range el.Style.Keys() {
				if !IsLayoutKey(key) {
					drop = append(drop, "style."+key)
				}
			}
			if len(drop) > 0 {
				cmds = append(cmds, commands.NewDeleteProperties(commands.Always, target, drop...))
			}
		}
		for _, prop := range s.Clipboard.Style {
			if IsLayoutKey(prop.Key) == layout {
				cmds = append(cmds, commands.NewSetProperty(commands.Always, target, "style."+prop.Key, prop.Value))
			}
		}
	}
	return commands.RunAll(s, cmds, commands.PhaseComplete)
}

// reduceUpdateFromWorker applies codec results only when every one of them
// was computed from the current file version.
func reduceUpdateFromWorker(s *editor.State, a UpdateFromWorker) (*editor.State, []commands.Result, error) {
	for _, u := range a.Updates {
		if f, ok := s.Document.Files[u.File]; ok && u.Version < f.Version {
			return applyPatches(s, fmt.Sprintf("Skip stale update of %s (version %d < %d)", u.File, u.Version, f.Version),
				editor.Patch{Kind: editor.PatchParseSkipped, Flag: true})
		}
	}

	patches := make([]editor.Patch, 0, len(a.Updates)+1)
	for _, u := range a.Updates {
		patches = append(patches, editor.DocumentPatch(document.Operation{
			Type:     document.OpReplaceFile,
			File:     &document.File{Path: u.File, Version: u.Version + 1},
			Elements: u.Elements,
		}))
	}
	patches = append(patches, editor.Patch{Kind: editor.PatchParseSkipped, Flag: false})
	return applyPatches(s, fmt.Sprintf("Update %d file(s) from worker", len(a.Updates)), patches...)
}
