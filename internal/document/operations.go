package document

import (
	"fmt"
	"slices"
)

type OpType string

const (
	OpSetProp     OpType = "element.setProp"
	OpDeleteProp  OpType = "element.deleteProp"
	OpSetChildren OpType = "element.setChildren"
	OpInsert      OpType = "element.insert"
	OpReparent    OpType = "element.reparent"
	OpRemove      OpType = "element.remove"
	OpReplaceFile OpType = "file.replace"
)

// Operation is a declarative document mutation.
type Operation struct {
	Type OpType `json:"type"`
	UID  string `json:"uid,omitempty"`

	// For element.setProp / element.deleteProp. Paths prefixed with
	// "style." address the style list.
	Prop  string   `json:"prop,omitempty"`
	Value any      `json:"value,omitempty"`
	Props []string `json:"props,omitempty"`

	// For element.setChildren
	Children []string `json:"children,omitempty"`

	// For element.insert. ReplaceUID takes over the slot of an existing
	// child, detaching it.
	Element    *Element `json:"element,omitempty"`
	ParentUID  string   `json:"parentUid,omitempty"`
	Index      *int     `json:"index,omitempty"`
	ReplaceUID string   `json:"replaceUid,omitempty"`

	// For element.reparent (Index shared with element.insert)
	NewParentUID string `json:"newParentUid,omitempty"`

	// For file.replace
	File     *File              `json:"file,omitempty"`
	Elements map[string]Element `json:"elements,omitempty"`
}

func IntPtr(i int) *int { return &i }

// Apply mutates d. Callers that need the previous document must Clone first.
func (d *Document) Apply(op Operation) error {
	switch op.Type {
	case OpSetProp:
		return d.applySetProp(op)
	case OpDeleteProp:
		return d.applyDeleteProp(op)
	case OpSetChildren:
		return d.applySetChildren(op)
	case OpInsert:
		return d.applyInsert(op)
	case OpReparent:
		return d.applyReparent(op)
	case OpRemove:
		return d.applyRemove(op)
	case OpReplaceFile:
		return d.applyReplaceFile(op)
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

func (d *Document) applySetProp(op Operation) error {
	el, ok := d.Elements[op.UID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, op.UID)
	}

	if isStyle, key := SplitPropPath(op.Prop); isStyle {
		el.Style = el.Style.Set(key, op.Value)
	} else {
		el.Props = el.Props.Set(key, op.Value)
	}

	d.Elements[op.UID] = el
	return nil
}

func (d *Document) applyDeleteProp(op Operation) error {
	el, ok := d.Elements[op.UID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, op.UID)
	}

	var styleKeys, propKeys []string
	for _, path := range op.Props {
		if isStyle, key := SplitPropPath(path); isStyle {
			styleKeys = append(styleKeys, key)
		} else {
			propKeys = append(propKeys, key)
		}
	}
	if len(styleKeys) > 0 {
		el.Style = el.Style.Delete(styleKeys...)
	}
	if len(propKeys) > 0 {
		el.Props = el.Props.Delete(propKeys...)
	}

	d.Elements[op.UID] = el
	return nil
}

// applySetChildren only reorders: the new list must be a permutation of the
// current one.
func (d *Document) applySetChildren(op Operation) error {
	el, ok := d.Elements[op.UID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, op.UID)
	}

	current := slices.Clone(el.Children)
	next := slices.Clone(op.Children)
	slices.Sort(current)
	slices.Sort(next)
	if !slices.Equal(current, next) {
		return fmt.Errorf("%w: %v is not a reordering of %v", ErrInvalidChildren, op.Children, el.Children)
	}

	el.Children = slices.Clone(op.Children)
	d.Elements[op.UID] = el
	return nil
}

func (d *Document) applyInsert(op Operation) error {
	if op.Element == nil {
		return fmt.Errorf("insert: missing element")
	}
	obj := op.Element.Clone()
	if _, exists := d.Elements[obj.UID]; exists {
		return fmt.Errorf("insert: uid %q already in use", obj.UID)
	}
	parent, ok := d.Elements[op.ParentUID]
	if !ok {
		return fmt.Errorf("%w: parent %s", ErrElementNotFound, op.ParentUID)
	}

	switch {
	case op.ReplaceUID != "":
		idx := slices.Index(parent.Children, op.ReplaceUID)
		if idx < 0 {
			return fmt.Errorf("%w: %s is not a child of %s", ErrInvalidChildren, op.ReplaceUID, op.ParentUID)
		}
		parent.Children = slices.Clone(parent.Children)
		parent.Children[idx] = obj.UID
		if replaced, ok := d.Elements[op.ReplaceUID]; ok {
			replaced.Parent = nil
			d.Elements[op.ReplaceUID] = replaced
		}
	case parent.Kind == KindConditional:
		return fmt.Errorf("%w: conditional %s has fixed branches", ErrInvalidChildren, op.ParentUID)
	default:
		parent.Children = insertAt(parent.Children, obj.UID, op.Index)
	}

	parentUID := op.ParentUID
	obj.Parent = &parentUID
	d.Elements[obj.UID] = obj
	d.Elements[op.ParentUID] = parent
	return nil
}

func (d *Document) applyReparent(op Operation) error {
	obj, ok := d.Elements[op.UID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, op.UID)
	}
	newParent, ok := d.Elements[op.NewParentUID]
	if !ok {
		return fmt.Errorf("%w: new parent %s", ErrElementNotFound, op.NewParentUID)
	}
	if op.UID == op.NewParentUID || d.IsAncestorUID(op.UID, op.NewParentUID) {
		return fmt.Errorf("%w: %s into %s", ErrCycle, op.UID, op.NewParentUID)
	}
	if newParent.Kind == KindConditional {
		return fmt.Errorf("%w: conditional %s has fixed branches", ErrInvalidChildren, op.NewParentUID)
	}

	// Remove from old parent
	if obj.Parent != nil {
		if oldParent, ok := d.Elements[*obj.Parent]; ok {
			if oldParent.Kind == KindConditional {
				return fmt.Errorf("%w: %s must be replaced in conditional %s before moving", ErrInvalidChildren, op.UID, oldParent.UID)
			}
			oldParent.Children = slices.DeleteFunc(slices.Clone(oldParent.Children), func(c string) bool { return c == op.UID })
			d.Elements[*obj.Parent] = oldParent
		}
	}

	// Re-read in case the old parent is also the new parent.
	newParent = d.Elements[op.NewParentUID]
	newParent.Children = insertAt(newParent.Children, op.UID, op.Index)
	d.Elements[op.NewParentUID] = newParent

	parentUID := op.NewParentUID
	obj.Parent = &parentUID
	d.Elements[op.UID] = obj
	return nil
}

// applyRemove deletes an element and its subtree.
func (d *Document) applyRemove(op Operation) error {
	obj, ok := d.Elements[op.UID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, op.UID)
	}

	if obj.Parent != nil {
		if parent, ok := d.Elements[*obj.Parent]; ok {
			if parent.Kind == KindConditional {
				return fmt.Errorf("%w: %s must be replaced in conditional %s before removal", ErrInvalidChildren, op.UID, parent.UID)
			}
			parent.Children = slices.DeleteFunc(slices.Clone(parent.Children), func(c string) bool { return c == op.UID })
			d.Elements[*obj.Parent] = parent
		}
	}

	var drop func(uid string)
	drop = func(uid string) {
		el, ok := d.Elements[uid]
		if !ok {
			return
		}
		for _, child := range el.Children {
			drop(child)
		}
		delete(d.Elements, uid)
	}
	drop(op.UID)
	return nil
}

// applyReplaceFile records a new file version and upserts the elements the
// codec produced for it.
func (d *Document) applyReplaceFile(op Operation) error {
	if op.File == nil || op.File.Path == "" {
		return fmt.Errorf("file.replace: missing file")
	}
	d.Files[op.File.Path] = *op.File
	for uid, el := range op.Elements {
		el = el.Clone()
		el.UID = uid
		d.Elements[uid] = el
	}
	return nil
}

func insertAt(children []string, uid string, index *int) []string {
	if index != nil && *index >= 0 && *index <= len(children) {
		out := make([]string, 0, len(children)+1)
		out = append(out, children[:*index]...)
		out = append(out, uid)
		out = append(out, children[*index:]...)
		return out
	}
	return append(slices.Clone(children), uid)
}
