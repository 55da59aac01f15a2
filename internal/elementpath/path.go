// Package elementpath addresses nodes of the element tree by UID.
//
// A Path is a sequence of parts. Each part is a sequence of UIDs describing
// nesting inside one component; a new part starts whenever the path crosses
// into the internals of a component instance. The string form joins UIDs with
// "/" and parts with ":", e.g. "sb/scene-aaa/app-entity:container/aaa".
package elementpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	uidSeparator  = "/"
	partSeparator = ":"
)

// Path is an immutable element address. The zero value is the empty path.
type Path struct {
	parts [][]string
}

// New builds a path from parts. Empty parts are dropped.
func New(parts ...[]string) Path {
	out := make([][]string, 0, len(parts))
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		out = append(out, slices.Clone(part))
	}
	return Path{parts: out}
}

var ErrMalformedPath = errors.New("malformed element path")

// Parse reads the string form of a path. Empty parts and empty UIDs are
// rejected, so every accepted string prints back unchanged.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	rawParts := strings.Split(s, partSeparator)
	parts := make([][]string, 0, len(rawParts))
	for _, raw := range rawParts {
		uids := strings.Split(raw, uidSeparator)
		if slices.Contains(uids, "") {
			return Path{}, fmt.Errorf("%w: %q", ErrMalformedPath, s)
		}
		parts = append(parts, uids)
	}
	return Path{parts: parts}, nil
}

// FromString is Parse for trusted input. A malformed string yields the
// empty path, which addresses nothing.
func FromString(s string) Path {
	p, err := Parse(s)
	if err != nil {
		return Path{}
	}
	return p
}

func (p Path) String() string {
	var b strings.Builder
	for i, part := range p.parts {
		if i > 0 {
			b.WriteString(partSeparator)
		}
		b.WriteString(strings.Join(part, uidSeparator))
	}
	return b.String()
}

// Parts returns a copy of the path parts.
func (p Path) Parts() [][]string {
	out := make([][]string, len(p.parts))
	for i, part := range p.parts {
		out[i] = slices.Clone(part)
	}
	return out
}

func (p Path) IsEmpty() bool {
	return len(p.parts) == 0
}

// Depth counts every UID in the path.
func (p Path) Depth() int {
	n := 0
	for _, part := range p.parts {
		n += len(part)
	}
	return n
}

// ToUID returns the last UID of the path, or "" for the empty path.
func (p Path) ToUID() string {
	if len(p.parts) == 0 {
		return ""
	}
	last := p.parts[len(p.parts)-1]
	return last[len(last)-1]
}

// AppendToPath returns the path of a child inside the same part as parent.
func AppendToPath(parent Path, uid string) Path {
	if parent.IsEmpty() {
		return New([]string{uid})
	}
	parts := parent.Parts()
	parts[len(parts)-1] = append(parts[len(parts)-1], uid)
	return Path{parts: parts}
}

// AppendNewPart returns the path that crosses from the instance at parent
// into the component it renders.
func AppendNewPart(parent Path, uids ...string) Path {
	parts := parent.Parts()
	if len(uids) > 0 {
		parts = append(parts, slices.Clone(uids))
	}
	return Path{parts: parts}
}

// Parent drops the last UID. When that empties the last part, the parent is
// the component instance that owns the part.
func Parent(p Path) Path {
	if p.IsEmpty() {
		return p
	}
	parts := p.Parts()
	last := parts[len(parts)-1]
	if len(last) == 1 {
		return Path{parts: parts[:len(parts)-1]}
	}
	parts[len(parts)-1] = last[:len(last)-1]
	return Path{parts: parts}
}

// InstancePath is the path of the component instance whose internals contain
// p, or the empty path when p lives in the top-level part.
func InstancePath(p Path) Path {
	if len(p.parts) < 2 {
		return Path{}
	}
	return New(p.parts[:len(p.parts)-1]...)
}

func Equal(a, b Path) bool {
	if len(a.parts) != len(b.parts) {
		return false
	}
	for i := range a.parts {
		if !slices.Equal(a.parts[i], b.parts[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether paths has an entry equal to p.
func Contains(paths []Path, p Path) bool {
	return slices.ContainsFunc(paths, func(q Path) bool { return Equal(p, q) })
}

// IsDescendantOf reports whether p lies strictly below ancestor.
func IsDescendantOf(p, ancestor Path) bool {
	if ancestor.IsEmpty() || p.Depth() <= ancestor.Depth() {
		return false
	}
	n := len(ancestor.parts)
	if len(p.parts) < n {
		return false
	}
	for i := 0; i < n-1; i++ {
		if !slices.Equal(p.parts[i], ancestor.parts[i]) {
			return false
		}
	}
	last := ancestor.parts[n-1]
	candidate := p.parts[n-1]
	if len(candidate) < len(last) {
		return false
	}
	return slices.Equal(candidate[:len(last)], last)
}

func IsChildOf(p, parent Path) bool {
	return !p.IsEmpty() && Equal(Parent(p), parent)
}

// IsStoryboardPath reports whether p addresses the storyboard root: a single
// part holding a single UID.
func IsStoryboardPath(p Path) bool {
	return len(p.parts) == 1 && len(p.parts[0]) == 1
}

// IsScenePath reports whether p addresses a scene directly below the storyboard.
func IsScenePath(p Path) bool {
	return len(p.parts) == 1 && len(p.parts[0]) == 2
}

// IsFocused reports whether p is the focused component instance.
func IsFocused(focused *Path, p Path) bool {
	return focused != nil && Equal(*focused, p)
}

// IsInsideFocusedComponent reports whether p lies inside the internals of
// the focused component instance.
func IsInsideFocusedComponent(p Path, focused *Path) bool {
	if focused == nil || focused.IsEmpty() {
		return false
	}
	for i := 1; i < len(p.parts); i++ {
		if Equal(New(p.parts[:i]...), *focused) {
			return true
		}
	}
	return false
}

// ReplaceIfAncestor rewrites p when old is p itself or one of its ancestors.
// The second result reports whether a replacement happened.
func ReplaceIfAncestor(p, old, replacement Path) (Path, bool) {
	if Equal(p, old) {
		return replacement, true
	}
	if !IsDescendantOf(p, old) {
		return p, false
	}
	n := len(old.parts)
	parts := replacement.Parts()
	if len(parts) == 0 {
		return p, false
	}
	tail := p.parts[n-1][len(old.parts[n-1]):]
	parts[len(parts)-1] = append(parts[len(parts)-1], tail...)
	for _, rest := range p.parts[n:] {
		parts = append(parts, slices.Clone(rest))
	}
	return Path{parts: parts}, true
}

// CommonAncestor returns the deepest path that is p or an ancestor of p for
// every p in paths.
func CommonAncestor(paths []Path) Path {
	if len(paths) == 0 {
		return Path{}
	}
	common := paths[0]
	for _, p := range paths[1:] {
		for !common.IsEmpty() && !Equal(common, p) && !IsDescendantOf(p, common) {
			common = Parent(common)
		}
	}
	return common
}

// SortByDepth orders paths deepest first, keeping the input order for ties.
func SortByDepth(paths []Path) []Path {
	out := slices.Clone(paths)
	slices.SortStableFunc(out, func(a, b Path) int { return b.Depth() - a.Depth() })
	return out
}

func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Strings converts paths to their string forms.
func Strings(paths []Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}
