package editor

import (
	"encoding/json"
	"hash/fnv"
	"sync"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
)

// NavigatorEntry is one row of the layer tree.
type NavigatorEntry struct {
	Key   string           `json:"key"`
	Path  elementpath.Path `json:"path"`
	Depth int              `json:"depth"`
}

func NavigatorKey(p elementpath.Path) string {
	return "regular-" + p.String()
}

// NavigatorTargets lists every element below the storyboard in document
// order. Text nodes are not listed.
func NavigatorTargets(doc *document.Document) []NavigatorEntry {
	var out []NavigatorEntry
	root := doc.StoryboardPath()
	doc.Walk(root, func(p elementpath.Path, el document.Element) bool {
		if elementpath.Equal(p, root) {
			return true
		}
		if el.Kind == document.KindText {
			return false
		}
		out = append(out, NavigatorEntry{Key: NavigatorKey(p), Path: p, Depth: p.Depth() - 1})
		return true
	})
	return out
}

// VisibleNavigatorTargets drops the descendants of collapsed rows.
func VisibleNavigatorTargets(doc *document.Document, collapsed []elementpath.Path) []NavigatorEntry {
	all := NavigatorTargets(doc)
	out := make([]NavigatorEntry, 0, len(all))
	for _, entry := range all {
		hidden := false
		for _, c := range collapsed {
			if elementpath.IsDescendantOf(entry.Path, c) {
				hidden = true
				break
			}
		}
		if !hidden {
			out = append(out, entry)
		}
	}
	return out
}

// DerivedState is recomputed after every dispatch.
type DerivedState struct {
	NavigatorTargets        []NavigatorEntry `json:"navigatorTargets"`
	VisibleNavigatorTargets []NavigatorEntry `json:"visibleNavigatorTargets"`
}

// DerivedCache memoizes derived state by a structural hash of its inputs.
type DerivedCache struct {
	mu     sync.Mutex
	key    uint64
	value  *DerivedState
	hits   int
	misses int
}

func (c *DerivedCache) Get(s *State) (*DerivedState, error) {
	key, err := structuralHash(s.Document, s.CollapsedViews)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value != nil && c.key == key {
		c.hits++
		return c.value, nil
	}
	c.misses++
	c.key = key
	c.value = &DerivedState{
		NavigatorTargets:        NavigatorTargets(s.Document),
		VisibleNavigatorTargets: VisibleNavigatorTargets(s.Document, s.CollapsedViews),
	}
	return c.value, nil
}

// Stats reports cache hits and misses.
func (c *DerivedCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func structuralHash(values ...any) (uint64, error) {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return 0, err
		}
	}
	return h.Sum64(), nil
}
