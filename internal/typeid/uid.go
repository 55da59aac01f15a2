package typeid

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Element UIDs are short, lowercase and unique across a whole project.

const (
	uidLength     = 3
	randomRetries = 8
)

// UIDGenerator produces element UIDs absent from taken.
type UIDGenerator interface {
	GenerateUID(taken map[string]bool, base string) string
}

// RandomUIDs draws short random candidates and falls back to
// DeterministicUID once randomRetries candidates collided.
type RandomUIDs struct{}

func (RandomUIDs) GenerateUID(taken map[string]bool, base string) string {
	for range randomRetries {
		candidate := strings.ReplaceAll(uuid.NewString(), "-", "")[:uidLength]
		if !taken[candidate] {
			return candidate
		}
	}
	return DeterministicUID(taken, base)
}

// DeterministicUID returns base when it is free, otherwise the first free
// base-N for N = 1, 2, ...
func DeterministicUID(taken map[string]bool, base string) string {
	if base == "" {
		base = "uid"
	}
	if !taken[base] {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// QueuedUIDs hands out fixed UIDs in order, then defers to DeterministicUID.
// A queued UID that is already taken is skipped.
type QueuedUIDs struct {
	mu    sync.Mutex
	queue []string
}

func NewQueuedUIDs(uids ...string) *QueuedUIDs {
	return &QueuedUIDs{queue: uids}
}

func (q *QueuedUIDs) Push(uids ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, uids...)
}

func (q *QueuedUIDs) GenerateUID(taken map[string]bool, base string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.queue) > 0 {
		next := q.queue[0]
		q.queue = q.queue[1:]
		if !taken[next] {
			return next
		}
	}
	return DeterministicUID(taken, base)
}
