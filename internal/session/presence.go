package session

import (
	"log/slog"
	"maps"
	"sync"
)

// Presence tracks where each user in a room points and what they have
// selected. Selection is per user; the document is shared.
type Presence struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // userID -> presence
}

func NewPresence() *Presence {
	return &Presence{presences: make(map[string]*PresencePayload)}
}

func (p *Presence) Update(userID string, payload *PresencePayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presences[userID] = payload
}

func (p *Presence) Remove(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.presences, userID)
}

func (p *Presence) All() map[string]*PresencePayload {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.presences)
}

func (p *Presence) StateMessage() *Message {
	msg, err := newMessage(TypePresenceState, PresenceStatePayload{Presences: p.All()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return msg
}
