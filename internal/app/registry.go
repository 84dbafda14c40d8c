package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/core"
	"github.com/crackersam/mediasoup-raw/internal/domain"
)

// Sender is the gateway-owned push half of a signaling connection. The app
// layer fans out through it without knowing about websockets.
type Sender interface {
	TrySend([]byte) error
}

type sessionEntry struct {
	Client *core.Client
	Sender Sender
}

// Registry is the top-level session arena: every live signaling connection
// has exactly one entry, keyed by session id. Rooms and clients reference
// each other only through ids resolved here, never by mutual pointers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) Bind(sid core.SessionID, client *core.Client, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Client: client, Sender: sender}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).
		Str("room", string(client.RoomName)).Msg("session bound")
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session unbound")
}

func (r *Registry) Client(sid core.SessionID) (*core.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Client, true
	}
	return nil, false
}

func (r *Registry) Sender(sid core.SessionID) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok && e.Sender != nil {
		return e.Sender, true
	}
	return nil, false
}

// MembersOfRoom snapshots the session ids currently bound to a room.
func (r *Registry) MembersOfRoom(name domain.RoomName) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.Client.RoomName == name {
			out = append(out, sid)
		}
	}
	return out
}
