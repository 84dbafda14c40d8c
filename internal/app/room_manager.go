package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/core"
	"github.com/crackersam/mediasoup-raw/internal/domain"
	"github.com/crackersam/mediasoup-raw/internal/sfu"
)

// RoomManager owns the live room set. Creation assigns a worker from the
// pool and acquires the router before the room becomes visible; a room
// whose router failed is never registered.
type RoomManager struct {
	pool     *sfu.Pool
	interval time.Duration
	// onDominant receives engine dominance notifications for any room.
	onDominant func(room domain.RoomName, producerID string)

	mu    sync.RWMutex
	rooms map[domain.RoomName]*core.Room
}

func NewRoomManager(pool *sfu.Pool, interval time.Duration, onDominant func(domain.RoomName, string)) *RoomManager {
	return &RoomManager{
		pool:       pool,
		interval:   interval,
		onDominant: onDominant,
		rooms:      make(map[domain.RoomName]*core.Room),
	}
}

// Join admits a client to the room under name, creating the room on first
// join. Admission and removal both run under the manager lock, so a room
// can never be torn down between the lookup and the membership insert: a
// client either lands in a live room or triggers a fresh one. created
// reports whether this call brought the room up.
func (m *RoomManager) Join(name domain.RoomName, client *core.Client) (room *core.Room, created bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[name]
	if !ok {
		worker := m.pool.Assign()
		room = core.NewRoom(name, worker)
		if err := room.CreateRouter(m.interval, func(pid string) {
			m.onDominant(name, pid)
		}); err != nil {
			m.pool.Release(worker)
			return nil, false, err
		}
		m.rooms[name] = room
		created = true
		log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room created")
	}
	room.AddClient(client)
	return room, created, nil
}

func (m *RoomManager) Get(name domain.RoomName) (*core.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[name]
	return room, ok
}

// Remove tears a room down: engine capabilities released, worker slot
// returned to the pool. Occupancy is rechecked under the manager lock; a
// join that raced the caller's zero-membership observation keeps the room
// alive, because joins are admitted under the same lock.
func (m *RoomManager) Remove(name domain.RoomName) {
	m.mu.Lock()
	room, ok := m.rooms[name]
	if ok && room.MemberCount() > 0 {
		m.mu.Unlock()
		log.Debug().Str("module", "app.rooms").Str("room", string(name)).Msg("remove skipped, room occupied")
		return
	}
	if ok {
		delete(m.rooms, name)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	room.Close()
	m.pool.Release(room.Worker)
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room removed")
}

func (m *RoomManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
