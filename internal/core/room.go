package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/domain"
	"github.com/crackersam/mediasoup-raw/internal/media"
	"github.com/crackersam/mediasoup-raw/internal/sfu"
)

// Room groups the clients of one conferencing session around a router on
// its assigned worker. activeSpeakers is ordered most-recently-dominant
// first; forwarding always reads its top K.
type Room struct {
	Name   domain.RoomName
	Worker *sfu.Handle

	mu             sync.RWMutex
	router         media.Router
	observer       media.SpeakerObserver
	clients        map[SessionID]*Client
	activeSpeakers []string
}

func NewRoom(name domain.RoomName, worker *sfu.Handle) *Room {
	return &Room{
		Name:    name,
		Worker:  worker,
		clients: make(map[SessionID]*Client),
	}
}

// CreateRouter acquires the router and the speaker observation capability
// from the room's worker and registers the dominance callback. On error the
// caller must not add the room to the live set.
func (r *Room) CreateRouter(interval time.Duration, onDominantSpeaker func(producerID string)) error {
	router, err := r.Worker.Worker.CreateRouter(media.RouterOptions{})
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.Name)).Msg("create router")
		return err
	}
	observer, err := router.CreateActiveSpeakerObserver(media.ActiveSpeakerObserverOptions{Interval: interval})
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.Name)).Msg("create speaker observer")
		router.Close()
		return err
	}
	observer.OnDominantSpeaker(onDominantSpeaker)

	r.mu.Lock()
	r.router = router
	r.observer = observer
	r.mu.Unlock()
	return nil
}

func (r *Room) Router() media.Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.router
}

func (r *Room) Observer() media.SpeakerObserver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observer
}

// AddClient inserts a client into the membership set. Duplicate or nil
// clients are a diagnostic, not an error.
func (r *Room) AddClient(c *Client) {
	if c == nil {
		log.Warn().Str("module", "core.room").Str("room", string(r.Name)).Msg("nil client not added")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID]; ok {
		log.Warn().Str("module", "core.room").Str("room", string(r.Name)).Str("sid", string(c.ID)).
			Msg("duplicate client not added")
		return
	}
	r.clients[c.ID] = c
}

// RemoveClient removes a client and synchronously strips its audio producer
// id from the active-speaker list, so the list never dangles.
func (r *Room) RemoveClient(c *Client) {
	if c == nil {
		log.Warn().Str("module", "core.room").Str("room", string(r.Name)).Msg("nil client not removed")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID]; !ok {
		log.Warn().Str("module", "core.room").Str("room", string(r.Name)).Str("sid", string(c.ID)).
			Msg("client not found in room")
		return
	}
	delete(r.clients, c.ID)
	if pid := c.AudioProducerID(); pid != "" {
		r.removeSpeakerLocked(pid)
	}
}

// AppendSpeaker adds a freshly started audio producer to the end of the
// list. A brand-new speaker has no dominance history, so it is not
// promoted; the observer corrects ordering within one poll interval.
func (r *Room) AppendSpeaker(producerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pid := range r.activeSpeakers {
		if pid == producerID {
			return
		}
	}
	r.activeSpeakers = append(r.activeSpeakers, producerID)
}

// PromoteSpeaker moves (or inserts) the producer id to the front of the
// list on an engine-reported dominance change.
func (r *Room) PromoteSpeaker(producerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeSpeakerLocked(producerID)
	r.activeSpeakers = append([]string{producerID}, r.activeSpeakers...)
}

func (r *Room) removeSpeakerLocked(producerID string) {
	for i, pid := range r.activeSpeakers {
		if pid == producerID {
			r.activeSpeakers = append(r.activeSpeakers[:i], r.activeSpeakers[i+1:]...)
			return
		}
	}
}

// TopSpeakers returns the first k entries of the active-speaker list.
func (r *Room) TopSpeakers(k int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k > len(r.activeSpeakers) {
		k = len(r.activeSpeakers)
	}
	out := make([]string, k)
	copy(out, r.activeSpeakers[:k])
	return out
}

// ActiveSpeakers returns the whole list, most-recently-dominant first.
func (r *Room) ActiveSpeakers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.activeSpeakers))
	copy(out, r.activeSpeakers)
	return out
}

func (r *Room) Members() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// FindClientByAudioPID resolves an audio producer id to its owning client,
// or nil if no connected member owns it.
func (r *Room) FindClientByAudioPID(producerID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.AudioProducerID() == producerID {
			return c
		}
	}
	return nil
}

// Close releases the router and observer capabilities and clears state.
// Called exactly when the last client leaves.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.observer != nil {
		r.observer.Close()
		r.observer = nil
	}
	if r.router != nil {
		r.router.Close()
		r.router = nil
	}
	r.clients = make(map[SessionID]*Client)
	r.activeSpeakers = nil
	log.Info().Str("module", "core.room").Str("room", string(r.Name)).Msg("room closed")
}
