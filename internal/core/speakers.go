package core

import (
	"github.com/rs/zerolog/log"
)

// Update is the forwarding delta one peer must apply: the audio/video
// producer pairs it should newly start consuming, as three parallel
// sequences, plus the room's current top-of-list snapshot. Deltas are
// grouped per destination peer because one event can obsolete several
// peers' views at once.
type Update struct {
	ClientID   SessionID
	AudioPIDs  []string
	VideoPIDs  []string
	UserNames  []string
	ActiveList []string
}

// ForwardingUpdates recomputes, from current room state, what every member
// is missing from the top-k forwarding set. The k-window is applied per
// peer after excluding that peer's own producer, so the owner of a top
// entry is offered the next-ranked speaker instead of a short list. It is
// derivation, not a diff queue: callers may invoke it from racing triggers
// (new producer, observer notification, disconnect) and always get answers
// consistent with the state at call time. Members with nothing new to
// consume get no update.
func ForwardingUpdates(r *Room, k int) []Update {
	list := r.ActiveSpeakers()
	if len(list) == 0 {
		return nil
	}

	var updates []Update
	for _, member := range r.Members() {
		if u, ok := updateFor(r, member, list, k); ok {
			updates = append(updates, u)
		}
	}
	return updates
}

// JoinSnapshot computes the initial consumption set for a client that just
// joined: the top-k minus its own audio producer (relevant on re-join
// paths; a brand-new client owns nothing yet).
func JoinSnapshot(r *Room, c *Client, k int) (audioPIDs, videoPIDs []string, userNames []string) {
	u, _ := updateFor(r, c, r.ActiveSpeakers(), k)
	return u.AudioPIDs, u.VideoPIDs, u.UserNames
}

func updateFor(r *Room, c *Client, list []string, k int) (Update, bool) {
	held := make(map[string]bool)
	for _, pid := range c.ConsumedAudioPIDs() {
		held[pid] = true
	}
	own := c.AudioProducerID()

	// Slices start non-nil so the wire payload is always [] rather than null.
	u := Update{
		ClientID:   c.ID,
		ActiveList: topK(list, k),
		AudioPIDs:  []string{},
		VideoPIDs:  []string{},
		UserNames:  []string{},
	}
	seen := 0
	for _, pid := range list {
		// A client never consumes its own stream; this exclusion must hold
		// on every derivation path or the owner hears an echo.
		if pid == own {
			continue
		}
		if seen++; seen > k {
			break
		}
		if held[pid] {
			continue
		}
		owner := r.FindClientByAudioPID(pid)
		if owner == nil {
			// Producer not resolvable yet: skipped, corrected by the next
			// trigger once state has settled.
			log.Debug().Str("module", "core.speakers").Str("room", string(r.Name)).Str("pid", pid).
				Msg("no owner for producer, skipping")
			continue
		}
		u.AudioPIDs = append(u.AudioPIDs, pid)
		u.VideoPIDs = append(u.VideoPIDs, owner.VideoProducerID())
		u.UserNames = append(u.UserNames, string(owner.UserName))
	}
	return u, len(u.AudioPIDs) > 0
}

func topK(list []string, k int) []string {
	if k > len(list) {
		k = len(list)
	}
	out := make([]string, k)
	copy(out, list[:k])
	return out
}
