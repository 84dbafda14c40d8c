package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/core"
	"github.com/crackersam/mediasoup-raw/internal/media"
)

// Controller implements app.Pusher. Pushes are asynchronous events, never
// acknowledged; backpressure drops are logged and corrected by the next
// forwarding recomputation.

func (ctl *Controller) PushNewProducers(sid core.SessionID, caps media.RtpCapabilities, u core.Update) {
	ctl.push(sid, eventNewProducers, newProducersPush{
		RouterRtpCapabilities: caps,
		AudioPidsToCreate:     u.AudioPIDs,
		VideoPidsToCreate:     u.VideoPIDs,
		AssociatedUserNames:   u.UserNames,
		ActiveSpeakerList:     u.ActiveList,
	})
}

func (ctl *Controller) PushClientDisconnected(sid core.SessionID, producerID string) {
	ctl.push(sid, eventClientGone, clientDisconnectedPush{ProducerID: producerID})
}

func (ctl *Controller) push(sid core.SessionID, eventType string, payload any) {
	sender, ok := ctl.Orch.Registry.Sender(sid)
	if !ok {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("type", eventType).
			Msg("push skipped, no sender")
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", eventType).Msg("push marshal")
		return
	}
	b, err := json.Marshal(envelope{Type: eventType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", eventType).Msg("push marshal")
		return
	}
	if err := sender.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).
			Str("type", eventType).Msg("push dropped")
	}
}
