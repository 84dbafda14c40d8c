package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/app"
	"github.com/crackersam/mediasoup-raw/internal/core"
	"github.com/crackersam/mediasoup-raw/internal/domain"
)

func (ctl *Controller) handleJoinRoom(sid core.SessionID, c *Conn, env envelope) {
	var req joinRoomRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		ctl.ackError(c, env, err)
		return
	}
	res, err := ctl.Orch.JoinRoom(sid, req.UserName, domain.RoomName(req.RoomName), c)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("joinRoom")
		ctl.ackError(c, env, err)
		return
	}
	ctl.ack(c, env, joinRoomAck{
		RouterRtpCapabilities: res.RouterRtpCapabilities,
		NewRoom:               res.NewRoom,
		AudioPidsToCreate:     res.AudioPIDs,
		VideoPidsToCreate:     res.VideoPIDs,
		AssociatedUserNames:   res.UserNames,
	})
}

func (ctl *Controller) handleRequestTransport(sid core.SessionID, c *Conn, env envelope) {
	var req requestTransportRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		ctl.ackError(c, env, err)
		return
	}
	params, err := ctl.Orch.RequestTransport(sid, req.Type, req.AudioPid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).
			Str("type", req.Type).Msg("requestTransport")
		ctl.ackError(c, env, err)
		return
	}
	ctl.ack(c, env, params)
}

func (ctl *Controller) handleConnectTransport(sid core.SessionID, c *Conn, env envelope) {
	var req connectTransportRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		ctl.ackError(c, env, err)
		return
	}
	if err := ctl.Orch.ConnectTransport(sid, req.Type, req.AudioPid, req.DtlsParameters); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("connectTransport")
		ctl.ack(c, env, "error")
		return
	}
	ctl.ack(c, env, "success")
}

func (ctl *Controller) handleStartProducing(sid core.SessionID, c *Conn, env envelope) {
	var req startProducingRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		ctl.ackError(c, env, err)
		return
	}
	pid, err := ctl.Orch.StartProducing(sid, req.Kind, req.RtpParameters)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).
			Str("kind", req.Kind).Msg("startProducing")
		ctl.ackError(c, env, err)
		return
	}
	ctl.ack(c, env, startProducingAck{ID: pid})
}

// audioChange is fire-and-forget: no ack either way. The payload is the
// bare change string, "mute" or "unmute".
func (ctl *Controller) handleAudioChange(sid core.SessionID, env envelope) {
	var change string
	if err := json.Unmarshal(env.Data, &change); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad audioChange payload")
		return
	}
	if err := ctl.Orch.AudioChange(sid, change); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).
			Str("change", change).Msg("audioChange")
	}
}

func (ctl *Controller) handleConsumeMedia(sid core.SessionID, c *Conn, env envelope) {
	var req consumeMediaRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		ctl.ackError(c, env, err)
		return
	}
	res, err := ctl.Orch.ConsumeMedia(sid, req.ProducerID, req.Kind, req.RtpCapabilities)
	if err != nil {
		// The browser client branches on these two literal tokens.
		if errors.Is(err, app.ErrCannotConsume) {
			ctl.ack(c, env, "cannotConsume")
		} else {
			ctl.ack(c, env, "consumeFailed")
		}
		return
	}
	ctl.ack(c, env, consumerParamsAck{
		ProducerID:    res.ProducerID,
		ID:            res.ConsumerID,
		Kind:          string(res.Kind),
		RtpParameters: res.RtpParameters,
	})
}

// unpauseConsumer is fire-and-forget.
func (ctl *Controller) handleUnpauseConsumer(sid core.SessionID, env envelope) {
	var req unpauseConsumerRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad unpauseConsumer payload")
		return
	}
	if err := ctl.Orch.UnpauseConsumer(sid, req.ProducerID, req.Kind); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).
			Str("pid", req.ProducerID).Msg("unpauseConsumer")
	}
}
