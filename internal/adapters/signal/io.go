package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/core"
)

const (
	writeTimeout      = 5 * time.Second
	defaultPingPeriod = 54 * time.Second
)

func (ctl *Controller) pingPeriod() time.Duration {
	if ctl.PingPeriod > 0 {
		return ctl.PingPeriod
	}
	return defaultPingPeriod
}

func (ctl *Controller) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump dispatches requests synchronously, so events on one connection
// are processed strictly in arrival order. Returning (read error or ctx
// cancellation) is the disconnect signal and triggers full teardown.
func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *Conn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	// The pong deadline trails the ping period so a healthy peer always
	// answers in time.
	pongWait := ctl.pingPeriod() * 10 / 9
	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(sid, c, data)
		}
	}
}

func (ctl *Controller) dispatch(sid core.SessionID, c *Conn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case eventJoinRoom:
		ctl.handleJoinRoom(sid, c, env)
	case eventRequestTransport:
		ctl.handleRequestTransport(sid, c, env)
	case eventConnectTransport:
		ctl.handleConnectTransport(sid, c, env)
	case eventStartProducing:
		ctl.handleStartProducing(sid, c, env)
	case eventAudioChange:
		ctl.handleAudioChange(sid, env)
	case eventConsumeMedia:
		ctl.handleConsumeMedia(sid, c, env)
	case eventUnpauseConsumer:
		ctl.handleUnpauseConsumer(sid, env)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) ack(c *Conn, env envelope, data any) {
	if env.ID == nil {
		return
	}
	ctl.sendJSON(c, ackEnvelope{Type: eventAck, ID: *env.ID, Data: data})
}

// ackError reports a failed request. The connection stays open: protocol
// violations are the peer's problem, not grounds for disconnection.
func (ctl *Controller) ackError(c *Conn, env envelope, err error) {
	if env.ID == nil {
		return
	}
	ctl.sendJSON(c, ackEnvelope{Type: eventAck, ID: *env.ID, Error: err.Error()})
}

func (ctl *Controller) sendJSON(c *Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}
