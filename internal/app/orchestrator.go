package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/core"
	"github.com/crackersam/mediasoup-raw/internal/domain"
	"github.com/crackersam/mediasoup-raw/internal/media"
)

var (
	ErrNotJoined       = errors.New("session has not joined a room")
	ErrUnknownProducer = errors.New("producer id not resolvable to a client")
	ErrCannotConsume   = errors.New("cannot consume")
	ErrConsumeFailed   = errors.New("consume failed")
	ErrBadAudioChange  = errors.New("audio change must be mute or unmute")
)

// Pusher is the gateway's server-initiated event surface. Pushes are
// fire-and-forget; a peer that misses one is corrected by the next trigger.
type Pusher interface {
	PushNewProducers(sid core.SessionID, caps media.RtpCapabilities, u core.Update)
	PushClientDisconnected(sid core.SessionID, producerID string)
}

// Orchestrator binds the registry, the room set and the gateway together
// and implements the signaling operations.
type Orchestrator struct {
	Registry  *Registry
	Rooms     *RoomManager
	Push      Pusher
	Cap       int
	Transport core.TransportOptions
}

// JoinResult is the joinRoom acknowledgement payload, minus wire framing.
type JoinResult struct {
	RouterRtpCapabilities media.RtpCapabilities
	NewRoom               bool
	AudioPIDs             []string
	VideoPIDs             []string
	UserNames             []string
}

// ConsumeResult carries the parameters the peer needs to attach a consumer.
type ConsumeResult struct {
	ProducerID    string
	ConsumerID    string
	Kind          domain.MediaKind
	RtpParameters media.RtpParameters
}

// JoinRoom creates the client, gets or creates the room, and returns the
// initial forwarding snapshot.
func (o *Orchestrator) JoinRoom(sid core.SessionID, rawUserName string, roomName domain.RoomName, sender Sender) (JoinResult, error) {
	userName, err := domain.NewUserName(rawUserName)
	if err != nil {
		return JoinResult{}, err
	}
	client := core.NewClient(sid, userName, roomName)
	room, created, err := o.Rooms.Join(roomName, client)
	if err != nil {
		return JoinResult{}, err
	}
	o.Registry.Bind(sid, client, sender)

	audioPIDs, videoPIDs, userNames := core.JoinSnapshot(room, client, o.Cap)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(roomName)).
		Bool("new_room", created).Int("to_consume", len(audioPIDs)).Msg("client joined")
	return JoinResult{
		RouterRtpCapabilities: room.Router().RtpCapabilities(),
		NewRoom:               created,
		AudioPIDs:             audioPIDs,
		VideoPIDs:             videoPIDs,
		UserNames:             userNames,
	}, nil
}

// RequestTransport creates the upstream transport or a downstream transport
// for the peer owning audioPID. The video producer id tag is resolved and
// fixed here, at creation time.
func (o *Orchestrator) RequestTransport(sid core.SessionID, rawDirection, audioPID string) (core.TransportParams, error) {
	direction, err := core.ParseTransportDirection(rawDirection)
	if err != nil {
		return core.TransportParams{}, err
	}
	client, room, err := o.session(sid)
	if err != nil {
		return core.TransportParams{}, err
	}

	videoPID := ""
	if direction == core.DirectionConsumer {
		owner := room.FindClientByAudioPID(audioPID)
		if owner == nil {
			return core.TransportParams{}, fmt.Errorf("%w: %s", ErrUnknownProducer, audioPID)
		}
		videoPID = owner.VideoProducerID()
	}
	return client.AddTransport(room.Router(), direction, audioPID, videoPID, o.Transport)
}

// ConnectTransport completes DTLS negotiation for a previously requested
// transport.
func (o *Orchestrator) ConnectTransport(sid core.SessionID, rawDirection, audioPID string, dtls media.DtlsParameters) error {
	direction, err := core.ParseTransportDirection(rawDirection)
	if err != nil {
		return err
	}
	client, _, err := o.session(sid)
	if err != nil {
		return err
	}
	return client.ConnectTransport(direction, audioPID, dtls)
}

// StartProducing creates a producer on the upstream transport. Audio
// producers enter the active-speaker list (appended, not promoted) and the
// forwarding set is recomputed for the whole room.
func (o *Orchestrator) StartProducing(sid core.SessionID, rawKind string, rtp media.RtpParameters) (string, error) {
	kind, err := domain.ParseMediaKind(rawKind)
	if err != nil {
		return "", err
	}
	client, room, err := o.session(sid)
	if err != nil {
		return "", err
	}
	producer, err := client.Produce(kind, rtp)
	if err != nil {
		return "", err
	}
	client.AddProducer(kind, producer, room.Observer())
	if kind == domain.MediaAudio {
		room.AppendSpeaker(producer.ID())
		o.fanOut(room)
	}
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("kind", rawKind).
		Str("pid", producer.ID()).Msg("producing")
	return producer.ID(), nil
}

// AudioChange pauses or resumes the client's audio producer.
func (o *Orchestrator) AudioChange(sid core.SessionID, typeOfChange string) error {
	client, _, err := o.session(sid)
	if err != nil {
		return err
	}
	switch typeOfChange {
	case "mute":
		return client.SetAudioPaused(true)
	case "unmute":
		return client.SetAudioPaused(false)
	}
	return ErrBadAudioChange
}

// ConsumeMedia creates a paused consumer for producerID on the matching
// downstream transport. Codec incompatibility surfaces as ErrCannotConsume,
// engine failures as ErrConsumeFailed.
func (o *Orchestrator) ConsumeMedia(sid core.SessionID, producerID, rawKind string, caps media.RtpCapabilities) (ConsumeResult, error) {
	kind, err := domain.ParseMediaKind(rawKind)
	if err != nil {
		return ConsumeResult{}, err
	}
	client, room, err := o.session(sid)
	if err != nil {
		return ConsumeResult{}, err
	}
	if !room.Router().CanConsume(producerID, caps) {
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("pid", producerID).
			Msg("cannot consume")
		return ConsumeResult{}, ErrCannotConsume
	}
	consumer, err := client.Consume(kind, producerID, caps)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("sid", string(sid)).
			Str("pid", producerID).Msg("consume failed")
		return ConsumeResult{}, fmt.Errorf("%w: %v", ErrConsumeFailed, err)
	}
	return ConsumeResult{
		ProducerID:    producerID,
		ConsumerID:    consumer.ID(),
		Kind:          kind,
		RtpParameters: consumer.RtpParameters(),
	}, nil
}

// UnpauseConsumer resumes a consumer created paused by ConsumeMedia.
func (o *Orchestrator) UnpauseConsumer(sid core.SessionID, producerID, rawKind string) error {
	kind, err := domain.ParseMediaKind(rawKind)
	if err != nil {
		return err
	}
	client, _, err := o.session(sid)
	if err != nil {
		return err
	}
	consumer := client.FindConsumer(kind, producerID)
	if consumer == nil {
		return core.ErrNoDownstreamTransport
	}
	return consumer.Resume()
}

// Disconnect is the only cancellation signal: full idempotent teardown of
// the client's resources, removal from the room and speaker list, a
// clientDisconnected broadcast, fresh forwarding deltas for the remaining
// peers, and room teardown on the 1 -> 0 membership transition.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	client, ok := o.Registry.Client(sid)
	if !ok {
		return
	}
	room, hasRoom := o.Rooms.Get(client.RoomName)
	audioPID := client.AudioProducerID()

	if hasRoom {
		room.RemoveClient(client)
	}
	client.Close()
	o.Registry.Unbind(sid)

	if !hasRoom {
		return
	}
	if audioPID != "" && o.Push != nil {
		for _, peer := range o.Registry.MembersOfRoom(room.Name) {
			o.Push.PushClientDisconnected(peer, audioPID)
		}
	}
	o.fanOut(room)
	if room.MemberCount() == 0 {
		o.Rooms.Remove(room.Name)
	}
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).
		Str("room", string(room.Name)).Msg("client disconnected")
}

// OnDominantSpeaker handles engine dominance notifications: promote, then
// recompute from current state. Notifications and explicit triggers may
// race; both only ever re-derive, so ordering between them is harmless.
func (o *Orchestrator) OnDominantSpeaker(roomName domain.RoomName, producerID string) {
	room, ok := o.Rooms.Get(roomName)
	if !ok {
		return
	}
	room.PromoteSpeaker(producerID)
	log.Debug().Str("module", "app.orchestrator").Str("room", string(roomName)).
		Str("pid", producerID).Msg("dominant speaker changed")
	o.fanOut(room)
}

func (o *Orchestrator) fanOut(room *core.Room) {
	if o.Push == nil {
		return
	}
	updates := core.ForwardingUpdates(room, o.Cap)
	if len(updates) == 0 {
		return
	}
	caps := room.Router().RtpCapabilities()
	for _, u := range updates {
		o.Push.PushNewProducers(u.ClientID, caps, u)
	}
}

func (o *Orchestrator) session(sid core.SessionID) (*core.Client, *core.Room, error) {
	client, ok := o.Registry.Client(sid)
	if !ok {
		return nil, nil, ErrNotJoined
	}
	room, ok := o.Rooms.Get(client.RoomName)
	if !ok {
		return nil, nil, ErrNotJoined
	}
	return client, room, nil
}
