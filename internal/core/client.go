package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/domain"
	"github.com/crackersam/mediasoup-raw/internal/media"
)

// TransportParams is the subset of transport parameters the remote peer
// needs to complete ICE/DTLS negotiation. Relayed verbatim in the ack.
type TransportParams struct {
	ID             string               `json:"id"`
	IceParameters  media.IceParameters  `json:"iceParameters"`
	IceCandidates  []media.IceCandidate `json:"iceCandidates"`
	DtlsParameters media.DtlsParameters `json:"dtlsParameters"`
}

// TransportOptions carries the static transport tuning from config.
type TransportOptions struct {
	InitialOutgoingBitrate int
	MaxIncomingBitrate     int
}

// DownstreamTransport is allocated per remote producing client, not per
// media kind: one record carries both the audio and the video consumer for
// a given peer. Both producer-id tags are fixed at creation time; the
// consumer slots are attached later, separately.
type DownstreamTransport struct {
	Transport media.Transport
	AudioPID  string
	VideoPID  string
	Audio     media.Consumer
	Video     media.Consumer
}

// Client is the per-connection participant state.
type Client struct {
	ID       SessionID
	UserName domain.UserName
	RoomName domain.RoomName

	mu         sync.Mutex
	upstream   media.Transport
	producers  map[domain.MediaKind]media.Producer
	downstream []*DownstreamTransport
}

func NewClient(id SessionID, userName domain.UserName, roomName domain.RoomName) *Client {
	return &Client{
		ID:        id,
		UserName:  userName,
		RoomName:  roomName,
		producers: make(map[domain.MediaKind]media.Producer),
	}
}

// AddTransport requests a new transport from the room's router. Producer
// direction overwrites the single upstream slot. Consumer direction is
// idempotent per audio producer id: re-requesting a transport for an
// already-tracked peer returns the existing parameters instead of
// allocating a second transport.
func (c *Client) AddTransport(router media.Router, direction TransportDirection, audioPID, videoPID string, opts TransportOptions) (TransportParams, error) {
	if direction == DirectionConsumer {
		c.mu.Lock()
		if rec := c.findDownstreamByAudioPID(audioPID); rec != nil {
			params := transportParams(rec.Transport)
			c.mu.Unlock()
			log.Debug().Str("module", "core.client").Str("sid", string(c.ID)).Str("audioPid", audioPID).
				Msg("downstream transport already exists, reusing")
			return params, nil
		}
		c.mu.Unlock()
	}

	transport, err := router.CreateWebRtcTransport(media.WebRtcTransportOptions{
		EnableUDP:                       true,
		EnableTCP:                       true,
		PreferUDP:                       true,
		InitialAvailableOutgoingBitrate: opts.InitialOutgoingBitrate,
	})
	if err != nil {
		return TransportParams{}, err
	}

	if opts.MaxIncomingBitrate > 0 {
		if err := transport.SetMaxIncomingBitrate(opts.MaxIncomingBitrate); err != nil {
			log.Error().Err(err).Str("module", "core.client").Msg("set max incoming bitrate")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch direction {
	case DirectionProducer:
		c.upstream = transport
	case DirectionConsumer:
		c.downstream = append(c.downstream, &DownstreamTransport{
			Transport: transport,
			AudioPID:  audioPID,
			VideoPID:  videoPID,
		})
	}
	return transportParams(transport), nil
}

// ConnectTransport completes DTLS for the upstream transport or for the
// downstream transport tagged with audioPID.
func (c *Client) ConnectTransport(direction TransportDirection, audioPID string, dtls media.DtlsParameters) error {
	c.mu.Lock()
	var transport media.Transport
	switch direction {
	case DirectionProducer:
		transport = c.upstream
	case DirectionConsumer:
		if rec := c.findDownstreamByAudioPID(audioPID); rec != nil {
			transport = rec.Transport
		}
	}
	c.mu.Unlock()
	if transport == nil {
		return ErrUnknownTransport
	}
	return transport.Connect(dtls)
}

// Produce starts an outbound stream on the upstream transport.
func (c *Client) Produce(kind domain.MediaKind, rtp media.RtpParameters) (media.Producer, error) {
	c.mu.Lock()
	upstream := c.upstream
	c.mu.Unlock()
	if upstream == nil {
		return nil, ErrNoUpstreamTransport
	}
	return upstream.Produce(media.ProduceOptions{Kind: string(kind), RtpParameters: rtp})
}

// AddProducer stores the producer and, for audio, registers it with the
// room's speaker observer so future dominance events can reference it.
func (c *Client) AddProducer(kind domain.MediaKind, p media.Producer, observer media.SpeakerObserver) {
	c.mu.Lock()
	c.producers[kind] = p
	c.mu.Unlock()
	if kind == domain.MediaAudio && observer != nil {
		if err := observer.AddProducer(p.ID()); err != nil {
			log.Error().Err(err).Str("module", "core.client").Str("pid", p.ID()).
				Msg("register producer with speaker observer")
		}
	}
}

// Consume creates a paused consumer on the downstream transport whose tag
// matches the producer id (audio tag for audio, video tag for video) and
// attaches it to that record.
func (c *Client) Consume(kind domain.MediaKind, producerID string, caps media.RtpCapabilities) (media.Consumer, error) {
	c.mu.Lock()
	rec := c.findDownstreamByPID(kind, producerID)
	c.mu.Unlock()
	if rec == nil {
		log.Error().Str("module", "core.client").Str("sid", string(c.ID)).Str("pid", producerID).
			Str("kind", string(kind)).Msg("no downstream transport for consumer")
		return nil, ErrNoDownstreamTransport
	}
	consumer, err := rec.Transport.Consume(media.ConsumeOptions{
		ProducerID:      producerID,
		RtpCapabilities: caps,
		Paused:          true,
	})
	if err != nil {
		return nil, err
	}
	c.AddConsumer(kind, consumer, rec)
	return consumer, nil
}

// AddConsumer attaches a consumer to its pre-existing downstream record.
func (c *Client) AddConsumer(kind domain.MediaKind, consumer media.Consumer, rec *DownstreamTransport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case domain.MediaAudio:
		rec.Audio = consumer
	case domain.MediaVideo:
		rec.Video = consumer
	}
}

// FindConsumer returns the consumer for the given producer id and kind.
func (c *Client) FindConsumer(kind domain.MediaKind, producerID string) media.Consumer {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.findDownstreamByPID(kind, producerID)
	if rec == nil {
		return nil
	}
	if kind == domain.MediaAudio {
		return rec.Audio
	}
	return rec.Video
}

// SetAudioPaused pauses or resumes the audio producer (mute / unmute).
func (c *Client) SetAudioPaused(paused bool) error {
	c.mu.Lock()
	p := c.producers[domain.MediaAudio]
	c.mu.Unlock()
	if p == nil {
		return ErrNoProducer
	}
	if paused {
		return p.Pause()
	}
	return p.Resume()
}

// AudioPaused reports whether the audio producer is currently paused.
// False when the client is not producing audio.
func (c *Client) AudioPaused() bool {
	c.mu.Lock()
	p := c.producers[domain.MediaAudio]
	c.mu.Unlock()
	return p != nil && p.Paused()
}

// AudioProducerID returns the client's audio producer id, or "" if it is
// not producing audio.
func (c *Client) AudioProducerID() string { return c.producerID(domain.MediaAudio) }

// VideoProducerID returns the client's video producer id, or "" if it is
// not producing video.
func (c *Client) VideoProducerID() string { return c.producerID(domain.MediaVideo) }

func (c *Client) producerID(kind domain.MediaKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.producers[kind]; ok {
		return p.ID()
	}
	return ""
}

// ConsumedAudioPIDs returns the audio producer ids this client already has
// downstream transports for, in creation order.
func (c *Client) ConsumedAudioPIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.downstream))
	for _, rec := range c.downstream {
		out = append(out, rec.AudioPID)
	}
	return out
}

// DownstreamCount reports how many downstream transport records exist.
func (c *Client) DownstreamCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.downstream)
}

// Downstream returns the record tagged with the given audio producer id.
func (c *Client) Downstream(audioPID string) *DownstreamTransport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findDownstreamByAudioPID(audioPID)
}

// Close tears down every owned engine resource: upstream transport first,
// then each downstream record's consumers and transport, then producers.
// Steps are independent; nothing here can abort the rest of the cleanup.
func (c *Client) Close() {
	c.mu.Lock()
	upstream := c.upstream
	downstream := c.downstream
	producers := c.producers
	c.upstream = nil
	c.downstream = nil
	c.producers = make(map[domain.MediaKind]media.Producer)
	c.mu.Unlock()

	if upstream != nil {
		upstream.Close()
	}
	for _, rec := range downstream {
		if rec.Audio != nil {
			rec.Audio.Close()
		}
		if rec.Video != nil {
			rec.Video.Close()
		}
		rec.Transport.Close()
	}
	for _, p := range producers {
		p.Close()
	}
	log.Info().Str("module", "core.client").Str("sid", string(c.ID)).Msg("client closed")
}

// callers hold c.mu
func (c *Client) findDownstreamByAudioPID(audioPID string) *DownstreamTransport {
	for _, rec := range c.downstream {
		if rec.AudioPID == audioPID {
			return rec
		}
	}
	return nil
}

// callers hold c.mu
func (c *Client) findDownstreamByPID(kind domain.MediaKind, producerID string) *DownstreamTransport {
	for _, rec := range c.downstream {
		if kind == domain.MediaAudio && rec.AudioPID == producerID {
			return rec
		}
		if kind == domain.MediaVideo && rec.VideoPID == producerID {
			return rec
		}
	}
	return nil
}

func transportParams(t media.Transport) TransportParams {
	return TransportParams{
		ID:             t.ID(),
		IceParameters:  t.IceParameters(),
		IceCandidates:  t.IceCandidates(),
		DtlsParameters: t.DtlsParameters(),
	}
}
