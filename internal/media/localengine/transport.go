package localengine

import (
	"sync"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

type transport struct {
	router *router
	id     string
	ice    media.IceParameters
	cands  []media.IceCandidate
	dtls   media.DtlsParameters

	mu        sync.Mutex
	connected bool
	closed    bool
}

func newTransport(r *router) *transport {
	return &transport{
		router: r,
		id:     newID(),
		ice: media.IceParameters{
			UsernameFragment: shortID(),
			Password:         shortID() + shortID(),
			IceLite:          true,
		},
		cands: []media.IceCandidate{
			{
				Foundation: "udpcandidate",
				Priority:   1076302079,
				IP:         "127.0.0.1",
				Port:       uint16(r.engine.allocatePort()),
				Protocol:   "udp",
				Type:       "host",
			},
		},
		dtls: media.DtlsParameters{
			Role: "auto",
			Fingerprints: []media.DtlsFingerprint{
				{Algorithm: "sha-256", Value: shortID() + ":" + shortID()},
			},
		},
	}
}

func (t *transport) ID() string                           { return t.id }
func (t *transport) IceParameters() media.IceParameters   { return t.ice }
func (t *transport) IceCandidates() []media.IceCandidate  { return t.cands }
func (t *transport) DtlsParameters() media.DtlsParameters { return t.dtls }

func (t *transport) Connect(dtls media.DtlsParameters) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if len(dtls.Fingerprints) == 0 {
		return ErrInvalidDtls
	}
	t.connected = true
	return nil
}

// Connected reports whether Connect completed, for tests.
func (t *transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *transport) SetMaxIncomingBitrate(bitrate int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return nil
}

func (t *transport) Produce(options media.ProduceOptions) (media.Producer, error) {
	if t.router.engine.consumeFlag(&t.router.engine.failProduce) {
		return nil, ErrInjected
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()
	p := &producer{engine: t.router.engine, id: newID(), kind: options.Kind}
	t.router.registerProducer(p)
	t.router.engine.track(&t.router.engine.openProducers, 1)
	return p, nil
}

func (t *transport) Consume(options media.ConsumeOptions) (media.Consumer, error) {
	if t.router.engine.consumeFlag(&t.router.engine.failConsume) {
		return nil, ErrInjected
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()
	t.router.mu.Lock()
	src, ok := t.router.producers[options.ProducerID]
	t.router.mu.Unlock()
	if !ok {
		return nil, ErrUnknownProducer
	}
	t.router.engine.track(&t.router.engine.openConsumers, 1)
	return &consumer{
		engine:     t.router.engine,
		id:         newID(),
		kind:       src.kind,
		producerID: src.id,
		rtp:        media.RtpParameters(`{"codecs":[]}`),
		paused:     options.Paused,
	}, nil
}

func (t *transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.router.engine.track(&t.router.engine.openTransports, -1)
}

// Closed reports teardown, for tests.
func (t *transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
