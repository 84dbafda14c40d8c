package localengine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

type router struct {
	engine *Engine
	id     string
	caps   media.RtpCapabilities

	mu        sync.Mutex
	producers map[string]*producer
	observers []*observer
	closed    bool
}

func (r *router) ID() string { return r.id }

func (r *router) RtpCapabilities() media.RtpCapabilities { return r.caps }

func (r *router) CreateWebRtcTransport(options media.WebRtcTransportOptions) (media.Transport, error) {
	if r.engine.consumeFlag(&r.engine.failTransport) {
		return nil, ErrInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	r.engine.track(&r.engine.openTransports, 1)
	return newTransport(r), nil
}

func (r *router) CreateActiveSpeakerObserver(options media.ActiveSpeakerObserverOptions) (media.SpeakerObserver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	o := &observer{router: r, interval: options.Interval, producers: make(map[string]bool)}
	r.observers = append(r.observers, o)
	return o, nil
}

func (r *router) CanConsume(producerID string, caps media.RtpCapabilities) bool {
	if len(caps) == 0 {
		return false
	}
	r.engine.mu.Lock()
	refuse := r.engine.refuseConsume
	r.engine.mu.Unlock()
	if refuse {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.producers[producerID]
	return ok && !p.Closed()
}

func (r *router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *router) registerProducer(p *producer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers[p.id] = p
}

func newID() string { return uuid.NewString() }
