package localengine

import (
	"sync"
	"time"
)

// observer is a SpeakerObserver that reports only externally driven
// dominance: the local engine has no audio levels to poll, so tests (and
// dev tooling) call Trigger to simulate what a real engine would detect.
type observer struct {
	router   *router
	interval time.Duration

	mu        sync.Mutex
	producers map[string]bool
	handler   func(producerID string)
	closed    bool
}

func (o *observer) AddProducer(producerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.producers[producerID] = true
	return nil
}

func (o *observer) RemoveProducer(producerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	delete(o.producers, producerID)
	return nil
}

func (o *observer) OnDominantSpeaker(handler func(producerID string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = handler
}

// Trigger fires a dominant-speaker notification for a registered producer.
// Unregistered or post-close triggers are dropped, matching an engine whose
// notifications race with teardown.
func (o *observer) Trigger(producerID string) {
	o.mu.Lock()
	handler := o.handler
	known := o.producers[producerID]
	closed := o.closed
	o.mu.Unlock()
	if closed || !known || handler == nil {
		return
	}
	handler(producerID)
}

func (o *observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

// Closed reports teardown, for tests.
func (o *observer) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
