package localengine

import (
	"sync"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

type producer struct {
	engine *Engine
	id     string
	kind   string

	mu     sync.Mutex
	paused bool
	closed bool
}

func (p *producer) ID() string   { return p.id }
func (p *producer) Kind() string { return p.kind }

func (p *producer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.paused = true
	return nil
}

func (p *producer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.paused = false
	return nil
}

func (p *producer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.engine.track(&p.engine.openProducers, -1)
}

func (p *producer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type consumer struct {
	engine     *Engine
	id         string
	kind       string
	producerID string
	rtp        media.RtpParameters

	mu     sync.Mutex
	paused bool
	closed bool
}

func (c *consumer) ID() string                         { return c.id }
func (c *consumer) Kind() string                       { return c.kind }
func (c *consumer) ProducerID() string                 { return c.producerID }
func (c *consumer) RtpParameters() media.RtpParameters { return c.rtp }

func (c *consumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.paused = false
	return nil
}

// Paused reports the pause state, for tests.
func (c *consumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.engine.track(&c.engine.openConsumers, -1)
}

func (c *consumer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
