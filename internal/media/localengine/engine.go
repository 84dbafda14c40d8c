// Package localengine is an in-process media.Engine used in development and
// tests. It performs no real ICE/DTLS negotiation or packet forwarding: it
// fabricates connection parameters, tracks the object graph, and lets tests
// inject failures and dominant-speaker events.
package localengine

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

var (
	ErrInjected        = errors.New("injected engine failure")
	ErrClosed          = errors.New("engine object closed")
	ErrInvalidDtls     = errors.New("dtls parameters have no fingerprints")
	ErrUnknownProducer = errors.New("no such producer on this router")
)

const (
	defaultMinPort = 40000
	defaultMaxPort = 41000
)

type Engine struct {
	mu sync.Mutex

	failRouter    bool
	failTransport bool
	failProduce   bool
	failConsume   bool
	refuseConsume bool

	minPort  int
	maxPort  int
	nextPort int

	openTransports int
	openProducers  int
	openConsumers  int
}

func New() *Engine {
	return &Engine{minPort: defaultMinPort, maxPort: defaultMaxPort}
}

// SetPortRange bounds the ports fabricated ICE candidates advertise.
// Out-of-order or non-positive bounds are ignored.
func (e *Engine) SetPortRange(min, max int) {
	if min <= 0 || max < min {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minPort = min
	e.maxPort = max
	e.nextPort = 0
}

// allocatePort hands out candidate ports round-robin within the range.
func (e *Engine) allocatePort() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.nextPort < e.minPort || e.nextPort > e.maxPort {
		e.nextPort = e.minPort
	}
	port := e.nextPort
	e.nextPort++
	return port
}

func (e *Engine) NewWorker() (media.Worker, error) {
	return &worker{engine: e}, nil
}

// FailNextRouter makes the next CreateRouter call on any worker return
// ErrInjected.
func (e *Engine) FailNextRouter() { e.arm(&e.failRouter) }

// FailNextTransport makes the next CreateWebRtcTransport call on any router
// return ErrInjected.
func (e *Engine) FailNextTransport() { e.arm(&e.failTransport) }

// FailNextProduce makes the next Produce call return ErrInjected.
func (e *Engine) FailNextProduce() { e.arm(&e.failProduce) }

// FailNextConsume makes the next Consume call return ErrInjected.
func (e *Engine) FailNextConsume() { e.arm(&e.failConsume) }

// SetRefuseConsume makes CanConsume answer false until called with false again.
func (e *Engine) SetRefuseConsume(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refuseConsume = v
}

func (e *Engine) arm(flag *bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*flag = true
}

func (e *Engine) consumeFlag(flag *bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if *flag {
		*flag = false
		return true
	}
	return false
}

// OpenTransports reports live (not yet closed) transports across all routers.
func (e *Engine) OpenTransports() int { return e.count(&e.openTransports) }

// OpenProducers reports live producers across all transports.
func (e *Engine) OpenProducers() int { return e.count(&e.openProducers) }

// OpenConsumers reports live consumers across all transports.
func (e *Engine) OpenConsumers() int { return e.count(&e.openConsumers) }

func (e *Engine) count(n *int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *n
}

func (e *Engine) track(n *int, delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*n += delta
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
