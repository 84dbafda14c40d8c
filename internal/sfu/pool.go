// Package sfu owns the fixed set of media workers rooms are sharded across.
package sfu

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

// exit is swapped out by tests; worker death is otherwise fatal to the
// whole process, there is no restart policy.
var exit = os.Exit

// Handle pairs a worker with its load counter (rooms currently assigned).
type Handle struct {
	Worker media.Worker

	index int
	load  int
}

type Pool struct {
	mu      sync.Mutex
	handles []*Handle
}

// NewPool boots n workers concurrently. Any boot failure aborts the whole
// pool: a partially sized pool would silently skew room placement.
func NewPool(engine media.Engine, n int) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("worker pool needs at least one worker, got %d", n)
	}
	p := &Pool{handles: make([]*Handle, n)}

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			w, err := engine.NewWorker()
			if err != nil {
				return err
			}
			w.OnDied(func(err error) {
				log.Error().Err(err).Str("module", "sfu.pool").Int("worker", i).Msg("media worker died")
				exit(1)
			})
			p.handles[i] = &Handle{Worker: w, index: i}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, h := range p.handles {
			if h != nil {
				h.Worker.Close()
			}
		}
		return nil, err
	}
	log.Info().Str("module", "sfu.pool").Int("workers", n).Msg("worker pool ready")
	return p, nil
}

// Assign picks the worker with the fewest assigned rooms, ties broken by
// pool order, and increments its load.
func (p *Pool) Assign() *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	best := p.handles[0]
	for _, h := range p.handles[1:] {
		if h.load < best.load {
			best = h
		}
	}
	best.load++
	log.Debug().Str("module", "sfu.pool").Int("worker", best.index).Int("load", best.load).Msg("worker assigned")
	return best
}

// Release returns a room slot to the worker. The counter never goes
// negative, so double release is harmless.
func (p *Pool) Release(h *Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.load > 0 {
		h.load--
	}
}

func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Loads is a snapshot of per-worker room counts, in pool order.
func (p *Pool) Loads() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.handles))
	for i, h := range p.handles {
		out[i] = h.load
	}
	return out
}

// Close shuts every worker down. Only used on process exit.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range p.handles {
		h.Worker.Close()
	}
}
