package localengine

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

type worker struct {
	engine *Engine

	mu     sync.Mutex
	died   func(error)
	closed bool
}

func (w *worker) CreateRouter(options media.RouterOptions) (media.Router, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if w.engine.consumeFlag(&w.engine.failRouter) {
		return nil, ErrInjected
	}
	caps := options.MediaCodecs
	if caps == nil {
		caps = defaultRtpCapabilities()
	}
	return &router{
		engine:    w.engine,
		id:        uuid.NewString(),
		caps:      caps,
		producers: make(map[string]*producer),
	}, nil
}

func (w *worker) OnDied(handler func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.died = handler
}

// Kill simulates an unexpected worker termination, for tests.
func (w *worker) Kill(err error) {
	w.mu.Lock()
	handler := w.died
	w.closed = true
	w.mu.Unlock()
	if handler != nil {
		handler(err)
	}
}

func (w *worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *worker) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func defaultRtpCapabilities() media.RtpCapabilities {
	caps := map[string]any{
		"codecs": []map[string]any{
			{
				"kind":      "audio",
				"mimeType":  "audio/opus",
				"clockRate": 48000,
				"channels":  2,
			},
			{
				"kind":      "video",
				"mimeType":  "video/VP8",
				"clockRate": 90000,
			},
		},
	}
	b, _ := json.Marshal(caps)
	return b
}
