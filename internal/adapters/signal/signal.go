// Package signal is the websocket gateway for the request/acknowledgement
// signaling protocol. It binds inbound events to orchestrator operations
// and fans server-initiated forwarding updates back out.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/crackersam/mediasoup-raw/internal/app"
	"github.com/crackersam/mediasoup-raw/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Controller struct {
	Orch *app.Orchestrator

	// ReadLimit caps inbound frame size; PingPeriod drives keepalive
	// pings, with the pong deadline derived from it.
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(orch *app.Orchestrator) *Controller {
	return &Controller{
		Orch:       orch,
		ReadLimit:  32768,
		PingPeriod: defaultPingPeriod,
	}
}

// Conn wraps one websocket with a buffered outbound queue. TrySend never
// blocks; a full queue drops the frame with an error so a slow peer cannot
// stall room-wide fan-out.
type Conn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *Conn) TrySend(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the connection and starts its pumps. The session is
// not bound to a room until a joinRoom request arrives.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &Conn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
	}()
}
