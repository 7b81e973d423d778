package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"streamchat/internal/platform/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	closeGrace     = time.Second

	defaultInboundBuffer = 64
)

// ErrNotOpen is returned by Send when the channel is not in the open state.
var ErrNotOpen = errors.New("realtime: channel not open")

// Option configures Dial.
type Option func(*options)

type options struct {
	log           *slog.Logger
	dialer        *websocket.Dialer
	header        http.Header
	inboundBuffer int
}

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithDialer overrides the websocket dialer (TLS config, proxy, buffers).
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithHeader adds request headers (cookies, origin) to the handshake.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// WithInboundBuffer sets the capacity of the Inbound channel.
func WithInboundBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.inboundBuffer = n
		}
	}
}

// Channel owns one full-duplex websocket connection. A reader goroutine
// decodes every frame onto Inbound; Send may be called from any goroutine.
// A Channel never reconnects: once Done is closed it is finished.
type Channel struct {
	conn *websocket.Conn
	log  *slog.Logger

	inbound chan Envelope
	done    chan struct{}

	writeMu sync.Mutex
	open    atomic.Bool

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial opens a channel to endpoint. The context bounds the handshake only;
// use a context with a deadline to get a bounded open timeout.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Channel, error) {
	o := options{
		dialer:        websocket.DefaultDialer,
		inboundBuffer: defaultInboundBuffer,
	}
	for _, opt := range opts {
		opt(&o)
	}

	conn, resp, err := o.dialer.DialContext(ctx, endpoint, o.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("realtime: dial %s: %w", endpoint, err)
	}

	c := &Channel{
		conn:    conn,
		log:     logger.OrDiscard(o.log).With(slog.String("endpoint", endpoint)),
		inbound: make(chan Envelope, o.inboundBuffer),
		done:    make(chan struct{}),
	}
	c.open.Store(true)

	go c.readLoop()
	go c.pingLoop()

	c.log.Debug("channel open")
	return c, nil
}

// Inbound delivers every decoded envelope in arrival order. It is closed
// after the connection ends.
func (c *Channel) Inbound() <-chan Envelope {
	return c.inbound
}

// Done is closed when the channel closes or fails.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err reports why the channel ended. It is nil while open and after a local
// Close.
func (c *Channel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// IsOpen reports whether Send can currently succeed.
func (c *Channel) IsOpen() bool {
	return c.open.Load()
}

// Send writes env as a single text frame. It fails with ErrNotOpen when the
// channel is not open; failures are also logged so callers on a best-effort
// path may ignore the error.
func (c *Channel) Send(env Envelope) error {
	if !c.open.Load() {
		c.log.Warn("send on channel that is not open", slog.String("type", string(env.Type())))
		return ErrNotOpen
	}

	data, err := Marshal(env)
	if err != nil {
		c.log.Error("encode envelope failed", slog.String("error", err.Error()))
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Warn("send failed",
			slog.String("type", string(env.Type())),
			slog.String("error", err.Error()))
		c.shutdown(err)
		return fmt.Errorf("realtime: send %s: %w", env.Type(), err)
	}
	return nil
}

// Close sends a close frame and releases the connection. It is safe to call
// more than once and from any goroutine.
func (c *Channel) Close() error {
	if c.open.Load() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.writeMu.Unlock()
	}
	c.shutdown(nil)
	return nil
}

func (c *Channel) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
		close(c.done)
		c.conn.Close()
		if err != nil {
			c.log.Debug("channel closed", slog.String("error", err.Error()))
		} else {
			c.log.Debug("channel closed")
		}
	})
}

func (c *Channel) readLoop() {
	defer close(c.inbound)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// closed locally
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.shutdown(nil)
				} else {
					c.shutdown(err)
				}
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		env, err := Unmarshal(data)
		if err != nil {
			c.log.Debug("dropping malformed frame", slog.String("error", err.Error()))
			continue
		}

		select {
		case c.inbound <- env:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.shutdown(err)
				return
			}
		}
	}
}

// Dialer opens channels against a fixed endpoint.
type Dialer struct {
	Endpoint string
	Options  []Option
}

// Dial opens a new Channel to d.Endpoint.
func (d Dialer) Dial(ctx context.Context) (*Channel, error) {
	return Dial(ctx, d.Endpoint, d.Options...)
}
