package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// CoderDialer dials sockets with github.com/coder/websocket.
type CoderDialer struct {
	cfg    TransportConfig
	logger *slog.Logger
}

// NewCoderDialer creates the alternative socket driver.
func NewCoderDialer(cfg TransportConfig, logger *slog.Logger) *CoderDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoderDialer{cfg: cfg, logger: logger}
}

// Dial opens a socket to url.
func (d *CoderDialer) Dial(ctx context.Context, url string) (Conn, error) {
	if d.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.HandshakeTimeout)
		defer cancel()
	}

	header := http.Header{}
	header.Set("Accept", "application/json")

	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, err
	}
	if d.cfg.ReadLimit > 0 {
		ws.SetReadLimit(d.cfg.ReadLimit)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	d.logger.Debug("websocket connected", "url", url, "driver", "coder")

	return &coderConn{
		cfg:          d.cfg,
		logger:       d.logger,
		ws:           ws,
		ctx:          loopCtx,
		cancel:       cancel,
		writes:       make(chan []byte, max(d.cfg.WriteQueueSize, 1)),
		lastActivity: time.Now(),
	}, nil
}

type coderConn struct {
	cfg    TransportConfig
	logger *slog.Logger
	ws     *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	writes chan []byte

	handler    Handler
	reportOnce sync.Once
	closeOnce  sync.Once

	mu           sync.RWMutex
	lastActivity time.Time
	closed       bool
}

func (c *coderConn) Start(h Handler) {
	c.handler = h
	go c.readLoop()
	go c.writeLoop()
}

func (c *coderConn) Write(data []byte) error {
	if c.isClosed() {
		return ErrAlreadyClosed
	}
	select {
	case c.writes <- data:
		return nil
	default:
		return ErrWriteQueueFull
	}
}

// Ping runs in the background: coder/websocket blocks until the pong arrives.
func (c *coderConn) Ping() error {
	if c.isClosed() {
		return ErrAlreadyClosed
	}
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
		defer cancel()
		if err := c.ws.Ping(ctx); err != nil {
			c.logger.Debug("websocket ping failed", "error", err)
			return
		}
		c.touch(time.Now())
	}()
	return nil
}

func (c *coderConn) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

// Close starts the close handshake in the background.
func (c *coderConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		go c.ws.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}

func (c *coderConn) touch(at time.Time) {
	c.mu.Lock()
	c.lastActivity = at
	c.mu.Unlock()
}

func (c *coderConn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *coderConn) report(err error) {
	if c.isClosed() {
		return
	}
	c.reportOnce.Do(func() {
		c.handler.HandleClose(err)
	})
}

// readLoop reads raw frames. Not wsjson.Read: it closes the socket on a
// JSON error, and a malformed frame must not end the session.
func (c *coderConn) readLoop() {
	for {
		_, data, err := c.ws.Read(c.ctx)
		receivedAt := time.Now()
		if err != nil {
			c.report(err)
			return
		}
		c.touch(receivedAt)
		c.handler.HandleFrame(data, receivedAt)
	}
}

func (c *coderConn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.writes:
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
			err := wsjson.Write(ctx, c.ws, json.RawMessage(data))
			cancel()
			if err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				c.report(err)
				return
			}
		}
	}
}
