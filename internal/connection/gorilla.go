package connection

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// GorillaDialer dials sockets with github.com/gorilla/websocket.
type GorillaDialer struct {
	cfg    TransportConfig
	logger *slog.Logger
}

// NewGorillaDialer creates the default socket driver.
func NewGorillaDialer(cfg TransportConfig, logger *slog.Logger) *GorillaDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GorillaDialer{cfg: cfg, logger: logger}
}

// Dial opens a socket to url.
func (d *GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	if d.cfg.ReadLimit > 0 {
		ws.SetReadLimit(d.cfg.ReadLimit)
	}

	c := &gorillaConn{
		cfg:          d.cfg,
		logger:       d.logger,
		ws:           ws,
		writes:       make(chan []byte, max(d.cfg.WriteQueueSize, 1)),
		done:         make(chan struct{}),
		lastActivity: time.Now(),
	}

	// Server pings: note the activity and answer.
	ws.SetPingHandler(func(data string) error {
		c.touch(time.Now())
		return ws.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	// Answers to our pings.
	ws.SetPongHandler(func(string) error {
		c.touch(time.Now())
		return nil
	})

	d.logger.Debug("websocket connected", "url", url, "driver", "gorilla")
	return c, nil
}

type gorillaConn struct {
	cfg    TransportConfig
	logger *slog.Logger
	ws     *websocket.Conn

	writes chan []byte
	done   chan struct{}

	handler    Handler
	reportOnce sync.Once
	closeOnce  sync.Once

	mu           sync.RWMutex
	lastActivity time.Time
	closed       bool
}

func (c *gorillaConn) Start(h Handler) {
	c.handler = h
	go c.readLoop()
	go c.writeLoop()
}

func (c *gorillaConn) Write(data []byte) error {
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

func (c *gorillaConn) Ping() error {
	if c.isClosed() {
		return ErrAlreadyClosed
	}
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	return c.ws.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)
}

func (c *gorillaConn) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

func (c *gorillaConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)

		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.ws.Close()
	})
	return err
}

func (c *gorillaConn) touch(at time.Time) {
	c.mu.Lock()
	c.lastActivity = at
	c.mu.Unlock()
}

func (c *gorillaConn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// report forwards the first failure to the handler, unless we closed locally.
func (c *gorillaConn) report(err error) {
	if c.isClosed() {
		return
	}
	c.reportOnce.Do(func() {
		c.handler.HandleClose(err)
	})
}

func (c *gorillaConn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			c.report(err)
			return
		}
		c.touch(receivedAt)
		c.handler.HandleFrame(data, receivedAt)
	}
}

func (c *gorillaConn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.writes:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				c.report(err)
				return
			}
		}
	}
}
