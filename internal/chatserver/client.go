package chatserver

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/router"
)

// client is one socket. read decodes inbound frames and schedules the
// scripted responses; write drains send back to the socket.
type client struct {
	id     string
	server *Server
	ws     *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	timers []*time.Timer
	done   chan struct{}
	once   sync.Once
}

// envelope matches what router.Decode accepts.
type envelope struct {
	Type      router.FrameKind `json:"type"`
	Data      any              `json:"data"`
	Timestamp string           `json:"timestamp"`
}

type statusData struct {
	MessageID string               `json:"messageId"`
	Status    model.DeliveryStatus `json:"status"`
}

func (c *client) read() {
	defer c.close()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.server.logger.Debug("read ended", "client_id", c.id, "error", err)
			}
			return
		}

		frame, err := c.server.router.Decode(data, time.Now())
		if err != nil {
			if errors.Is(err, router.ErrUnknownType) {
				// typing, status and presence frames from the client are not answered
				continue
			}
			c.server.logger.Warn("bad frame from client", "client_id", c.id, "error", err)
			continue
		}
		if frame.Kind == router.KindMessage {
			c.handleMessage(frame.Message)
		}
	}
}

func (c *client) handleMessage(m model.Message) {
	cfg := c.server.cfg
	m.Status = model.StatusSent
	c.server.record(m)

	c.after(cfg.DeliveredDelay, func() {
		c.server.setStatus(m.ID, model.StatusDelivered)
		c.push(router.KindMessageStatus, statusData{MessageID: m.ID, Status: model.StatusDelivered})
	})
	c.after(cfg.DeliveredDelay+cfg.ReadDelay, func() {
		c.server.setStatus(m.ID, model.StatusRead)
		c.push(router.KindMessageStatus, statusData{MessageID: m.ID, Status: model.StatusRead})
	})
	c.after(cfg.DeliveredDelay+cfg.ReadDelay+cfg.ReplyDelay, func() {
		reply := model.Message{
			ID:        uuid.NewString(),
			ContactID: m.ContactID,
			Content:   c.server.replies.MessageText(),
			Timestamp: time.Now().UTC(),
			Status:    model.StatusDelivered,
		}
		c.server.record(reply)
		c.push(router.KindMessage, reply)
	})
}

// after runs fn once d has elapsed unless the client closes first.
func (c *client) after(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.timers = append(c.timers, time.AfterFunc(d, fn))
}

func (c *client) push(kind router.FrameKind, data any) {
	frame, err := json.Marshal(envelope{
		Type:      kind,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		c.server.logger.Error("encode frame", "error", err, "type", kind)
		return
	}

	select {
	case <-c.done:
	case c.send <- frame:
	default:
		c.server.logger.Warn("client send queue full, dropping frame", "client_id", c.id, "type", kind)
	}
}

func (c *client) write() {
	for {
		select {
		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.server.logger.Debug("write failed", "client_id", c.id, "error", err)
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		c.mu.Lock()
		close(c.done)
		for _, t := range c.timers {
			t.Stop()
		}
		c.timers = nil
		c.mu.Unlock()

		c.server.unregister(c)
		// Unblocks read; write sends the close frame first when it can.
		time.AfterFunc(time.Second, func() { c.ws.Close() })
	})
}
