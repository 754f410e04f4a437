package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// Router translates between raw socket frames and typed values.
// It is stateless apart from counters and safe for concurrent use.
type Router struct {
	logger *slog.Logger

	mu       sync.Mutex
	received int64
	decoded  int64
	parseErr int64
	unknown  int64
	encoded  int64
}

// New creates a Router.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Stats returns current counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		FramesReceived: r.received,
		FramesDecoded:  r.decoded,
		ParseErrors:    r.parseErr,
		UnknownFrames:  r.unknown,
		FramesEncoded:  r.encoded,
	}
}

// Decode parses one inbound frame. receivedAt stands in for a missing
// message timestamp. Errors wrap ErrMalformedFrame or ErrUnknownType; the
// caller is expected to drop the frame and keep the connection.
func (r *Router) Decode(data []byte, receivedAt time.Time) (Frame, error) {
	r.count(&r.received)

	frame, err := r.decode(data, receivedAt)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			r.count(&r.unknown)
		} else {
			r.count(&r.parseErr)
		}
		r.logger.Warn("dropping inbound frame", "error", err, "bytes", len(data))
		return Frame{}, err
	}

	r.count(&r.decoded)
	return frame, nil
}

func (r *Router) decode(data []byte, receivedAt time.Time) (Frame, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	// Bare message object without an envelope.
	if p.Type == "" {
		if p.ContactID == nil {
			return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
		}
		return decodeMessage(data, receivedAt)
	}

	if len(p.Data) == 0 {
		return Frame{}, fmt.Errorf("%w: %s frame without data", ErrMalformedFrame, p.Type)
	}

	switch FrameKind(p.Type) {
	case KindMessage:
		return decodeMessage(p.Data, receivedAt)

	case KindMessageStatus:
		var s statusFrame
		if err := json.Unmarshal(p.Data, &s); err != nil {
			return Frame{}, fmt.Errorf("%w: message_status: %v", ErrMalformedFrame, err)
		}
		status := model.DeliveryStatus(s.Status)
		if s.MessageID == "" || !status.Valid() {
			return Frame{}, fmt.Errorf("%w: message_status needs messageId and a valid status", ErrMalformedFrame)
		}
		return Frame{Kind: KindMessageStatus, MessageID: string(s.MessageID), Status: status}, nil

	case KindTypingStart, KindTypingStop:
		var c contactFrame
		if err := json.Unmarshal(p.Data, &c); err != nil {
			return Frame{}, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, p.Type, err)
		}
		if c.ContactID == "" {
			return Frame{}, fmt.Errorf("%w: %s needs contactId", ErrMalformedFrame, p.Type)
		}
		return Frame{Kind: FrameKind(p.Type), ContactID: string(c.ContactID)}, nil

	case KindPresenceUpdate:
		var c contactFrame
		if err := json.Unmarshal(p.Data, &c); err != nil {
			return Frame{}, fmt.Errorf("%w: presence_update: %v", ErrMalformedFrame, err)
		}
		presence := model.PresenceStatus(c.Status)
		if c.ContactID == "" || !presence.Valid() {
			return Frame{}, fmt.Errorf("%w: presence_update needs contactId and a valid status", ErrMalformedFrame)
		}
		return Frame{Kind: KindPresenceUpdate, ContactID: string(c.ContactID), Presence: presence}, nil

	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownType, p.Type)
	}
}

func decodeMessage(data []byte, receivedAt time.Time) (Frame, error) {
	var m messageFrame
	if err := json.Unmarshal(data, &m); err != nil {
		return Frame{}, fmt.Errorf("%w: message: %v", ErrMalformedFrame, err)
	}
	if m.ID == "" || m.ContactID == "" {
		return Frame{}, fmt.Errorf("%w: message needs id and contactId", ErrMalformedFrame)
	}

	ts := receivedAt
	if m.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: message timestamp: %v", ErrMalformedFrame, err)
		}
		ts = parsed
	}

	status := model.StatusDelivered
	if m.Status != "" {
		status = model.DeliveryStatus(m.Status)
		if !status.Valid() {
			return Frame{}, fmt.Errorf("%w: message status %q", ErrMalformedFrame, m.Status)
		}
	}

	return Frame{
		Kind: KindMessage,
		Message: model.Message{
			ID:        string(m.ID),
			ContactID: string(m.ContactID),
			Content:   m.Content,
			Timestamp: ts,
			IsOwn:     m.IsOwn,
			Status:    status,
		},
	}, nil
}

// Encode serialises an outbound frame as an envelope.
func (r *Router) Encode(out model.Outbound) ([]byte, error) {
	var data any
	if out.Kind == model.OutboundMessage {
		m := out.Message
		data = messageFrame{
			ID:        flexID(m.ID),
			ContactID: flexID(m.ContactID),
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(isoMillis),
			IsOwn:     m.IsOwn,
			Status:    string(m.Status),
		}
	} else {
		data = out.Data
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", out.Kind, err)
	}

	sentAt := out.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	frame, err := json.Marshal(envelope{
		Type:      string(out.Kind),
		Data:      payload,
		Timestamp: sentAt.UTC().Format(isoMillis),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	r.count(&r.encoded)
	return frame, nil
}

// isoMillis matches JavaScript's Date.toISOString output.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (r *Router) count(c *int64) {
	r.mu.Lock()
	*c++
	r.mu.Unlock()
}
