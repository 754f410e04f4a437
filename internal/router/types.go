package router

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/rickgao/chatlink/internal/model"
)

// Errors
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownType    = errors.New("unknown frame type")
)

// FrameKind identifies what an inbound frame carries.
type FrameKind string

const (
	KindMessage        FrameKind = "message"
	KindMessageStatus  FrameKind = "message_status"
	KindTypingStart    FrameKind = "typing_start"
	KindTypingStop     FrameKind = "typing_stop"
	KindPresenceUpdate FrameKind = "presence_update"
)

// Frame is a decoded inbound frame. Which fields are set depends on Kind:
//   - message:          Message
//   - message_status:   MessageID, Status
//   - typing_start/stop: ContactID
//   - presence_update:  ContactID, Presence
type Frame struct {
	Kind      FrameKind
	Message   model.Message
	MessageID string
	Status    model.DeliveryStatus
	ContactID string
	Presence  model.PresenceStatus
}

// Stats contains decode counters.
type Stats struct {
	FramesReceived int64
	FramesDecoded  int64
	ParseErrors    int64
	UnknownFrames  int64
	FramesEncoded  int64
}

// -----------------------------------------------------------------------------
// Wire types
// -----------------------------------------------------------------------------

// envelope wraps typed frames: {"type": "...", "data": {...}, "timestamp": "..."}.
type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// probe is used to tell an envelope from a bare message frame.
type probe struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	ContactID *flexID         `json:"contactId"`
}

type messageFrame struct {
	ID        flexID `json:"id"`
	ContactID flexID `json:"contactId"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	IsOwn     bool   `json:"isOwn"`
	Status    string `json:"status"`
}

type statusFrame struct {
	MessageID flexID `json:"messageId"`
	Status    string `json:"status"`
}

type contactFrame struct {
	ContactID flexID `json:"contactId"`
	Status    string `json:"status,omitempty"`
}

// flexID accepts identifiers sent as JSON strings or numbers
// (some servers use millisecond timestamps as message ids).
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = flexID(str)
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return errors.New("id must be a string or number")
	}
	*f = flexID(s)
	return nil
}
