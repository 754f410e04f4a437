package chatserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/router"
)

type fixedReply string

func (r fixedReply) MessageText() string { return string(r) }

func fastConfig() Config {
	return Config{
		DeliveredDelay: 10 * time.Millisecond,
		ReadDelay:      10 * time.Millisecond,
		ReplyDelay:     10 * time.Millisecond,
		SendQueueSize:  8,
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(fastConfig(), fixedReply("pong"), logger)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		hs.Close()
	})
	return s, hs
}

func wsURL(hs *httptest.Server) string {
	return "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
}

func readFrame(t *testing.T, ws *websocket.Conn) router.Frame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	frame, err := router.New(nil).Decode(data, time.Now())
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return frame
}

func TestServer_ScriptedResponses(t *testing.T) {
	s, hs := newTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(hs), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	msg := model.NewOwnMessage("3", "hello", time.Now())
	data, err := router.New(nil).Encode(model.Outbound{Kind: model.OutboundMessage, Message: msg})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	delivered := readFrame(t, ws)
	if delivered.Kind != router.KindMessageStatus || delivered.MessageID != msg.ID || delivered.Status != model.StatusDelivered {
		t.Errorf("first frame = %+v, want delivered for %s", delivered, msg.ID)
	}

	read := readFrame(t, ws)
	if read.Kind != router.KindMessageStatus || read.Status != model.StatusRead {
		t.Errorf("second frame = %+v, want read", read)
	}

	reply := readFrame(t, ws)
	if reply.Kind != router.KindMessage {
		t.Fatalf("third frame = %+v, want message", reply)
	}
	if reply.Message.ContactID != "3" || reply.Message.Content != "pong" || reply.Message.IsOwn {
		t.Errorf("reply = %+v", reply.Message)
	}
	if reply.Message.ID == "" || reply.Message.ID == msg.ID {
		t.Errorf("reply ID = %q, want a fresh id", reply.Message.ID)
	}

	if n := s.ClientCount(); n != 1 {
		t.Errorf("ClientCount = %d, want 1", n)
	}
}

func TestServer_IgnoresNonMessageFrames(t *testing.T) {
	_, hs := newTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(hs), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing","data":{"contactId":"1"}}`))
	ws.WriteMessage(websocket.TextMessage, []byte(`not json`))

	ws.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := ws.ReadMessage(); err == nil {
		t.Errorf("unexpected frame %s", data)
	}
}

func TestServer_REST(t *testing.T) {
	s, hs := newTestServer(t)
	s.record(model.Message{ID: "x1", ContactID: "2", Content: "late", Timestamp: time.Now(), IsOwn: true, Status: model.StatusSent})

	get := func(path string, v any) {
		t.Helper()
		resp, err := http.Get(hs.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}

	var contacts struct {
		Contacts []model.Contact `json:"contacts"`
	}
	get("/api/contacts", &contacts)
	if len(contacts.Contacts) != 8 {
		t.Fatalf("len(contacts) = %d, want 8", len(contacts.Contacts))
	}
	if c := contacts.Contacts[1]; c.ID != "2" || c.LastMessage != "late" {
		t.Errorf("contact 2 = %+v, want last message updated", c)
	}

	var all struct {
		Messages []model.Message `json:"messages"`
	}
	get("/api/messages", &all)
	if len(all.Messages) != 9 {
		t.Errorf("len(messages) = %d, want 9", len(all.Messages))
	}

	var forTwo struct {
		Messages []model.Message `json:"messages"`
	}
	get("/api/messages?contactId=2", &forTwo)
	if len(forTwo.Messages) != 3 {
		t.Errorf("len(messages for 2) = %d, want 3", len(forTwo.Messages))
	}
	for _, m := range forTwo.Messages {
		if m.ContactID != "2" {
			t.Errorf("message %s has contact %s", m.ID, m.ContactID)
		}
	}
}

func TestServer_CloseDisconnectsClients(t *testing.T) {
	s, hs := newTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(hs), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	s.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after Close = %v, want normal closure", err)
	}
	if n := s.ClientCount(); n != 0 {
		t.Errorf("ClientCount = %d, want 0", n)
	}
}

// The manager's gorilla transport against the reference server.
func TestServer_WithManager(t *testing.T) {
	_, hs := newTestServer(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := connection.DefaultConfig()
	cfg.Endpoint = connection.Endpoint{UseRealServer: true, ServerURL: wsURL(hs)}
	cfg.HeartbeatInterval = time.Hour
	m := connection.NewManager(cfg, logger)
	defer m.Disconnect()

	var mu sync.Mutex
	var statuses []model.DeliveryStatus
	replies := make(chan model.Message, 1)

	m.Subscribe(connection.EventMessageStatus, connection.OnMessageStatus(func(ev connection.MessageStatusChanged) {
		mu.Lock()
		statuses = append(statuses, ev.Status)
		mu.Unlock()
	}))
	m.Subscribe(connection.EventMessage, connection.OnMessage(func(ev connection.MessageReceived) {
		replies <- ev.Message
	}))

	select {
	case err := <-m.Connect():
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout connecting")
	}

	msg := model.NewOwnMessage("5", "are you there?", time.Now())
	if err := m.Send(model.Outbound{Kind: model.OutboundMessage, Message: msg}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case reply := <-replies:
		if reply.ContactID != "5" || reply.Content != "pong" {
			t.Errorf("reply = %+v", reply)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for reply")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 2 || statuses[0] != model.StatusDelivered || statuses[1] != model.StatusRead {
		t.Errorf("statuses = %v, want [delivered read]", statuses)
	}
}
