package chatserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/chatlink/internal/mock"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/router"
)

// Config controls the scripted responses.
type Config struct {
	DeliveredDelay time.Duration
	ReadDelay      time.Duration // After delivered
	ReplyDelay     time.Duration // After read
	SendQueueSize  int
}

// DefaultConfig returns delays close to the simulated transport.
func DefaultConfig() Config {
	return Config{
		DeliveredDelay: 500 * time.Millisecond,
		ReadDelay:      2 * time.Second,
		ReplyDelay:     time.Second,
		SendQueueSize:  64,
	}
}

// Replies is the source of reply texts. *mock.Generator satisfies it.
type Replies interface {
	MessageText() string
}

// Server tracks socket clients and the message history.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	replies  Replies
	router   *router.Router
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	contacts []model.Contact
	history  []model.Message
	closed   bool
}

// New creates a Server seeded with the mock contacts and history.
func New(cfg Config, replies Replies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if replies == nil {
		replies = mock.NewGenerator(nil)
	}
	now := time.Now()
	return &Server{
		cfg:     cfg,
		logger:  logger,
		replies: replies,
		router:  router.New(logger),
		upgrader: websocket.Upgrader{
			// Local test server; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*client]struct{}),
		contacts: mock.Contacts(now),
		history:  mock.Messages(now),
	}
}

// Handler returns the HTTP handler for /ws and the REST endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /api/contacts", s.handleContacts)
	mux.HandleFunc("GET /api/messages", s.handleMessages)
	return mux
}

// ClientCount returns the number of connected sockets.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client and rejects new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		server: s,
		ws:     ws,
		send:   make(chan []byte, max(s.cfg.SendQueueSize, 1)),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("client connected", "client_id", c.id, "remote", r.RemoteAddr)

	go c.read()
	go c.write()
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	if ok {
		s.logger.Info("client disconnected", "client_id", c.id)
	}
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	contacts := append([]model.Contact(nil), s.contacts...)
	s.mu.Unlock()

	writeJSON(w, map[string]any{"contacts": contacts})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	contactID := r.URL.Query().Get("contactId")

	s.mu.Lock()
	messages := make([]model.Message, 0, len(s.history))
	for _, m := range s.history {
		if contactID == "" || m.ContactID == contactID {
			messages = append(messages, m)
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"messages": messages})
}

// record appends m to the history and bumps the contact's last message.
func (s *Server) record(m model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, m)
	for i := range s.contacts {
		if s.contacts[i].ID == m.ContactID {
			s.contacts[i].LastMessage = m.Content
			s.contacts[i].LastMessageTime = m.Timestamp
		}
	}
}

func (s *Server) setStatus(id string, status model.DeliveryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		if s.history[i].ID == id {
			s.history[i].Status = status
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
