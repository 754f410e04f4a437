// chatlink keeps a chat connection alive and mirrors it into a local store.
// Usage: go run ./cmd/chatlink --config configs/chatlink.example.yaml
//
// Type "<contactID> <text>" on stdin to send a message.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chatlink/internal/api"
	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/database"
	"github.com/rickgao/chatlink/internal/metrics"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/poller"
	"github.com/rickgao/chatlink/internal/store"
	"github.com/rickgao/chatlink/internal/version"
	"github.com/rickgao/chatlink/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and env only when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting chatlink",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"use_real_server", cfg.Server.UseRealServer,
		"url", cfg.Server.URL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, os.Stdin, logger); err != nil {
		logger.Error("chatlink failed", "error", err)
		os.Exit(1)
	}
	logger.Info("chatlink stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.LoadAndValidate(path)
}

func run(ctx context.Context, cfg *config.Config, configPath string, stdin io.Reader, logger *slog.Logger) error {
	// Store
	chat := store.New(logger.With("component", "store"))
	client := api.NewClient(cfg.Server.RestURL,
		api.WithLogger(logger.With("component", "api")),
		api.WithTimeout(cfg.Server.Timeout),
		api.WithRetries(cfg.Server.MaxRetries, time.Second),
	)
	seedStore(ctx, cfg, client, chat, logger)

	// Connection manager
	manager := connection.NewManager(cfg.ManagerConfig(), logger.With("component", "connection"),
		connection.WithDialer(newDialer(cfg, logger)),
	)
	unbindStore := chat.Bind(manager)
	defer unbindStore()

	manager.Subscribe(connection.EventMaxReconnectAttemptsReached, connection.Listen(func(connection.Event) {
		logger.Warn("gave up reconnecting; POST /debug/connect to retry")
	}))

	// Optional history database
	var pool *pgxpool.Pool
	var history *writer.HistoryWriter
	if cfg.Database.Enabled() {
		var err error
		pool, err = database.Connect(ctx, cfg.Database, cfg.Instance.ID)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database connected", "host", cfg.Database.Host, "database", cfg.Database.Name)

		history = writer.NewHistoryWriter(writer.WriterConfig{
			BatchSize:     cfg.Writer.BatchSize,
			FlushInterval: cfg.Writer.FlushInterval,
			BufferSize:    cfg.Writer.BufferSize,
			InstanceID:    cfg.Instance.ID,
		}, pool, logger.With("component", "writer"))
		if err := history.Start(ctx); err != nil {
			return fmt.Errorf("start history writer: %w", err)
		}
		unbindHistory := history.Bind(manager)
		defer func() {
			unbindHistory()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			history.Stop(shutdownCtx)
		}()
	}

	// History sync over REST, plus a catch-up cycle after every reconnect
	var historySync *poller.Poller
	if cfg.Server.SyncInterval > 0 {
		historySync = poller.New(poller.Config{
			Interval:    cfg.Server.SyncInterval,
			Concurrency: 4,
			Timeout:     cfg.Server.Timeout,
		}, client, chat, poller.HistoryHandlerFunc(func(contactID string, msgs []model.Message) error {
			if added := chat.MergeHistory(msgs); added > 0 {
				logger.Info("recovered history", "contact_id", contactID, "added", added)
			}
			return nil
		}), logger.With("component", "poller"))

		if err := historySync.Start(ctx); err != nil {
			return fmt.Errorf("start history poller: %w", err)
		}
		onConnected := connection.Listen(func(connection.Event) { historySync.Trigger() })
		manager.Subscribe(connection.EventConnected, onConnected)
		defer func() {
			manager.Unsubscribe(connection.EventConnected, onConnected)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			historySync.Stop(shutdownCtx)
		}()
	}

	g, ctx := errgroup.WithContext(ctx)

	// Health, debug and metrics
	if cfg.HTTP.Port >= 0 {
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler: newHTTPHandler(cfg, manager, chat, history, historySync, pool, logger),
		}
		g.Go(func() error {
			logger.Info("starting http server", "port", cfg.HTTP.Port)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// Hot reload of the server endpoint
	if configPath != "" {
		current := cfg
		g.Go(func() error {
			return config.Watch(ctx, configPath, logger, func(next *config.Config) {
				if patch, changed := next.EndpointChange(current); changed {
					manager.Reconfigure(patch)
				}
				current = next
			})
		})
	}

	// Stdin commands
	go readCommands(ctx, stdin, manager, chat, history, logger)

	done := manager.Connect()
	g.Go(func() error {
		select {
		case err := <-done:
			if err != nil {
				logger.Warn("initial connect failed, reconnecting in background", "error", err)
			}
		case <-ctx.Done():
		}
		return nil
	})

	<-ctx.Done()
	logger.Info("shutting down...")
	manager.Disconnect()

	return g.Wait()
}

// seedStore loads the initial contacts and history from the REST API when
// talking to a real server, falling back to the mock data.
func seedStore(ctx context.Context, cfg *config.Config, client *api.Client, chat *store.Store, logger *slog.Logger) {
	if cfg.Server.UseRealServer && cfg.Server.RestURL != "" {
		snap, err := client.LoadSnapshot(ctx)
		if err == nil {
			chat.SetContacts(snap.Contacts)
			chat.SetMessages(snap.Messages)
			return
		}
		logger.Warn("failed to load snapshot, using mock data", "error", err, "rest_url", cfg.Server.RestURL)
	}
	chat.LoadMock(time.Now())
}

func newDialer(cfg *config.Config, logger *slog.Logger) connection.Dialer {
	tc := cfg.TransportConfig()
	if cfg.Server.Driver == "coder" {
		return connection.NewCoderDialer(tc, logger.With("driver", "coder"))
	}
	return connection.NewGorillaDialer(tc, logger.With("driver", "gorilla"))
}

func newHTTPHandler(cfg *config.Config, manager *connection.Manager, chat *store.Store, history *writer.HistoryWriter, historySync *poller.Poller, pool *pgxpool.Pool, logger *slog.Logger) http.Handler {
	sources := metrics.Sources{
		Connection: manager.Stats,
		Router:     manager.Router().Stats,
		Store:      chat.Stats,
	}
	hc := metrics.HandlerConfig{
		Manager:     manager,
		MetricsPath: cfg.HTTP.MetricsPath,
		Logger:      logger.With("component", "http"),
	}
	if history != nil {
		sources.Writer = history.Stats
	}
	if historySync != nil {
		sources.Poller = historySync.Stats
	}
	if pool != nil {
		hc.DB = pool
	}
	hc.Collector = metrics.NewCollector(sources)
	return metrics.NewHandler(hc)
}

// readCommands sends each "<contactID> <text>" line as an own message.
func readCommands(ctx context.Context, r io.Reader, manager *connection.Manager, chat *store.Store, history *writer.HistoryWriter, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		contactID, text, ok := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		text = strings.TrimSpace(text)
		if !ok || text == "" {
			logger.Warn("expected: <contactID> <text>")
			continue
		}
		if _, known := chat.Contact(contactID); !known {
			logger.Warn("unknown contact", "contact_id", contactID)
			continue
		}

		msg := model.NewOwnMessage(contactID, text, time.Now())
		if err := manager.Send(model.Outbound{Kind: model.OutboundMessage, Message: msg}); err != nil {
			logger.Warn("message not sent", "error", err, "state", manager.State().String())
			continue
		}
		chat.AddMessage(msg)
		if history != nil {
			history.RecordMessage(msg)
		}
		logger.Info("sent", "message_id", msg.ID, "contact_id", contactID)
	}
}
