// chatserver runs the reference chat backend for exercising the real transport.
// Usage: go run ./cmd/chatserver --addr :8080
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chatlink/internal/chatserver"
	"github.com/rickgao/chatlink/internal/version"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	delivered := flag.Duration("delivered-delay", 500*time.Millisecond, "delay before the delivered receipt")
	read := flag.Duration("read-delay", 2*time.Second, "delay between delivered and read receipts")
	reply := flag.Duration("reply-delay", time.Second, "delay between the read receipt and the reply")
	verbose := flag.Bool("verbose", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := chatserver.DefaultConfig()
	cfg.DeliveredDelay = *delivered
	cfg.ReadDelay = *read
	cfg.ReplyDelay = *reply

	chat := chatserver.New(cfg, nil, logger)
	server := &http.Server{
		Addr:    *addr,
		Handler: chat.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting chat server", "addr", *addr, "version", version.String())
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down...")
		chat.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("chat server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("chat server stopped")
}
