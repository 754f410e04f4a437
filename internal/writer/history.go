package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/chatlink/internal/buffer"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/model"
)

// BatchSender is satisfied by *pgxpool.Pool.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// EventSource is the subscription half of connection.Manager.
type EventSource interface {
	Subscribe(connection.EventType, connection.Listener)
	Unsubscribe(connection.EventType, connection.Listener) bool
}

const (
	insertMessageSQL = `
		INSERT INTO messages (id, contact_id, content, sent_at, is_own, status, instance_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	updateStatusSQL = `
		UPDATE messages SET status = $2, updated_at = now()
		WHERE id = $1`
)

// record is one pending write: a message insert or a status update.
type record struct {
	message   *model.Message
	messageID string
	status    model.DeliveryStatus
}

// HistoryWriter persists chat messages and their delivery status.
type HistoryWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from event listeners
	input *buffer.Queue[record]

	// Database
	db BatchSender

	// Batching
	batch       []record
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewHistoryWriter creates a new HistoryWriter.
func NewHistoryWriter(cfg WriterConfig, db BatchSender, logger *slog.Logger) *HistoryWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  buffer.New[record](max(cfg.BatchSize, 16)),
		batch:  make([]record, 0, cfg.BatchSize),
	}
}

// Bind records message and status events from src until the returned
// func is called.
func (w *HistoryWriter) Bind(src EventSource) (unbind func()) {
	onMessage := connection.OnMessage(func(ev connection.MessageReceived) {
		w.RecordMessage(ev.Message)
	})
	onStatus := connection.OnMessageStatus(func(ev connection.MessageStatusChanged) {
		w.RecordStatus(ev.MessageID, ev.Status)
	})

	src.Subscribe(connection.EventMessage, onMessage)
	src.Subscribe(connection.EventMessageStatus, onStatus)

	return func() {
		src.Unsubscribe(connection.EventMessage, onMessage)
		src.Unsubscribe(connection.EventMessageStatus, onStatus)
	}
}

// RecordMessage queues msg for insertion. Own messages are recorded here
// by the sender; incoming ones arrive through Bind.
func (w *HistoryWriter) RecordMessage(msg model.Message) {
	w.enqueue(record{message: &msg})
}

// RecordStatus queues a delivery status update.
func (w *HistoryWriter) RecordStatus(messageID string, status model.DeliveryStatus) {
	w.enqueue(record{messageID: messageID, status: status})
}

func (w *HistoryWriter) enqueue(r record) {
	if w.cfg.BufferSize > 0 && w.input.Len() >= w.cfg.BufferSize {
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("history buffer full, dropping record")
		return
	}
	w.input.Push(r)
}

// Start begins consuming records and writing to the database.
func (w *HistoryWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("history writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the writer and flushes what is left, using ctx for the
// final write.
func (w *HistoryWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping history writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("history writer stopped")
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
	}

	// Final flush
	w.input.Close()
	w.collect()
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *HistoryWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// Pending returns the number of records not yet written.
func (w *HistoryWriter) Pending() int {
	w.batchMu.Lock()
	n := len(w.batch)
	w.batchMu.Unlock()
	return n + w.input.Len()
}

// consumeLoop moves queued records into the batch.
func (w *HistoryWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.input.Ready():
			if w.collect() {
				w.flush(w.ctx)
			}
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *HistoryWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// collect drains the input into the batch. Reports whether the batch is full.
func (w *HistoryWriter) collect() bool {
	items := w.input.Drain(0)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, items...)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch to the database.
func (w *HistoryWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]record, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	res, err := w.send(ctx, batch)
	if err != nil {
		w.logger.Error("history batch failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += res.inserts
	w.metrics.Conflicts += res.conflicts
	w.metrics.StatusUpdates += res.updates
	w.metrics.StatusMisses += res.misses
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed history",
		"count", len(batch),
		"conflicts", res.conflicts,
		"status_misses", res.misses,
		"duration", time.Since(start),
	)
}

type sendResult struct {
	inserts, conflicts, updates, misses int64
}

// send queues every record in order, so a status update that follows its
// message in the batch sees the inserted row.
func (w *HistoryWriter) send(ctx context.Context, rows []record) (sendResult, error) {
	var res sendResult

	batch := &pgx.Batch{}
	for _, r := range rows {
		if m := r.message; m != nil {
			batch.Queue(insertMessageSQL,
				m.ID, m.ContactID, m.Content, m.Timestamp, m.IsOwn, string(m.Status), w.cfg.InstanceID)
		} else {
			batch.Queue(updateStatusSQL, r.messageID, string(r.status))
		}
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, r := range rows {
		ct, err := results.Exec()
		if err != nil {
			return sendResult{}, err
		}
		switch {
		case r.message != nil && ct.RowsAffected() == 0:
			res.conflicts++
		case r.message != nil:
			res.inserts++
		case ct.RowsAffected() == 0:
			res.misses++
		default:
			res.updates++
		}
	}

	return res, nil
}
