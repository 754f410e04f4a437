package writer

import "time"

// WriterConfig holds batching settings.
type WriterConfig struct {
	BatchSize     int           // Flush when this many records are pending
	FlushInterval time.Duration // Flush at least this often
	BufferSize    int           // Records queued beyond this are dropped
	InstanceID    string        // Stored with every message
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
		InstanceID:    "chatlink",
	}
}

// WriterMetrics contains writer counters.
type WriterMetrics struct {
	Inserts       int64
	Conflicts     int64
	StatusUpdates int64
	StatusMisses  int64 // Status for a message not in the table
	Errors        int64
	Dropped       int64
	Flushes       int64
}
