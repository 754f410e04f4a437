package metrics

import (
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/poller"
	"github.com/rickgao/chatlink/internal/router"
	"github.com/rickgao/chatlink/internal/store"
	"github.com/rickgao/chatlink/internal/writer"
)

const namespace = "chatlink"

// Sources supplies the values a Collector reports. Nil funcs are skipped.
type Sources struct {
	Connection func() connection.Stats
	Router     func() router.Stats
	Writer     func() writer.WriterMetrics
	Store      func() store.Stats
	Poller     func() poller.Stats
}

// Collector snapshots Sources into metric families on every scrape.
type Collector struct {
	src Sources
}

// NewCollector creates a Collector.
func NewCollector(src Sources) *Collector {
	return &Collector{src: src}
}

// Gather returns the current metric families, grouped by source.
func (c *Collector) Gather() []*dto.MetricFamily {
	var out []*dto.MetricFamily

	if c.src.Connection != nil {
		s := c.src.Connection()
		out = append(out, stateFamily(s.State))
		out = append(out,
			gauge("connection_attempts", "Consecutive failed connection attempts.", float64(s.Attempts)),
			counter("connects_total", "Successful connections.", float64(s.Connects)),
			counter("connection_failures_total", "Failed connection attempts and dropped sessions.", float64(s.Failures)),
			counter("give_ups_total", "Times reconnection was abandoned.", float64(s.GiveUps)),
			counter("messages_sent_total", "Outbound frames handed to the transport.", float64(s.MessagesSent)),
			counter("events_emitted_total", "Events delivered to listeners.", float64(s.EventsEmitted)),
			counter("listener_panics_total", "Listener panics recovered.", float64(s.ListenerPanics)),
			gauge("pending_timers", "Scheduled timers not yet fired.", float64(s.PendingTimers)),
		)
	}

	if c.src.Router != nil {
		s := c.src.Router()
		out = append(out,
			counter("frames_received_total", "Raw frames read from the socket.", float64(s.FramesReceived)),
			counter("frames_decoded_total", "Frames decoded into events.", float64(s.FramesDecoded)),
			counter("parse_errors_total", "Frames dropped as malformed.", float64(s.ParseErrors)),
			counter("unknown_frames_total", "Envelopes with an unknown type.", float64(s.UnknownFrames)),
		)
	}

	if c.src.Writer != nil {
		s := c.src.Writer()
		out = append(out,
			counter("writer_inserts_total", "Messages inserted into history.", float64(s.Inserts)),
			counter("writer_conflicts_total", "Messages already present in history.", float64(s.Conflicts)),
			counter("writer_status_updates_total", "Delivery status updates applied.", float64(s.StatusUpdates)),
			counter("writer_errors_total", "Failed history batches.", float64(s.Errors)),
			counter("writer_dropped_total", "Records dropped on a full buffer.", float64(s.Dropped)),
		)
	}

	if c.src.Store != nil {
		s := c.src.Store()
		out = append(out,
			gauge("store_contacts", "Contacts in the store.", float64(s.Contacts)),
			gauge("store_messages", "Messages in the store.", float64(s.Messages)),
			gauge("store_unread", "Unread messages across contacts.", float64(s.Unread)),
			gauge("store_typing", "Contacts currently typing.", float64(s.Typing)),
		)
	}

	if c.src.Poller != nil {
		s := c.src.Poller()
		out = append(out,
			counter("history_sync_cycles_total", "Completed history sync cycles.", float64(s.Cycles)),
			counter("history_sync_errors_total", "Contacts whose history could not be synced.", float64(s.Errors)),
		)
	}

	return out
}

// WriteText writes the Prometheus text exposition of Gather to w.
func (c *Collector) WriteText(w io.Writer) error {
	for _, mf := range c.Gather() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// stateFamily reports one series per lifecycle state, 1 for the current one.
func stateFamily(current string) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(namespace + "_connection_state"),
		Help: proto.String("Connection lifecycle state."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, st := range []connection.State{
		connection.StateDisconnected,
		connection.StateConnecting,
		connection.StateConnected,
		connection.StateReconnecting,
		connection.StateGivenUp,
	} {
		v := 0.0
		if st.String() == current {
			v = 1
		}
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: []*dto.LabelPair{{Name: proto.String("state"), Value: proto.String(st.String())}},
			Gauge: &dto.Gauge{Value: proto.Float64(v)},
		})
	}
	return mf
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + "_" + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + "_" + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}
