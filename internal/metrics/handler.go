package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/rickgao/chatlink/internal/connection"
)

// Controller is the part of connection.Manager the HTTP surface drives.
type Controller interface {
	Stats() connection.Stats
	Connect() <-chan error
	Disconnect()
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerConfig wires the HTTP surface.
type HandlerConfig struct {
	Manager     Controller
	Collector   *Collector
	DB          Pinger // Optional
	MetricsPath string
	Logger      *slog.Logger
}

// NewHandler creates the HTTP handler for health, debug and metrics.
func NewHandler(cfg HandlerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		stats := cfg.Manager.Stats()
		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     healthStatus(stats.State),
			Components: make(map[string]any),
		}

		health.Components["connection"] = map[string]any{
			"state":    stats.State,
			"attempts": stats.Attempts,
		}

		if cfg.DB != nil {
			if err := cfg.DB.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("GET /debug/connection", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg.Manager.Stats())
	})

	mux.HandleFunc("POST /debug/connect", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("connect requested over http")
		cfg.Manager.Connect()
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("POST /debug/disconnect", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("disconnect requested over http")
		cfg.Manager.Disconnect()
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Collector != nil {
		mux.HandleFunc("GET "+metricsPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
			if err := cfg.Collector.WriteText(w); err != nil {
				logger.Error("failed to write metrics", "error", err)
			}
		})
	}

	return mux
}

// healthStatus maps a connection state name to a health verdict.
func healthStatus(state string) string {
	switch state {
	case connection.StateConnected.String():
		return "healthy"
	case connection.StateGivenUp.String():
		return "unhealthy"
	default:
		return "degraded"
	}
}
