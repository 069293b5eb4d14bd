package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/engine"
	"github.com/gyaneshwarpardhi/powergrid/internal/event"
	"github.com/gyaneshwarpardhi/powergrid/internal/grid"
	"github.com/gyaneshwarpardhi/powergrid/internal/metrics"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
	"github.com/gyaneshwarpardhi/powergrid/internal/sim"
)

const maxBatchSize = 100

// Reloader rebuilds the world from the current config file and swaps it in.
type Reloader func(r *http.Request) (*config.GridConfig, error)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	reload Reloader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. reload may be nil,
// which disables the reload route.
func New(eng *engine.Engine, reload Reloader) http.Handler {
	h := &Handler{eng: eng, reload: reload, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events", h.ingestEvent)
	h.mux.HandleFunc("POST /v1/events/batch", h.ingestBatch)
	h.mux.HandleFunc("GET /v1/networks", h.listNetworks)
	h.mux.HandleFunc("GET /v1/relays/{id}", h.relayStatus)
	h.mux.HandleFunc("POST /v1/topology/reload", h.reloadTopology)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/events: synchronous single-event ingestion.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.ReceivedAt = time.Now()

	res, err := h.eng.ProcessSync(r.Context(), &ev)
	if err != nil {
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	switch res.Status {
	case engine.StatusInvariant:
		writeJSON(w, http.StatusInternalServerError, res)
	case engine.StatusRejected:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /v1/events/batch: async batch ingestion (up to 100 events).
func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	var events []*event.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one event")
		return
	}
	if len(events) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(events), maxBatchSize))
		return
	}
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("events[%d]: %s", i, err))
			return
		}
	}

	now := time.Now()
	jobID := uuid.New().String()
	queued := 0
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		ev.ReceivedAt = now
		if h.eng.ProcessAsync(ev) {
			queued++
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   jobID,
		"total":    len(events),
		"queued":   queued,
		"rejected": len(events) - queued,
	})
}

// GET /v1/networks: snapshot of every live network.
func (h *Handler) listNetworks(w http.ResponseWriter, r *http.Request) {
	var nets []grid.NetworkInfo
	err := h.eng.Inspect(r.Context(), func(world *sim.World) {
		nets = world.Grid().Networks()
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(nets),
		"networks": nets,
	})
}

// GET /v1/relays/{id}: relay status and the power its network offers.
func (h *Handler) relayStatus(w http.ResponseWriter, r *http.Request) {
	id := relay.ID(r.PathValue("id"))
	var (
		st     sim.RelayStatus
		lookup error
	)
	err := h.eng.Inspect(r.Context(), func(world *sim.World) {
		st, lookup = world.Status(id)
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if errors.Is(lookup, sim.ErrUnknownRelay) {
		writeError(w, http.StatusNotFound, lookup.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /v1/topology/reload: rebuild the world from disk.
func (h *Handler) reloadTopology(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeError(w, http.StatusNotImplemented, "reload is not configured")
		return
	}
	cfg, err := h.reload(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":    true,
		"relays":      len(cfg.Relays),
		"connections": len(cfg.Connections),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the update queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
