package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rickgao/tradestream/internal/connection"
	"github.com/rickgao/tradestream/internal/journal"
	"github.com/rickgao/tradestream/internal/metrics"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// registry is the read/control surface of the manager used by the ops API.
type registry interface {
	Connections() []connection.Snapshot
	Connection(id string) (connection.Snapshot, bool)
	Reconnect(id string) error
}

type opsHandler struct {
	streams registry
	history journal.Reader // nil when journaling is disabled
	logger  *slog.Logger
}

// newOpsHandler creates the HTTP handler for health, connection and metrics
// endpoints.
func newOpsHandler(streams registry, history journal.Reader, collector *metrics.Collector, metricsPath string, logger *slog.Logger) http.Handler {
	h := &opsHandler{streams: streams, history: history, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /connections", h.list)
	mux.HandleFunc("GET /connections/{id}", h.get)
	mux.HandleFunc("GET /connections/{id}/history", h.historyFor)
	mux.HandleFunc("POST /connections/{id}/reconnect", h.reconnect)
	if collector != nil {
		mux.Handle("GET "+metricsPath, collector.Handler())
	}
	return mux
}

type healthResponse struct {
	Status  string            `json:"status"`
	Streams map[string]string `json:"streams"`
}

// health is "healthy" when every stream is connected, "degraded" when some
// are and "unhealthy" (503) when none are.
func (h *opsHandler) health(w http.ResponseWriter, r *http.Request) {
	snaps := h.streams.Connections()
	resp := healthResponse{Status: "healthy", Streams: make(map[string]string, len(snaps))}

	connected := 0
	for _, s := range snaps {
		resp.Streams[s.ID] = s.Status.String()
		if s.Status == connection.StatusConnected {
			connected++
		}
	}

	code := http.StatusOK
	switch {
	case len(snaps) > 0 && connected == 0:
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case connected < len(snaps):
		resp.Status = "degraded"
	}
	h.writeJSON(w, code, resp)
}

func (h *opsHandler) list(w http.ResponseWriter, r *http.Request) {
	snaps := h.streams.Connections()
	if snaps == nil {
		snaps = []connection.Snapshot{}
	}
	h.writeJSON(w, http.StatusOK, snaps)
}

func (h *opsHandler) get(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.streams.Connection(r.PathValue("id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, connection.ErrUnknownStream)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *opsHandler) reconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.streams.Reconnect(id)
	switch {
	case err == nil:
		h.logger.Info("manual reconnect requested", "stream", id)
		h.writeJSON(w, http.StatusAccepted, map[string]string{"stream": id, "status": "reconnecting"})
	case errors.Is(err, connection.ErrUnknownStream):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, connection.ErrManagerClosed):
		h.writeError(w, http.StatusConflict, err)
	default:
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *opsHandler) historyFor(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, errors.New("journal disabled"))
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := h.history.Recent(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.logger.Error("history query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *opsHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("write response failed", "error", err)
	}
}

func (h *opsHandler) writeError(w http.ResponseWriter, code int, err error) {
	h.writeJSON(w, code, map[string]string{"error": err.Error()})
}
