package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pricewatch/internal/history"
	"pricewatch/internal/model"
	"pricewatch/internal/performance"
	"pricewatch/internal/persistence"
	"pricewatch/internal/tracker"
)

const (
	defaultReportWindow = time.Hour
	maxImportBytes      = 32 << 20
)

// API serves the tracker over REST.
type API struct {
	tracker *tracker.Tracker
	guard   *TOTPGuard
}

// NewAPI creates the REST API. guard protects state-changing admin
// routes; a nil guard leaves them open.
func NewAPI(t *tracker.Tracker, guard *TOTPGuard) *API {
	return &API{tracker: t, guard: guard}
}

// RegisterRoutes registers all HTTP routes on the provided mux. hub may be
// nil, in which case /ws is not served.
func RegisterRoutes(mux *http.ServeMux, api *API, hub *Hub) {
	mux.HandleFunc("GET /api/watchlist", api.listWatchlist)
	mux.HandleFunc("POST /api/watchlist", api.addWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", api.removeWatchlist)
	mux.HandleFunc("GET /api/snapshot/{symbol}", api.snapshot)
	mux.HandleFunc("GET /api/snapshot/{symbol}/peek", api.peek)
	mux.HandleFunc("GET /api/history/{symbol}", api.history)
	mux.HandleFunc("GET /api/report/{symbol}", api.report)
	mux.HandleFunc("GET /api/alerts", api.alerts)
	mux.HandleFunc("GET /api/export", api.export)
	mux.Handle("POST /api/import", api.guard.Wrap(http.HandlerFunc(api.importState)))
	mux.HandleFunc("GET /api/tracker", api.trackerState)
	mux.Handle("POST /api/tracker/start", api.guard.Wrap(http.HandlerFunc(api.start)))
	mux.Handle("POST /api/tracker/stop", api.guard.Wrap(http.HandlerFunc(api.stop)))

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.ServeWS)
	}
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TOTPHeader)
}

// WithCORS adds CORS headers and answers preflight requests.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type addRequest struct {
	Symbol     string   `json:"symbol"`
	AlertPrice *float64 `json:"alert_price"`
}

// SnapshotResponse is the body of GET /api/snapshot/{symbol}. Ready is
// false while the instrument is warming up.
type SnapshotResponse struct {
	Symbol   string                   `json:"symbol"`
	Ready    bool                     `json:"ready"`
	Latest   *model.PriceObservation  `json:"latest,omitempty"`
	Snapshot *model.IndicatorSnapshot `json:"snapshot,omitempty"`
}

// TrackerResponse is the body of the /api/tracker routes.
type TrackerResponse struct {
	State     string `json:"state"`
	Watchlist int    `json:"watchlist"`
}

func (a *API) listWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.tracker.Entries())
}

func (a *API) addWatchlist(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	entry, err := a.tracker.Add(req.Symbol, req.AlertPrice)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) removeWatchlist(w http.ResponseWriter, r *http.Request) {
	sym := r.PathValue("symbol")
	if !a.tracker.Remove(sym) {
		writeErr(w, fmt.Errorf("remove %s: %w", sym, history.ErrUnknownInstrument))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) snapshot(w http.ResponseWriter, r *http.Request) {
	sym := model.NormalizeSymbol(r.PathValue("symbol"))
	obs, snap, err := a.tracker.Latest(sym)
	if errors.Is(err, history.ErrNoData) {
		writeJSON(w, http.StatusOK, SnapshotResponse{Symbol: sym})
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Symbol: sym, Ready: snap != nil, Latest: &obs, Snapshot: snap})
}

func (a *API) peek(w http.ResponseWriter, r *http.Request) {
	sym := model.NormalizeSymbol(r.PathValue("symbol"))
	price, err := strconv.ParseFloat(r.URL.Query().Get("price"), 64)
	if err != nil || !(price > 0) {
		writeError(w, http.StatusBadRequest, "price must be a positive number")
		return
	}
	snap, err := a.tracker.Peek(sym, price)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Symbol: sym, Ready: snap != nil, Snapshot: snap})
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	obs, err := a.tracker.History(r.PathValue("symbol"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < len(obs) {
			obs = obs[len(obs)-n:]
		}
	}
	writeJSON(w, http.StatusOK, obs)
}

func (a *API) report(w http.ResponseWriter, r *http.Request) {
	window := defaultReportWindow
	if s := r.URL.Query().Get("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	rep, err := a.tracker.Report(r.PathValue("symbol"), window)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) alerts(w http.ResponseWriter, r *http.Request) {
	s := r.URL.Query().Get("since")
	if s == "" {
		writeJSON(w, http.StatusOK, a.tracker.Alerts())
		return
	}
	since, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
		return
	}
	writeJSON(w, http.StatusOK, a.tracker.AlertsSince(since))
}

func (a *API) export(w http.ResponseWriter, r *http.Request) {
	data, err := persistence.Encode(a.tracker.Export())
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="pricewatch-export.json"`)
	w.Write(data)
}

func (a *API) importState(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import too large")
		return
	}
	if err := a.tracker.Import(data); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *API) trackerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.state())
}

func (a *API) start(w http.ResponseWriter, r *http.Request) {
	a.tracker.Start()
	writeJSON(w, http.StatusOK, a.state())
}

func (a *API) stop(w http.ResponseWriter, r *http.Request) {
	a.tracker.Stop()
	writeJSON(w, http.StatusOK, a.state())
}

func (a *API) state() TrackerResponse {
	return TrackerResponse{State: a.tracker.State().String(), Watchlist: len(a.tracker.Entries())}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, history.ErrUnknownInstrument):
		return http.StatusNotFound
	case errors.Is(err, history.ErrNoData), errors.Is(err, performance.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tracker.ErrInvalidSymbol), errors.Is(err, tracker.ErrInvalidAlertPrice),
		errors.Is(err, persistence.ErrMalformedData):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("[gateway] request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
