package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/ticket-checkin/internal/adapters/mongo"
	"github.com/robertarktes/ticket-checkin/internal/checkin"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/idempotency"
)

const StationHeader = "X-Station-ID"

type ScanValidator interface {
	ValidateScan(ctx context.Context, code, eventID string) domain.ScanResult
}

type TallyReader interface {
	GetTally(ctx context.Context, eventID string) (domain.CheckInTally, error)
}

type EventLister interface {
	ListEvents(ctx context.Context, since time.Time) ([]mongo.EventDoc, error)
}

type ScanHistory interface {
	RepeatedScans(ctx context.Context, code string) ([]mongo.ScanAudit, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	engine  ScanValidator
	tallies TallyReader
	catalog EventLister
	history ScanHistory
	idemp   *idempotency.Idempotency
	checks  map[string]Pinger
}

func NewHandlers(engine ScanValidator, tallies TallyReader, catalog EventLister, history ScanHistory, idemp *idempotency.Idempotency, checks map[string]Pinger) *Handlers {
	return &Handlers{
		engine:  engine,
		tallies: tallies,
		catalog: catalog,
		history: history,
		idemp:   idemp,
		checks:  checks,
	}
}

type scanRequest struct {
	Code    string `json:"code"`
	EventID string `json:"event_id"`
}

// ValidateScan answers 200 for every definitive outcome, admitted or not,
// and 503 for TRANSIENT so clients can tell "try again" apart.
func (h *Handlers) ValidateScan(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idemp != nil {
		existing, err := h.idemp.Get(r.Context(), key)
		if err != nil {
			loggerFrom(r.Context()).Warn("idempotency lookup failed: ", err)
		}
		if existing != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(existing.Status)
			w.Write(existing.Result)
			return
		}
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.EventID = strings.TrimSpace(req.EventID)
	if req.Code == "" || req.EventID == "" {
		writeError(w, http.StatusBadRequest, codeMissingField, "code and event_id are required")
		return
	}

	ctx := checkin.WithStation(r.Context(), r.Header.Get(StationHeader))
	res := h.engine.ValidateScan(ctx, req.Code, req.EventID)

	status := http.StatusOK
	if res.Reason == domain.ReasonTransient {
		status = http.StatusServiceUnavailable
	}
	data := writeJSON(w, status, res)

	// Transient answers are not stored: the retry must reach the engine.
	if key != "" && h.idemp != nil && data != nil && status == http.StatusOK {
		if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: data}); err != nil {
			loggerFrom(r.Context()).Warn("idempotency store failed: ", err)
		}
	}
}

func (h *Handlers) GetTally(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	tally, err := h.tallies.GetTally(r.Context(), eventID)
	if err != nil {
		loggerFrom(r.Context()).Error("tally failed: ", err)
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "tally unavailable")
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "since must be RFC3339")
			return
		}
		since = t
	}
	events, err := h.catalog.ListEvents(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "event catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *Handlers) ScanHistory(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	scans, err := h.history.RepeatedScans(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "scan history unavailable")
		return
	}
	if len(scans) == 0 {
		writeError(w, http.StatusNotFound, codeNotFound, "no scans recorded for this code")
		return
	}
	type scanView struct {
		EventID   string    `json:"event_id"`
		StationID string    `json:"station_id"`
		Success   bool      `json:"success"`
		Reason    string    `json:"reason,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}
	out := make([]scanView, len(scans))
	for i, s := range scans {
		out[i] = scanView{EventID: s.EventID, StationID: s.StationID, Success: s.Success, Reason: s.Reason, Timestamp: s.Timestamp}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"code": code, "scans": out})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			loggerFrom(r.Context()).Warn("readiness check failed: ", errors.Wrap(err, name))
			writeError(w, http.StatusServiceUnavailable, codeUnavailable, name+" not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
