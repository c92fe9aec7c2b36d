package station

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/domain"
)

func TestClient_ValidateScan(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       interface{}
		wantReason domain.Reason
		wantErr    bool
	}{
		{name: "admitted", status: http.StatusOK, body: admitted()},
		{name: "already used", status: http.StatusOK, body: domain.Rejected(domain.ReasonAlreadyUsed, "ticket already checked in"), wantReason: domain.ReasonAlreadyUsed},
		{name: "transient 503 carries a result", status: http.StatusServiceUnavailable, body: domain.Transient("ticket store unavailable, try again"), wantReason: domain.ReasonTransient},
		{name: "bad request is an error", status: http.StatusBadRequest, body: map[string]string{"error": "invalid request body"}, wantErr: true},
		{name: "gateway error is an error", status: http.StatusBadGateway, body: "oops", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/v1/scans" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("X-Station-ID") != "gate-a" {
					t.Errorf("station header = %q", r.Header.Get("X-Station-ID"))
				}
				if len(r.Header.Get("Idempotency-Key")) < 16 {
					t.Errorf("idempotency key = %q", r.Header.Get("Idempotency-Key"))
				}
				var req scanRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code != "TKT-0001" || req.EventID != "evt-1" {
					t.Errorf("request = %+v, err = %v", req, err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL+"/", "gate-a", time.Second)
			res, err := c.ValidateScan(context.Background(), "TKT-0001", "evt-1")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", res.Reason, tt.wantReason)
			}
		})
	}
}

func TestClient_TallyAndEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/events/evt-1/tally", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.CheckInTally{EventID: "evt-1", Total: 120, CheckedIn: 37})
	})
	mux.HandleFunc("/v1/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[{"id":"evt-1","name":"Spring Show","venue":"Hall A","date":"2026-06-01T19:00:00Z"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "gate-a", time.Second)
	tally, err := c.Tally(context.Background(), "evt-1")
	if err != nil {
		t.Fatal(err)
	}
	if tally.Total != 120 || tally.CheckedIn != 37 {
		t.Fatalf("tally = %+v", tally)
	}

	events, err := c.ListEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Name != "Spring Show" || !events[0].Date.Equal(t0) {
		t.Fatalf("events = %+v", events)
	}
}

func TestClient_RetryReusesIdempotencyKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		first := len(keys) == 1
		mu.Unlock()

		if first {
			// Drop the connection before answering, as if the response was
			// lost after the server committed the check-in.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(domain.Rejected(domain.ReasonAlreadyUsed, "ticket already checked in"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gate-a", time.Second)
	res, err := c.ValidateScan(context.Background(), "TKT-0001", "evt-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != domain.ReasonAlreadyUsed {
		t.Fatalf("reason = %q", res.Reason)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 {
		t.Fatalf("requests = %d, want 2", len(keys))
	}
	if keys[0] == "" || keys[0] != keys[1] {
		t.Fatalf("idempotency keys differ across attempts: %q vs %q", keys[0], keys[1])
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, "gate-a", 200*time.Millisecond)
	if _, err := c.ValidateScan(context.Background(), "TKT-0001", "evt-1"); err == nil {
		t.Fatal("expected transport error")
	}
}
