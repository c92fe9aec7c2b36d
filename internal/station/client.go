package station

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/ticket-checkin/internal/domain"
)

// Client calls the check-in API on behalf of one station.
type Client struct {
	baseURL   string
	stationID string
	http      *http.Client
}

func NewClient(baseURL, stationID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		stationID: stationID,
		http:      &http.Client{Timeout: timeout},
	}
}

type scanRequest struct {
	Code    string `json:"code"`
	EventID string `json:"event_id"`
}

// scanAttempts bounds how many times one scan is sent when the transport
// fails before any response arrives. Every attempt carries the same
// Idempotency-Key, so the server admits the ticket at most once.
const (
	scanAttempts     = 2
	scanRetryBackoff = 50 * time.Millisecond
)

// ValidateScan returns the server's result for both 200 and 503 answers.
// Anything else, including transport failures that outlast the retry, is an
// error.
func (c *Client) ValidateScan(ctx context.Context, code, eventID string) (domain.ScanResult, error) {
	body, err := json.Marshal(scanRequest{Code: code, EventID: eventID})
	if err != nil {
		return domain.ScanResult{}, errors.Wrap(err, "encode scan")
	}
	key := uuid.NewString()

	var resp *http.Response
	for attempt := 1; ; attempt++ {
		resp, err = c.postScan(ctx, body, key)
		if err == nil {
			break
		}
		if attempt >= scanAttempts || ctx.Err() != nil {
			return domain.ScanResult{}, errors.Wrapf(err, "post scan (attempt %d)", attempt)
		}
		select {
		case <-ctx.Done():
			return domain.ScanResult{}, errors.Wrap(ctx.Err(), "post scan")
		case <-time.After(scanRetryBackoff):
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return domain.ScanResult{}, unexpectedStatus(resp)
	}
	var res domain.ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.ScanResult{}, errors.Wrap(err, "decode scan result")
	}
	return res, nil
}

func (c *Client) postScan(ctx context.Context, body []byte, key string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scans", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build scan request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if c.stationID != "" {
		req.Header.Set("X-Station-ID", c.stationID)
	}
	return c.http.Do(req)
}

func (c *Client) Tally(ctx context.Context, eventID string) (domain.CheckInTally, error) {
	var tally domain.CheckInTally
	err := c.getJSON(ctx, "/v1/events/"+url.PathEscape(eventID)+"/tally", &tally)
	return tally, err
}

type EventInfo struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Venue string    `json:"venue"`
	Date  time.Time `json:"date"`
}

func (c *Client) ListEvents(ctx context.Context) ([]EventInfo, error) {
	var out struct {
		Events []EventInfo `json:"events"`
	}
	if err := c.getJSON(ctx, "/v1/events", &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if c.stationID != "" {
		req.Header.Set("X-Station-ID", c.stationID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "get %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(v), "decode %s", path)
}

func unexpectedStatus(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errors.Newf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
