package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const maxErrorBody = 512

// Client talks to the whiteboard snapshot endpoint.
type Client struct {
	baseURL   string
	http      *http.Client
	beacon    *http.Client
	log       zerolog.Logger
	emergency sync.WaitGroup
}

// NewClient returns a client rooted at baseURL, e.g. http://host:8888.
// Regular requests use timeout; emergency deliveries get a shorter budget so
// they never outlive a closing process by much.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		beacon:  &http.Client{Timeout: min(timeout, 3*time.Second)},
		log:     log,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(sessionID string) string {
	u := c.baseURL + "/whiteboard"
	if sessionID != "" {
		u += "?" + url.Values{"session_id": {sessionID}}.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, target string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s /whiteboard: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Method: method, Code: resp.StatusCode, Body: msg}
	}
	return data, nil
}

// Load fetches the newest snapshot for sessionID.
func (c *Client) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	if sessionID == "" {
		return Snapshot{}, ErrNoSession
	}
	data, err := c.do(ctx, c.http, http.MethodGet, c.endpoint(sessionID), nil)
	if err != nil {
		return Snapshot{}, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if len(records) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	snap := records[0].Decode()
	c.log.Debug().
		Str("session", sessionID).
		Int("annotations", len(snap.Annotations)).
		Int("skipped", snap.Skipped).
		Bool("image", snap.Image != nil).
		Msg("snapshot fetched")
	return snap, nil
}

// Save submits a snapshot. The endpoint invalidates its read cache itself.
func (c *Client) Save(ctx context.Context, req SaveRequest) error {
	if req.SessionID == "" {
		return ErrNoSession
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := c.do(ctx, c.http, http.MethodPost, c.endpoint(""), body); err != nil {
		return err
	}
	c.log.Debug().Str("session", req.SessionID).Int("bytes", len(body)).Msg("snapshot saved")
	return nil
}

// InvalidateCache drops the server-side cached read without touching the
// stored snapshot.
func (c *Client) InvalidateCache(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	_, err := c.do(ctx, c.http, http.MethodDelete, c.endpoint(sessionID), nil)
	return err
}

// EmergencySave starts delivering req and returns immediately. Nobody waits
// for the response and failures are only logged.
func (c *Client) EmergencySave(req SaveRequest) {
	if req.SessionID == "" {
		return
	}
	body, err := json.Marshal(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("emergency snapshot not encoded")
		return
	}
	c.emergency.Add(1)
	go func() {
		defer c.emergency.Done()
		if _, err := c.do(context.Background(), c.beacon, http.MethodPost, c.endpoint(""), body); err != nil {
			c.log.Debug().Err(err).Msg("emergency save not delivered")
		}
	}()
}

// Drain waits up to timeout for emergency deliveries still in flight. Hosts
// call it right before the process exits.
func (c *Client) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.emergency.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
