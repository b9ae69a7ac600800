package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sensegrid/internal/config"
	"sensegrid/internal/queue"
)

const userAgent = "SenseGrid-Go/0.1.0"

// Failure classification for command delivery. The offline queue's retry
// policy hinges on this split: rejections consume retry budget, an
// unreachable backend never does.
var (
	// ErrConnectivity marks failures where no response was received at all
	// (DNS, refused connection, timeout).
	ErrConnectivity = errors.New("backend unreachable")
	// ErrRejected marks failures where the backend responded with a
	// non-success status.
	ErrRejected = errors.New("backend rejected command")
)

// Room is a snapshot of one monitored room as reported by the backend.
type Room struct {
	RoomID   string             `json:"roomId"`
	RoomName string             `json:"roomName"`
	DeviceID string             `json:"deviceId"`
	Sensors  map[string]float64 `json:"sensors"`
	Actions  map[string]string  `json:"actions"`
	LastSeen int64              `json:"lastSeen"`
}

// Client talks to the SenseGrid backend API.
type Client struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// New builds a backend client from configuration. The configured request
// timeout bounds every call, including direct sends from the coordinator.
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Backend.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.Backend.BaseURL, "/"),
		authToken: cfg.Backend.AuthToken,
		client:    &http.Client{Timeout: timeout},
	}
}

type commandPayload struct {
	Command json.RawMessage `json:"command"`
	HomeID  string          `json:"homeId,omitempty"`
	RoomID  string          `json:"roomId,omitempty"`
}

// Send delivers one command to the device endpoint. Failures are classified:
// errors wrapping ErrConnectivity mean the backend never answered, errors
// wrapping ErrRejected mean it answered with a non-success status.
func (c *Client) Send(ctx context.Context, targetID string, command json.RawMessage, ids queue.ContextIDs) error {
	if strings.TrimSpace(targetID) == "" {
		return fmt.Errorf("%w: empty target id", ErrRejected)
	}

	body, err := json.Marshal(commandPayload{
		Command: command,
		HomeID:  ids.HomeID,
		RoomID:  ids.RoomID,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrRejected, err)
	}

	endpoint := fmt.Sprintf("%s/api/devices/%s/command", c.baseURL, url.PathEscape(targetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health probes the backend health endpoint. A nil return means the backend
// is reachable and reporting healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: health status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

// Rooms fetches the room snapshots the backend currently knows about.
func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rooms", nil)
	if err != nil {
		return nil, fmt.Errorf("build rooms request: %w", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: rooms status %d", ErrRejected, resp.StatusCode)
	}

	var rooms []Room
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("decode rooms response: %w", err)
	}
	return rooms, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
