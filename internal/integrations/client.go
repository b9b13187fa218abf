// Package integrations is the HTTP client for the external integrations
// service, which owns channel credentials and the video-call provider. Only
// the video-room lifecycle is consumed here.
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helmdesk/helmdesk/internal/config"
)

// ErrServiceNotRunning reports that the integrations service could not be
// reached at all. The message is fixed: callers and clients match on it.
var ErrServiceNotRunning = errors.New("Integrations api is not running")

// Room is a provisioned video chat room.
type Room struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Client talks to the integrations service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient builds a client from config. An empty base URL is allowed; every
// call then fails with ErrServiceNotRunning.
func NewClient(cfg config.IntegrationsConfig, log *slog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
		log: log.With(slog.String("service", "integrations")),
	}
}

// CreateVideoChatRoom provisions a room bound to the conversation.
func (c *Client) CreateVideoChatRoom(ctx context.Context, conversationID string) (*Room, error) {
	body := map[string]string{"erxesApiConversationId": conversationID}
	var room Room
	if err := c.do(ctx, http.MethodPost, "/daily/room", body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteVideoChatRoom tears the room down. A missing room is not an error.
func (c *Client) DeleteVideoChatRoom(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/daily/rooms/"+url.PathEscape(name), nil, nil)
}

// SaveVideoRecordingInfo stores the provider-side recording reference.
func (c *Client) SaveVideoRecordingInfo(ctx context.Context, conversationID, recordingID string) error {
	body := map[string]string{
		"erxesApiConversationId": conversationID,
		"recordingId":            recordingID,
	}
	return c.do(ctx, http.MethodPost, "/daily/saveRecordingInfo", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return ErrServiceNotRunning
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("integrations service unreachable", slog.String("path", path), slog.Any("error", err))
		return ErrServiceNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("integrations service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
