package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/helmdesk/helmdesk/internal/config"
)

// ErrPushNotConfigured reports that the push provider has no server key. The
// message is fixed: the synchronous fan-out path surfaces it verbatim.
var ErrPushNotConfigured = errors.New("Firebase is not configured")

const defaultPushEndpoint = "https://fcm.googleapis.com/fcm/send"

// HTTPPusher delivers push messages over the provider's HTTPS send endpoint.
type HTTPPusher struct {
	endpoint  string
	serverKey string
	http      *http.Client
}

// NewHTTPPusher builds a pusher from config. A blank server key is allowed;
// Send then fails with ErrPushNotConfigured.
func NewHTTPPusher(cfg config.PushConfig) *HTTPPusher {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultPushEndpoint
	}
	return &HTTPPusher{
		endpoint:  endpoint,
		serverKey: strings.TrimSpace(cfg.ServerKey),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type pushRequest struct {
	RegistrationIDs []string         `json:"registration_ids"`
	Notification    pushNotification `json:"notification"`
	Data            map[string]any   `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (p *HTTPPusher) Send(ctx context.Context, deviceTokens []string, message PushMessage) error {
	if p.serverKey == "" {
		return ErrPushNotConfigured
	}
	if len(deviceTokens) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushRequest{
		RegistrationIDs: deviceTokens,
		Notification: pushNotification{
			Title: message.Title,
			Body:  message.Body,
		},
		Data: map[string]any{"conversationId": message.ConversationID},
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.serverKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("push provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
