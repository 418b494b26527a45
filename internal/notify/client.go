// Package notify delivers replies and scheduled notifications through the
// chat gateway's HTTP API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"dorm-electricity/internal/model"
)

// Client sends messages to users or groups. Delivery is fire-and-forget from
// the caller's point of view: failures are logged and returned, but nothing
// retries.
type Client struct {
	BaseURL string
	Client  *http.Client
	log     *logrus.Entry
}

func NewClient(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.WithField("component", "notify"),
	}
}

// SendToUser delivers a private message.
func (c *Client) SendToUser(ctx context.Context, userID, text string) error {
	return c.post(ctx, "/send_private_msg", map[string]any{
		"user_id": userID,
		"message": text,
	})
}

// SendToGroup delivers a group message.
func (c *Client) SendToGroup(ctx context.Context, groupID, text string) error {
	return c.post(ctx, "/send_group_msg", map[string]any{
		"group_id": groupID,
		"message":  text,
	})
}

// Send dispatches on the identity kind. Errors are logged here so callers can
// treat delivery as best effort.
func (c *Client) Send(ctx context.Context, id model.Identity, text string) {
	var err error
	switch id.Kind {
	case model.IdentityUser:
		err = c.SendToUser(ctx, id.ID, text)
	case model.IdentityGroup:
		err = c.SendToGroup(ctx, id.ID, text)
	default:
		err = fmt.Errorf("unknown identity kind %q", id.Kind)
	}
	if err != nil {
		c.log.WithError(err).WithField("identity", id.Key()).Error("message delivery failed")
	}
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
