package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sender pushes envelopes to a peer's token-stream API. Dissemination
// depends on this interface, not *Client, so tests can substitute a fake.
type Sender interface {
	Send(peerURL string, env Envelope) error
}

// Client is the default HTTP Sender: POST the envelope as JSON to
// <peerURL>/delta.
type Client struct {
	http *http.Client
}

// NewClient returns a Client whose requests abort after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Send pushes env to peerURL.
func (c *Client) Send(peerURL string, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, peerURL+"/delta", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "replicad-transport/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending to %s: %w", peerURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("peer %s returned HTTP %d", peerURL, resp.StatusCode)
	}
	return nil
}
