// Package whatsapp talks to the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/logger"
)

// DefaultBaseURL is the Graph API root.
const DefaultBaseURL = "https://graph.facebook.com/v18.0"

// Sender delivers a text message to a phone number. It reports success and
// never returns an error; failures are logged by the implementation.
type Sender interface {
	Send(ctx context.Context, to, text string) bool
}

// Client sends messages through the Graph API.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	httpClient    *http.Client
}

// NewClient creates a Cloud API client. timeout bounds each send.
func NewClient(baseURL, phoneNumberID, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type textBody struct {
	Body string `json:"body"`
}

type outboundMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// Send implements Sender. Nothing is retried.
func (c *Client) Send(ctx context.Context, to, text string) bool {
	log := logger.FromContext(ctx).With().Str("to", to).Logger()

	payload, err := json.Marshal(outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode outbound message")
		return false
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build send request")
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("WhatsApp send failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("WhatsApp send rejected")
		return false
	}

	log.Debug().Int("bytes", len(text)).Msg("WhatsApp message sent")
	return true
}

var _ Sender = (*Client)(nil)
