package whatsapp

// WebhookPayload is the body the Cloud API posts for inbound events.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one event notification.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries messages or status updates. Status-only callbacks have no Messages.
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
}

// Message is an inbound user message.
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
}

// Text is the text part of a message.
type Text struct {
	Body string `json:"body"`
}

// Inbound is a text message extracted from a webhook payload.
type Inbound struct {
	Sender    string
	MessageID string
	Text      string
}

// TextMessages returns the text messages in the payload in delivery order.
// Other message types are skipped.
func (p WebhookPayload) TextMessages() []Inbound {
	var out []Inbound
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			for _, m := range c.Value.Messages {
				if m.Type != "text" || m.Text == nil {
					continue
				}
				out = append(out, Inbound{Sender: m.From, MessageID: m.ID, Text: m.Text.Body})
			}
		}
	}
	return out
}
