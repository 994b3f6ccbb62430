package model

// Typed schema for Meta WhatsApp webhook deliveries. The payload is validated
// at the HTTP boundary; anything that doesn't decode into these shapes is
// rejected as a malformed event instead of failing deep inside the pipeline.

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
}

// InboundMessage is a single message inside a webhook delivery. Type is
// "audio", "text", "image", etc.; Audio is set only for audio messages.
type InboundMessage struct {
	ID    string        `json:"id"`
	From  string        `json:"from"`
	Type  string        `json:"type"`
	Audio *InboundMedia `json:"audio,omitempty"`
}

type InboundMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
}

// Messages flattens every inbound message across entries and changes, in
// delivery order.
func (p *WebhookPayload) Messages() []InboundMessage {
	var out []InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			out = append(out, change.Value.Messages...)
		}
	}
	return out
}
