package memory

import (
	"context"
	"sync"
)

// Message is one outbound message captured by an Outbox.
type Message struct {
	ConversationID string
	Text           string
}

// Outbox implements ports.Transport by recording messages instead of
// delivering them. The CLI chat and tests read replies from it.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

// NewOutbox creates an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// FailWith makes subsequent sends return err. Nil restores delivery.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// Send records the message.
func (o *Outbox) Send(ctx context.Context, conversationID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, Message{ConversationID: conversationID, Text: text})
	return nil
}

// Messages returns every recorded message in send order.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}

// Drain returns the messages recorded for conversationID and forgets them.
func (o *Outbox) Drain(conversationID string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []string
	kept := o.sent[:0]
	for _, m := range o.sent {
		if m.ConversationID == conversationID {
			out = append(out, m.Text)
			continue
		}
		kept = append(kept, m)
	}
	o.sent = kept
	return out
}
