package ports

import (
	"context"
	"net/http"
)

// Transport delivers an outbound message to a conversation.
type Transport interface {
	Send(ctx context.Context, conversationID, text string) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, conversationID, text string) error

func (f TransportFunc) Send(ctx context.Context, conversationID, text string) error {
	return f(ctx, conversationID, text)
}

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
