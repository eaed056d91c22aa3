// Package httptransport delivers outbound messages to a messaging gateway as
// JSON over HTTP, with the retry rules of pkg/httpcall.
package httptransport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/httpcall"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Payload is the body posted for every message.
type Payload struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Transport implements ports.Transport.
type Transport struct {
	url     string
	token   string
	logger  *slog.Logger
	execOpt []httpcall.Option
	exec    *httpcall.Executor
}

var _ ports.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithToken sends "Authorization: Bearer <token>".
func WithToken(token string) Option {
	return func(t *Transport) { t.token = token }
}

// WithDoer sets the HTTP client.
func WithDoer(d ports.Doer) Option {
	return func(t *Transport) { t.execOpt = append(t.execOpt, httpcall.WithDoer(d)) }
}

// WithRetry sets the attempt budget and per-attempt timeout.
func WithRetry(attempts int, timeout time.Duration) Option {
	return func(t *Transport) {
		t.execOpt = append(t.execOpt, httpcall.WithAttempts(attempts))
		if timeout > 0 {
			t.execOpt = append(t.execOpt, httpcall.WithTimeout(timeout))
		}
	}
}

// WithHooks forwards call attempt events.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(t *Transport) { t.execOpt = append(t.execOpt, httpcall.WithHooks(h)) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// New creates a Transport posting to url.
func New(url string, opts ...Option) *Transport {
	t := &Transport{url: url, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	t.exec = httpcall.New(append([]httpcall.Option{httpcall.WithLogger(t.logger)}, t.execOpt...)...)
	return t
}

// Send posts one text message.
func (t *Transport) Send(ctx context.Context, conversationID, text string) error {
	req := domain.Request{
		Method: http.MethodPost,
		URL:    t.url,
		JSON:   Payload{To: conversationID, Type: "text", Text: text},
	}
	if t.token != "" {
		req.Headers = http.Header{"Authorization": []string{"Bearer " + t.token}}
	}

	res, err := t.exec.Do(ctx, httpcall.Call{Node: "transport", ConversationID: conversationID, Request: req})
	if err != nil {
		return fmt.Errorf("send message after %d attempt(s): %w", res.Attempts, err)
	}
	t.logger.Debug("message delivered", "conversation_id", conversationID, "status", res.Response.StatusCode)
	return nil
}
