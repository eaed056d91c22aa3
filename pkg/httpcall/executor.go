// Package httpcall executes external HTTP calls with bounded retries.
//
// Classification follows the usual service conventions: 4xx responses are
// permanent failures, 5xx responses and transport errors (including per-attempt
// timeouts) are retried until the attempt budget is spent.
package httpcall

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

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultAttempts = 3
	DefaultTimeout  = 10 * time.Second
	maxBodyBytes    = 4 << 20
)

var (
	// ErrInvalidRequest is returned when a domain.Request cannot be turned into an HTTP request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClient matches a *StatusError with a 4xx status.
	ErrClient = errors.New("client error")
	// ErrServer matches a *StatusError with a 5xx status.
	ErrServer = errors.New("server error")
)

// StatusError reports a response with status >= 400.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.Retryable() {
		return ErrServer
	}
	return ErrClient
}

// Retryable reports whether the status is a server-side failure.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// Backoff configures the delay between attempts. The zero value retries immediately.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

func (b Backoff) policy() backoff.BackOff {
	if b.Initial <= 0 {
		return &backoff.ZeroBackOff{}
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = b.Initial
	exp.RandomizationFactor = 0
	exp.Multiplier = b.Multiplier
	if exp.Multiplier <= 0 {
		exp.Multiplier = 2.0
	}
	exp.MaxInterval = b.Max
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = backoff.DefaultMaxInterval
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

// Call is one logical external call.
type Call struct {
	Node           string
	ConversationID string
	Request        domain.Request
}

// Result describes the outcome of the last attempt.
type Result struct {
	Response *domain.Response
	Attempts int
}

// Executor runs calls against a ports.Doer.
type Executor struct {
	doer     ports.Doer
	attempts int
	timeout  time.Duration
	backoff  Backoff
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
}

// Option configures an Executor.
type Option func(*Executor)

// WithDoer sets the HTTP client. Defaults to a plain *http.Client.
func WithDoer(d ports.Doer) Option {
	return func(e *Executor) { e.doer = d }
}

// WithAttempts sets the total attempt budget. Values < 1 mean one attempt.
func WithAttempts(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.attempts = n
	}
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithBackoff enables a delay between attempts.
func WithBackoff(b Backoff) Option {
	return func(e *Executor) { e.backoff = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithHooks registers lifecycle hooks; OnCallAttempt fires for every attempt.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Executor) { e.hooks = h }
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		doer:     &http.Client{},
		attempts: DefaultAttempts,
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attempts returns the configured attempt budget.
func (e *Executor) Attempts() int { return e.attempts }

// Do runs the call. On success the response has status < 400. On failure the
// returned Result still carries the last response (if any) and the attempt count.
func (e *Executor) Do(ctx context.Context, call Call) (*Result, error) {
	res := &Result{}
	if _, err := toHTTPRequest(ctx, call.Request); err != nil {
		return res, err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(e.backoff.policy(), uint64(e.attempts-1)), ctx)

	op := func() error {
		res.Attempts++
		resp, err := e.attempt(ctx, call, res.Attempts)
		if resp != nil {
			res.Response = resp
		}
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return backoff.Permanent(err)
		}
		if errors.Is(err, ErrInvalidRequest) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("external call attempt failed, retrying",
			"node", call.Node,
			"url", call.Request.URL,
			"attempt", res.Attempts,
			"max_attempts", e.attempts,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(op, policy, notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return res, err
	}
	return res, nil
}

func (e *Executor) attempt(ctx context.Context, call Call, n int) (*domain.Response, error) {
	attemptCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.send(attemptCtx, call.Request)

	if e.hooks.OnCallAttempt != nil {
		ev := &domain.CallEvent{
			EventBase: domain.EventBase{
				Timestamp:      start,
				Type:           domain.EventCallAttempt,
				ConversationID: call.ConversationID,
			},
			Node:     call.Node,
			Method:   methodOf(call.Request),
			URL:      call.Request.URL,
			Attempt:  n,
			Duration: time.Since(start),
			Err:      err,
		}
		if resp != nil {
			ev.StatusCode = resp.StatusCode
		}
		e.hooks.OnCallAttempt(ctx, ev)
	}
	return resp, err
}

func (e *Executor) send(ctx context.Context, r domain.Request) (*domain.Response, error) {
	req, err := toHTTPRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	httpResp, err := e.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &domain.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}
	if httpResp.StatusCode >= 400 {
		return resp, &StatusError{StatusCode: httpResp.StatusCode, Body: body}
	}
	return resp, nil
}

func methodOf(r domain.Request) string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func toHTTPRequest(ctx context.Context, r domain.Request) (*http.Request, error) {
	if r.URL == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidRequest)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	var contentType string
	switch {
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to marshal body: %v", ErrInvalidRequest, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, methodOf(r), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}
